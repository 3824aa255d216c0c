package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/spritescan/internal/model"
)

// TextWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type TextWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *TextWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCandidates(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *TextWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SPRITESCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("ROM:            %s\n", report.ROMPath))
	sb.WriteString(fmt.Sprintf("SHA-256:        %s\n", report.ROMHash))
	sb.WriteString(fmt.Sprintf("ROM Size:       %d bytes\n", report.ROMSize))
	sb.WriteString(fmt.Sprintf("Scan Started:   %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", report.Duration))
	sb.WriteString(fmt.Sprintf("Ranges Scanned: %d\n", report.RangesScanned))
	sb.WriteString(fmt.Sprintf("Offsets Probed: %d\n", report.OffsetsProbed))

	switch report.State {
	case model.ScanStateCancelled:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	case model.ScanStateFailed:
		sb.WriteString(fmt.Sprintf("Status:         FAILED - %s\n", report.Error))
	case model.ScanStateCompleted:
		if report.Resumed {
			sb.WriteString("Status:         Completed (resumed from cache)\n")
		} else {
			sb.WriteString("Status:         Completed\n")
		}
	default:
		sb.WriteString(fmt.Sprintf("Status:         %s\n", report.State))
	}

	sb.WriteString("\n")
}

// writeCandidates writes the candidate list section.
func (w *TextWriter) writeCandidates(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SPRITE CANDIDATES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Candidates) == 0 {
		sb.WriteString("  No candidates above the quality threshold\n\n")
		return
	}

	for _, c := range report.Candidates {
		sb.WriteString(fmt.Sprintf("  [+] %-10s  %4d tiles  quality %.2f", c.OffsetHex(), c.TileCount, c.QualityScore))
		if c.PaletteHint != nil {
			sb.WriteString(fmt.Sprintf("  palette %d", *c.PaletteHint))
		}
		sb.WriteString("\n")

		if w.verbose {
			sb.WriteString(fmt.Sprintf("      decompressed: %d bytes", c.DecompressedSize))
			if c.CompressedSize > 0 {
				sb.WriteString(fmt.Sprintf(", compressed: %d bytes", c.CompressedSize))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:    %d candidates\n", len(report.Candidates)))
	if best := report.BestCandidate(); best != nil {
		sb.WriteString(fmt.Sprintf("  BEST:     %s (quality %.2f)\n", best.OffsetHex(), best.QualityScore))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by spritescan\n")
	sb.WriteString("https://github.com/nao1215/spritescan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
