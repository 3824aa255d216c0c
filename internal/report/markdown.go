package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/spritescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Outcome alert
	w.writeAlert(md, report)

	// Candidate table and quality distribution
	w.writeCandidates(md, report)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("SpriteScan Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"ROM", "`" + report.ROMPath + "`"},
			{"SHA-256", "`" + report.ROMHash + "`"},
			{"ROM Size", fmt.Sprintf("%d bytes", report.ROMSize)},
			{"Status", w.getStatusText(report)},
			{"Scan Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.String()},
			{"Ranges Scanned", strconv.Itoa(report.RangesScanned)},
			{"Offsets Probed", strconv.Itoa(report.OffsetsProbed)},
			{"Candidates", strconv.Itoa(len(report.Candidates))},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ScanReport) string {
	switch report.State {
	case model.ScanStateCompleted:
		if report.Resumed {
			return "✅ Completed (resumed)"
		}
		return "✅ Completed"
	case model.ScanStateCancelled:
		return "⚠️ Cancelled (partial results)"
	case model.ScanStateFailed:
		return "❌ Failed - " + report.Error
	default:
		return report.State.String()
	}
}

// writeAlert writes an appropriate alert based on the scan outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	switch {
	case report.State == model.ScanStateFailed:
		md.Cautionf("Scan failed: %s", report.Error)
	case report.State == model.ScanStateCancelled:
		md.Warningf(
			"Scan was cancelled after probing %d offsets. Results are partial; rerun to resume.",
			report.OffsetsProbed,
		)
	case len(report.Candidates) == 0:
		md.Note("No sprite candidates found. Try lowering the quality threshold or reducing the stride.")
	default:
		best := report.BestCandidate()
		md.Tipf(
			"Found %d sprite candidate(s). Best candidate at %s with quality %.2f.",
			len(report.Candidates), best.OffsetHex(), best.QualityScore,
		)
	}
	md.PlainText("")
}

// writeCandidates writes the candidate table and quality distribution.
func (w *MarkdownWriter) writeCandidates(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Sprite Candidates")
	md.PlainText("")

	if len(report.Candidates) == 0 {
		md.PlainText("No candidates above the quality threshold.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Candidates))
	for i, c := range report.Candidates {
		palette := "-"
		if c.PaletteHint != nil {
			palette = strconv.Itoa(*c.PaletteHint)
		}
		compressed := "-"
		if c.CompressedSize > 0 {
			compressed = fmt.Sprintf("%d", c.CompressedSize)
		}
		rows[i] = []string{
			"`" + c.OffsetHex() + "`",
			strconv.Itoa(c.TileCount),
			strconv.Itoa(c.DecompressedSize),
			compressed,
			fmt.Sprintf("%.2f", c.QualityScore),
			palette,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Offset", "Tiles", "Size", "Compressed", "Quality", "Palette"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of candidate quality bands.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ScanReport) {
	var strong, moderate, weak uint64
	for _, c := range report.Candidates {
		switch {
		case c.QualityScore >= 0.7:
			strong++
		case c.QualityScore >= 0.5:
			moderate++
		default:
			weak++
		}
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Candidate Quality Distribution"),
		piechart.WithShowData(true),
	)

	if strong > 0 {
		chart.LabelAndIntValue("Strong (>= 0.7)", strong)
	}
	if moderate > 0 {
		chart.LabelAndIntValue("Moderate (0.5 - 0.7)", moderate)
	}
	if weak > 0 {
		chart.LabelAndIntValue("Weak (< 0.5)", weak)
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [spritescan](https://github.com/nao1215/spritescan)*")
}
