package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/spritescan/internal/model"
)

// newTestReport builds a completed report with two candidates.
func newTestReport() *model.ScanReport {
	hint := 10
	report := model.NewScanReport("kirby.sfc")
	report.ROMHash = "deadbeef"
	report.ROMSize = 0x100000
	report.State = model.ScanStateCompleted
	report.RangesScanned = 3
	report.OffsetsProbed = 420
	report.StartedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	report.Duration = 90 * time.Second
	report.AddCandidates(
		model.SpriteCandidate{Offset: 0x8000, DecompressedSize: 2048, CompressedSize: 1200, TileCount: 64, QualityScore: 0.85, PaletteHint: &hint},
		model.SpriteCandidate{Offset: 0xC000, DecompressedSize: 512, TileCount: 16, QualityScore: 0.42},
	)
	return report
}

// TestTextWriter tests human-readable output.
func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes completed report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewTextWriter(&buf)

		n, err := w.Write(newTestReport())
		if err != nil {
			t.Fatalf("failed to write report: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		got := buf.String()
		for _, want := range []string{
			"SPRITESCAN REPORT",
			"kirby.sfc",
			"deadbeef",
			"0x8000",
			"0xC000",
			"palette 10",
			"2 candidates",
			"Status:         Completed",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("verbose adds sizes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewTextWriter(&buf, WithVerbose(true))

		if _, err := w.Write(newTestReport()); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		got := buf.String()
		if !strings.Contains(got, "decompressed: 2048 bytes") {
			t.Errorf("expected decompressed size in verbose output, got %q", got)
		}
		if !strings.Contains(got, "compressed: 1200 bytes") {
			t.Errorf("expected compressed size in verbose output, got %q", got)
		}
	})

	t.Run("failed report shows error", func(t *testing.T) {
		t.Parallel()

		report := newTestReport()
		report.State = model.ScanStateFailed
		report.Error = "read rom: permission denied"

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(report); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), "FAILED - read rom: permission denied") {
			t.Errorf("expected failure status, got %q", buf.String())
		}
	})

	t.Run("empty report notes no candidates", func(t *testing.T) {
		t.Parallel()

		report := newTestReport()
		report.Candidates = nil

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(report); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), "No candidates above the quality threshold") {
			t.Errorf("expected empty-candidate notice, got %q", buf.String())
		}
	})
}

// TestJSONWriter tests machine-readable output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(newTestReport()); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		var decoded model.ScanReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.ROMPath != "kirby.sfc" {
			t.Errorf("expected ROM path kirby.sfc, got %q", decoded.ROMPath)
		}
		if len(decoded.Candidates) != 2 {
			t.Errorf("expected 2 candidates, got %d", len(decoded.Candidates))
		}
	})

	t.Run("state renders as name", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(newTestReport()); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), `"state":"completed"`) {
			t.Errorf("expected named state in JSON, got %q", buf.String())
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(newTestReport()); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "1.2.3")

		if _, err := w.Write(newTestReport()); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		var wrapped JSONReport
		if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if wrapped.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %q", wrapped.Version)
		}
		if wrapped.Report == nil || wrapped.Report.ROMHash != "deadbeef" {
			t.Errorf("expected wrapped report, got %+v", wrapped.Report)
		}
	})
}

// TestMarkdownWriter tests Markdown output.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes completed report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(newTestReport()); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		got := buf.String()
		for _, want := range []string{
			"# SpriteScan Report",
			"## Sprite Candidates",
			"`0x8000`",
			"0.85",
			"mermaid",
			"[!TIP]",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("cancelled report warns", func(t *testing.T) {
		t.Parallel()

		report := newTestReport()
		report.State = model.ScanStateCancelled

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected warning alert, got %q", buf.String())
		}
	})

	t.Run("failed report cautions", func(t *testing.T) {
		t.Parallel()

		report := newTestReport()
		report.State = model.ScanStateFailed
		report.Error = "boom"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Errorf("expected caution alert, got %q", buf.String())
		}
	})

	t.Run("empty report notes", func(t *testing.T) {
		t.Parallel()

		report := newTestReport()
		report.Candidates = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}

		if !strings.Contains(buf.String(), "[!NOTE]") {
			t.Errorf("expected note alert, got %q", buf.String())
		}
	})
}

// TestMultiWriter tests fan-out to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, jsonBuf bytes.Buffer
		mw := NewMultiWriter(NewTextWriter(&text), NewJSONWriter(&jsonBuf))

		n, err := mw.Write(newTestReport())
		if err != nil {
			t.Fatalf("failed to write report: %v", err)
		}
		if n != text.Len()+jsonBuf.Len() {
			t.Errorf("expected total %d bytes, got %d", text.Len()+jsonBuf.Len(), n)
		}
		if text.Len() == 0 || jsonBuf.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("sink closed")
		mw := NewMultiWriter(&failingWriter{err: wantErr}, NewTextWriter(&bytes.Buffer{}))

		if _, err := mw.Write(newTestReport()); !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	})
}

// failingWriter always returns its configured error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(_ *model.ScanReport) (int, error) {
	return 0, f.err
}
