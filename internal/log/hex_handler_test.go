package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestHexHandlerRewritesAddresses verifies address attributes are rendered
// in hexadecimal while other attributes pass through untouched.
func TestHexHandlerRewritesAddresses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{
			name: "offset is rewritten",
			attr: slog.Int64("offset", 0x8000),
			want: "offset=0x8000",
		},
		{
			name: "size is rewritten",
			attr: slog.Int("size", 4096),
			want: "size=0x1000",
		},
		{
			name: "suffix match is rewritten",
			attr: slog.Int64("range_start", 0xC000),
			want: "range_start=0xC000",
		},
		{
			name: "uint64 address is rewritten",
			attr: slog.Uint64("addr", 0xFF00),
			want: "addr=0xFF00",
		},
		{
			name: "non-address integer passes through",
			attr: slog.Int("workers", 4),
			want: "workers=4",
		},
		{
			name: "string value passes through",
			attr: slog.String("rom", "game.sfc"),
			want: "rom=game.sfc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewHexHandler(slog.NewTextHandler(&buf, nil)))

			logger.Info("scan", tt.attr)

			if got := buf.String(); !strings.Contains(got, tt.want) {
				t.Errorf("expected output to contain %q, got %q", tt.want, got)
			}
		})
	}
}

// TestHexHandlerRewritesGroups verifies group attributes are rewritten
// recursively.
func TestHexHandlerRewritesGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewHexHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("scan", slog.Group("range",
		slog.Int64("start", 0x8000),
		slog.Int64("end", 0x10000),
	))

	got := buf.String()
	if !strings.Contains(got, "range.start=0x8000") {
		t.Errorf("expected group start in hex, got %q", got)
	}
	if !strings.Contains(got, "range.end=0x10000") {
		t.Errorf("expected group end in hex, got %q", got)
	}
}

// TestHexHandlerWithAttrs verifies attributes added via With are rewritten.
func TestHexHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewHexHandler(slog.NewTextHandler(&buf, nil)))

	logger.With(slog.Int64("offset", 0x1234)).Info("probe")

	if got := buf.String(); !strings.Contains(got, "offset=0x1234") {
		t.Errorf("expected offset in hex, got %q", got)
	}
}

// TestNewLogger verifies level selection.
func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("verbose enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true)

		logger.Debug("detail", slog.Int64("offset", 16))

		if got := buf.String(); !strings.Contains(got, "offset=0x10") {
			t.Errorf("expected debug output with hex offset, got %q", got)
		}
	})

	t.Run("quiet suppresses info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)

		logger.Info("detail")

		if buf.Len() != 0 {
			t.Errorf("expected no output at info level, got %q", buf.String())
		}
	})
}
