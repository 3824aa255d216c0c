package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// addressKeys contains attribute keys that hold ROM addresses or byte
// counts. These values are rendered in hexadecimal because offsets like
// 0x8000 or 0xC2F3A0 are meaningless to a human reader in decimal.
var addressKeys = map[string]bool{
	"offset":      true,
	"addr":        true,
	"address":     true,
	"start":       true,
	"end":         true,
	"last_offset": true,
	"rom_size":    true,
	"size":        true,
	"region_size": true,
	"stride":      true,
}

// addressSuffixes are key endings that also indicate an address value.
// Matching by suffix catches derived keys like "range_start" without
// enumerating every variant.
var addressSuffixes = []string{
	"_offset",
	"_addr",
	"_start",
	"_end",
}

// HexHandler wraps an slog.Handler to render ROM addresses in hexadecimal.
// It intercepts log records and rewrites integer attribute values whose
// keys name an address or byte count before passing them to the
// underlying handler.
//
// Design decision: We use a handler wrapper rather than requiring callers
// to format addresses themselves because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Call sites stay readable: slog.Int64("offset", off) just works
type HexHandler struct {
	// handler is the underlying slog handler that receives rewritten records.
	handler slog.Handler
}

// NewHexHandler creates a new HexHandler wrapping the given handler.
// Address-valued attributes are rewritten before being passed to the
// underlying handler. If handler is nil, the returned HexHandler will
// use slog.Default().Handler().
func NewHexHandler(handler slog.Handler) *HexHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &HexHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *HexHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record's address attributes and passes it to the
// underlying handler.
func (h *HexHandler) Handle(ctx context.Context, r slog.Record) error {
	rewritten := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		rewritten.AddAttrs(h.rewriteAttr(a))
		return true
	})

	return h.handler.Handle(ctx, rewritten)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are rewritten before being added.
func (h *HexHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	rewritten := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		rewritten[i] = h.rewriteAttr(a)
	}
	return &HexHandler{handler: h.handler.WithAttrs(rewritten)}
}

// WithGroup returns a new handler with the given group name.
func (h *HexHandler) WithGroup(name string) slog.Handler {
	return &HexHandler{handler: h.handler.WithGroup(name)}
}

// rewriteAttr rewrites a single attribute, recursively handling groups.
func (h *HexHandler) rewriteAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		rewritten := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			rewritten[i] = h.rewriteAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(rewritten...)}
	}

	if !isAddressKey(a.Key) {
		return a
	}

	switch a.Value.Kind() {
	case slog.KindInt64:
		return slog.String(a.Key, fmt.Sprintf("0x%X", a.Value.Int64()))
	case slog.KindUint64:
		return slog.String(a.Key, fmt.Sprintf("0x%X", a.Value.Uint64()))
	default:
		return a
	}
}

// isAddressKey reports whether the key names an address or byte count.
func isAddressKey(key string) bool {
	keyLower := strings.ToLower(key)
	if addressKeys[keyLower] {
		return true
	}
	for _, suffix := range addressSuffixes {
		if strings.HasSuffix(keyLower, suffix) {
			return true
		}
	}
	return false
}

// NewLogger creates a new slog.Logger with hexadecimal address rendering.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	hexHandler := NewHexHandler(textHandler)

	return slog.New(hexHandler)
}

// NewJSONLogger creates a new slog.Logger with hexadecimal address
// rendering that outputs JSON format. Useful for structured log
// aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger configured for JSON output.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	hexHandler := NewHexHandler(jsonHandler)

	return slog.New(hexHandler)
}
