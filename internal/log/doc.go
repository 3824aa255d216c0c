// Package log provides slog-based structured logging with hexadecimal
// rendering of ROM addresses and sizes.
package log
