package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/spritescan/internal/config"
)

// parseScanFlags builds a scan command with the given flags parsed.
func parseScanFlags(t *testing.T, flags ...string) *config.Config {
	t.Helper()

	cmd := NewScanCmd()
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := buildConfig(cmd, []string{"game.sfc"})
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	return cfg
}

// TestNewScanCmd tests the scan command definition.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scan <rom>" {
			t.Errorf("expected use 'scan <rom>', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"codec", "codec-arg", "workers", "request-timeout",
			"stride", "threshold", "region-size", "min-gap",
			"oam", "cgram", "no-cache", "config",
			"json", "markdown", "output",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})
}

// TestBuildConfig tests flag to config mapping.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := parseScanFlags(t)
		if cfg.ROMPath != "game.sfc" {
			t.Errorf("expected ROM path game.sfc, got %q", cfg.ROMPath)
		}
		if cfg.CodecTool != config.DefaultCodecTool {
			t.Errorf("expected default codec, got %q", cfg.CodecTool)
		}
		if cfg.Stride != config.DefaultStride {
			t.Errorf("expected default stride, got %d", cfg.Stride)
		}
		if cfg.QualityThreshold != config.DefaultQualityThreshold {
			t.Errorf("expected default threshold, got %v", cfg.QualityThreshold)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cfg := parseScanFlags(t,
			"--codec", "myexhal",
			"--stride", "32",
			"--threshold", "0.5",
			"--workers", "4",
			"--request-timeout", "10s",
			"--no-cache",
		)
		if cfg.CodecTool != "myexhal" {
			t.Errorf("expected codec myexhal, got %q", cfg.CodecTool)
		}
		if cfg.Stride != 32 {
			t.Errorf("expected stride 32, got %d", cfg.Stride)
		}
		if cfg.QualityThreshold != 0.5 {
			t.Errorf("expected threshold 0.5, got %v", cfg.QualityThreshold)
		}
		if cfg.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cfg.Workers)
		}
		if cfg.RequestTimeout != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", cfg.RequestTimeout)
		}
		if !cfg.NoCache {
			t.Error("expected cache disabled")
		}
	})

	t.Run("config file applies and flags win", func(t *testing.T) {
		t.Parallel()

		content := `
defaults:
  codec: file-codec
  stride: 16
roms:
  game.sfc:
    qualityThreshold: 0.7
`
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg := parseScanFlags(t, "--config", path, "--stride", "128")
		if cfg.CodecTool != "file-codec" {
			t.Errorf("expected codec from config file, got %q", cfg.CodecTool)
		}
		if cfg.QualityThreshold != 0.7 {
			t.Errorf("expected ROM profile threshold 0.7, got %v", cfg.QualityThreshold)
		}
		// Explicit flag beats the config file value
		if cfg.Stride != 128 {
			t.Errorf("expected flag stride 128, got %d", cfg.Stride)
		}
	})

	t.Run("missing explicit config file errors", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := buildConfig(cmd, []string{"game.sfc"}); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}
