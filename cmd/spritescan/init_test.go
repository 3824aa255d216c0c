package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/spritescan/internal/config"
)

// runInit executes the init command with the given arguments.
func runInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// TestInitCmd tests configuration file generation.
func TestInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates configuration file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".spritescan")
		out, err := runInit(t, "-o", path)
		if err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if !strings.Contains(out, "Created configuration file") {
			t.Errorf("expected creation message, got %q", out)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read generated config: %v", err)
		}
		for _, want := range []string{"defaults:", "codec:", "stride:", "qualityThreshold:"} {
			if !strings.Contains(string(content), want) {
				t.Errorf("expected generated config to contain %q", want)
			}
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".spritescan")
		if err := os.WriteFile(path, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}

		if _, err := runInit(t, "-o", path); err == nil {
			t.Error("expected error for existing file")
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".spritescan")
		if err := os.WriteFile(path, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}

		if _, err := runInit(t, "-o", path, "-f"); err != nil {
			t.Fatalf("init with force failed: %v", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read generated config: %v", err)
		}
		if string(content) == "existing" {
			t.Error("expected file to be overwritten")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
		if _, err := runInit(t, "-o", path); err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected config file at %s: %v", path, err)
		}
	})

	t.Run("generated template parses as valid config", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".spritescan")
		if _, err := runInit(t, "-o", path); err != nil {
			t.Fatalf("init failed: %v", err)
		}

		// The template must round trip through the loader.
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			t.Fatalf("generated template does not parse: %v", err)
		}
		if cf.Defaults.Codec != config.DefaultCodecTool {
			t.Errorf("expected default codec %q, got %q", config.DefaultCodecTool, cf.Defaults.Codec)
		}
	})
}
