package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/spritescan/internal/cache"
	"github.com/nao1215/spritescan/internal/codec"
	"github.com/nao1215/spritescan/internal/config"
	ilog "github.com/nao1215/spritescan/internal/log"
	"github.com/nao1215/spritescan/internal/model"
	"github.com/nao1215/spritescan/internal/region"
	"github.com/nao1215/spritescan/internal/report"
	"github.com/nao1215/spritescan/internal/scanner"
	"github.com/nao1215/spritescan/internal/score"
	"github.com/nao1215/spritescan/internal/snes"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <rom>",
		Short: "Scan a ROM image for compressed sprite sheets",
		Long: `Scan brute-forces HAL decompression across a SNES ROM image.

It first maps empty regions (filler, padding, erased sectors) and skips
them, then probes the remaining ranges at a fixed stride through a pool
of external codec worker processes. Decoded payloads are scored for
sprite-likeness and candidates above the quality threshold are reported.

Progress is checkpointed to a local database keyed by ROM content hash,
so an interrupted scan resumes where it left off and a completed scan
answers instantly from cache.

Examples:
  # Scan a ROM with defaults
  spritescan scan kirby.sfc

  # Finer stride and a stricter threshold
  spritescan scan --stride 32 --threshold 0.5 kirby.sfc

  # Output a Markdown report to a file
  spritescan scan --markdown -o report.md kirby.sfc

  # Palette hinting from synchronized memory snapshots
  spritescan scan --oam oam.bin --cgram cgram.bin kirby.sfc

Configuration file (.spritescan) example:
  defaults:
    codec: exhal-worker
    stride: 64
  roms:
    kirby.sfc:
      stride: 32
      qualityThreshold: 0.25`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	// Codec pool flags
	cmd.Flags().String("codec", config.DefaultCodecTool,
		"External decompressor binary (searched on PATH)")
	cmd.Flags().StringSlice("codec-arg", nil,
		"Extra argument passed to every codec worker (repeatable)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of codec worker processes (0 = one per CPU)")
	cmd.Flags().Duration("request-timeout", config.DefaultRequestTimeout,
		"Timeout for a single decompression attempt")

	// Scan behavior flags
	cmd.Flags().IntP("stride", "s", config.DefaultStride,
		"Byte step between candidate offsets")
	cmd.Flags().Float64P("threshold", "t", config.DefaultQualityThreshold,
		"Minimum quality score (0-1) for a candidate to be reported")
	cmd.Flags().Int("region-size", config.DefaultRegionSize,
		"Window size in bytes for empty-region analysis")
	cmd.Flags().Int("min-gap", config.DefaultMinGapSize,
		"Empty gap in bytes below which scan ranges are merged")

	// Snapshot flags
	cmd.Flags().String("oam", "",
		"Path to a 544-byte OAM snapshot for palette hinting")
	cmd.Flags().String("cgram", "",
		"Path to a 512-byte CGRAM snapshot for palette hinting")
	cmd.Flags().String("vram", "",
		"Path to a 65536-byte VRAM snapshot captured with --oam and --cgram")

	// Cache flags
	cmd.Flags().Bool("no-cache", false,
		"Disable the resumable scan database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .spritescan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags and config file
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := ilog.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the optional
// .spritescan file. Flags win over the config file, which wins over
// defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ROMPath = args[0]

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load profile from config file first so explicit flags override it.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently skip if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.GetProfile(filepath.Base(cfg.ROMPath)).Apply(cfg)
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if cmd.Flags().Changed("codec") {
		if cfg.CodecTool, err = cmd.Flags().GetString("codec"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("codec-arg") {
		if cfg.CodecArgs, err = cmd.Flags().GetStringSlice("codec-arg"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("workers") {
		if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("stride") {
		if cfg.Stride, err = cmd.Flags().GetInt("stride"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("threshold") {
		if cfg.QualityThreshold, err = cmd.Flags().GetFloat64("threshold"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("oam") {
		if cfg.OAMPath, err = cmd.Flags().GetString("oam"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("cgram") {
		if cfg.CGRAMPath, err = cmd.Flags().GetString("cgram"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("vram") {
		if cfg.VRAMPath, err = cmd.Flags().GetString("vram"); err != nil {
			return nil, err
		}
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("request-timeout")
	if err != nil {
		return nil, err
	}
	cfg.RegionSize, err = cmd.Flags().GetInt("region-size")
	if err != nil {
		return nil, err
	}
	cfg.MinGapSize, err = cmd.Flags().GetInt("min-gap")
	if err != nil {
		return nil, err
	}
	cfg.NoCache, err = cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// runScan wires the pool, detector, scorer, and cache together and runs
// the scan.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"rom", cfg.ROMPath,
		"codec", cfg.CodecTool,
		"stride", cfg.Stride,
		"workers", cfg.Workers,
	)

	pool, err := codec.NewPool(cfg.CodecTool, cfg.CodecArgs,
		codec.WithWorkers(cfg.Workers),
		codec.WithRequestTimeout(cfg.RequestTimeout),
		codec.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to start codec pool: %w", err)
	}
	defer func() {
		if err := pool.Shutdown(); err != nil {
			logger.Error("failed to shut down codec pool", "error", err)
		}
	}()

	detector := region.New(region.WithConfig(region.Config{
		EntropyThreshold: cfg.EntropyThreshold,
		ZeroThreshold:    cfg.ZeroThreshold,
		PatternThreshold: cfg.PatternThreshold,
		MaxUniqueBytes:   cfg.MaxUniqueBytes,
		RegionSize:       cfg.RegionSize,
	}))
	scorer := score.New(score.WithThreshold(cfg.QualityThreshold))

	opts := []scanner.Option{
		scanner.WithDetector(detector),
		scanner.WithScorer(scorer),
		scanner.WithStride(cfg.Stride),
		scanner.WithMinGapSize(cfg.MinGapSize),
		scanner.WithYCutoff(cfg.YCutoff),
		scanner.WithLogger(logger),
	}

	// Resumable scan database, unless disabled
	if !cfg.NoCache {
		db, err := cache.Open(cfg.CacheDir, cache.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open scan database: %w", err)
		}
		defer db.Close()
		logger.Info("scan database opened", "dir", cfg.CacheDir)
		opts = append(opts, scanner.WithCache(db))
	}

	// Optional synchronized snapshot for palette hinting
	if cfg.OAMPath != "" {
		snap, err := loadSnapshot(cfg.OAMPath, cfg.CGRAMPath, cfg.VRAMPath)
		if err != nil {
			return err
		}
		opts = append(opts, scanner.WithSnapshot(snap))
	}

	o, err := scanner.New(pool, opts...)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	scanReport, err := o.Scan(ctx, cfg.ROMPath)
	if err != nil && !errors.Is(err, context.Canceled) {
		// The report still holds partial state worth showing; print
		// it after surfacing the error.
		fmt.Fprintf(os.Stderr, "Scan error: %v\n", err)
	}
	if scanReport == nil {
		return err
	}

	if err := outputReport(cmd, cfg, scanReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if scanReport.State == model.ScanStateFailed {
		return errors.New(scanReport.Error)
	}
	return nil
}

// loadSnapshot reads and size-checks the snapshot files. The VRAM path
// may be empty.
func loadSnapshot(oamPath, cgramPath, vramPath string) (scanner.Snapshot, error) {
	oam, err := os.ReadFile(oamPath) //nolint:gosec // User-provided snapshot path is intentional
	if err != nil {
		return scanner.Snapshot{}, fmt.Errorf("failed to read OAM snapshot: %w", err)
	}
	cgram, err := os.ReadFile(cgramPath) //nolint:gosec // User-provided snapshot path is intentional
	if err != nil {
		return scanner.Snapshot{}, fmt.Errorf("failed to read CGRAM snapshot: %w", err)
	}
	if len(oam) != snes.OAMSize {
		return scanner.Snapshot{}, fmt.Errorf("OAM snapshot is %d bytes, want %d", len(oam), snes.OAMSize)
	}
	if len(cgram) != snes.CGRAMSize {
		return scanner.Snapshot{}, fmt.Errorf("CGRAM snapshot is %d bytes, want %d", len(cgram), snes.CGRAMSize)
	}

	snap := scanner.Snapshot{OAM: oam, CGRAM: cgram}
	if vramPath != "" {
		vram, err := os.ReadFile(vramPath) //nolint:gosec // User-provided snapshot path is intentional
		if err != nil {
			return scanner.Snapshot{}, fmt.Errorf("failed to read VRAM snapshot: %w", err)
		}
		if len(vram) != snes.VRAMSize {
			return scanner.Snapshot{}, fmt.Errorf("VRAM snapshot is %d bytes, want %d", len(vram), snes.VRAMSize)
		}
		snap.VRAM = vram
	}
	return snap, nil
}

// outputReport outputs the scan report in the requested format.
func outputReport(cmd *cobra.Command, cfg *config.Config, scanReport *model.ScanReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (detailed report with version metadata)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(scanReport)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(scanReport)
		return err
	}

	// Human-readable report (default)
	writer := report.NewTextWriter(output, report.WithVerbose(getVerboseFlag(cmd)))
	_, err := writer.Write(scanReport)
	return err
}
