package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nao1215/spritescan/internal/config"
	"github.com/nao1215/spritescan/internal/region"
	"github.com/spf13/cobra"
)

// NewRegionsCmd creates the regions command.
func NewRegionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions <rom>",
		Short: "Print the empty-region map of a ROM image",
		Long: `Regions runs only the empty-region detector over a ROM image and prints
the resulting scan range map. No decompression is attempted, so this is
a fast way to preview what a full scan would probe and to tune the
detector thresholds.

Examples:
  # Print the region map
  spritescan regions kirby.sfc

  # Smaller analysis window
  spritescan regions --region-size 1024 kirby.sfc

  # Per-window detail as JSON
  spritescan regions --json kirby.sfc`,
		Args: cobra.ExactArgs(1),
		RunE: runRegionsCmd,
	}

	cmd.Flags().Int("region-size", config.DefaultRegionSize,
		"Window size in bytes for empty-region analysis")
	cmd.Flags().Int("min-gap", config.DefaultMinGapSize,
		"Empty gap in bytes below which scan ranges are merged")
	cmd.Flags().BoolP("json", "j", false,
		"Output per-window analyses as JSON")

	return cmd
}

// runRegionsCmd executes the regions command.
func runRegionsCmd(cmd *cobra.Command, args []string) error {
	regionSize, err := cmd.Flags().GetInt("region-size")
	if err != nil {
		return err
	}
	minGap, err := cmd.Flags().GetInt("min-gap")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	rom, err := os.ReadFile(args[0]) //nolint:gosec // User-provided ROM path is intentional
	if err != nil {
		return fmt.Errorf("failed to read rom: %w", err)
	}

	cfg := region.DefaultConfig()
	cfg.RegionSize = regionSize
	detector := region.New(region.WithConfig(cfg))

	if asJSON {
		return writeRegionJSON(cmd, detector, rom)
	}
	return writeRegionMap(cmd, detector, rom, minGap)
}

// writeRegionJSON prints every window analysis as a JSON array.
func writeRegionJSON(cmd *cobra.Command, detector *region.Detector, rom []byte) error {
	size := detector.Config().RegionSize
	analyses := make([]region.RegionAnalysis, 0, len(rom)/size+1)
	for offset := 0; offset < len(rom); offset += size {
		end := offset + size
		if end > len(rom) {
			end = len(rom)
		}
		analyses = append(analyses, detector.AnalyzeRegion(rom[offset:end], offset))
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(analyses)
}

// writeRegionMap prints the merged scan ranges with coverage statistics.
func writeRegionMap(cmd *cobra.Command, detector *region.Detector, rom []byte, minGap int) error {
	ranges := detector.OptimizedScanRanges(rom, minGap)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ROM size: %d bytes (0x%X)\n", len(rom), len(rom))
	fmt.Fprintf(out, "Scan ranges: %d (window %d bytes, merge gap %d bytes)\n\n",
		len(ranges), detector.Config().RegionSize, minGap)

	var covered int
	for _, rng := range ranges {
		covered += rng.Size()
		fmt.Fprintf(out, "  %-24s %8d bytes\n", rng, rng.Size())
	}

	if len(rom) > 0 {
		fmt.Fprintf(out, "\nScannable: %d bytes (%.1f%% of ROM)\n",
			covered, float64(covered)*100/float64(len(rom)))
	}
	return nil
}
