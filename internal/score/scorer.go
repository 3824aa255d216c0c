package score

import (
	"math"

	"github.com/nao1215/spritescan/internal/snes"
)

// Scoring constants. The byte-count bands were tuned against real sprite
// sheets: a drawn 4bpp tile has neither the near-zero ink of padding nor
// the saturation of noise.
const (
	// DefaultThreshold is the default acceptance threshold for Accept.
	DefaultThreshold = 0.3

	// maxTilesChecked bounds the scoring work per buffer; the first tiles
	// are representative enough.
	maxTilesChecked = 16

	// minNonZero and maxNonZero bound the non-zero byte count of a
	// plausible drawn tile.
	minNonZero = 8
	maxNonZero = 28

	// minNonFF is the minimum count of bytes that are not 0xFF,
	// rejecting solid-fill tiles.
	minNonFF = 8

	// minPairVariety and maxPairVariety bound the distinct byte-pair
	// count of a plausible tile: pure repetition sits below the band,
	// pure noise above it.
	minPairVariety = 2
	maxPairVariety = 12

	// structureWeight and varietyWeight are the per-tile awards.
	structureWeight = 1.0
	varietyWeight   = 0.5
)

// Scorer grades decompressed buffers for sprite-likeness. The zero value
// uses DefaultThreshold; Scorer is stateless and safe for concurrent use.
type Scorer struct {
	threshold float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithThreshold sets the acceptance threshold for Accept.
// Values outside (0, 1] keep the default.
func WithThreshold(threshold float64) Option {
	return func(s *Scorer) {
		if threshold > 0 && threshold <= 1 {
			s.threshold = threshold
		}
	}
}

// New creates a Scorer with the given options.
func New(opts ...Option) *Scorer {
	s := &Scorer{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the acceptance threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score grades a decompressed buffer, examining up to the first 16
// 32-byte tiles. Per tile: a full award when the non-zero byte count and
// non-0xFF byte count both sit in the drawn-tile band, and a half award
// when the distinct byte-pair count (pairs sampled every two bytes) shows
// moderate variety. The result is the accumulated award normalized by the
// maximum possible, clamped to [0, 1]. Buffers shorter than one tile
// score 0.
func (s *Scorer) Score(data []byte) float64 {
	tiles := min(snes.TileCount(len(data)), maxTilesChecked)
	if tiles == 0 {
		return 0
	}

	total := 0.0
	for i := range tiles {
		tile := data[i*snes.BytesPerTile : (i+1)*snes.BytesPerTile]

		nonZero := 0
		nonFF := 0
		for _, b := range tile {
			if b != 0x00 {
				nonZero++
			}
			if b != 0xFF {
				nonFF++
			}
		}
		if nonZero >= minNonZero && nonZero <= maxNonZero && nonFF >= minNonFF {
			total += structureWeight
		}

		var pairs [snes.BytesPerTile / 2][2]byte
		for j := 0; j < snes.BytesPerTile; j += 2 {
			pairs[j/2] = [2]byte{tile[j], tile[j+1]}
		}
		if variety := distinctPairs(pairs[:]); variety >= minPairVariety && variety <= maxPairVariety {
			total += varietyWeight
		}
	}

	quality := total / (float64(tiles) * (structureWeight + varietyWeight))
	return math.Min(math.Max(quality, 0), 1)
}

// Accept reports whether the buffer scores above the threshold.
func (s *Scorer) Accept(data []byte) bool {
	return s.Score(data) > s.threshold
}

// distinctPairs counts distinct values among the sampled byte pairs.
func distinctPairs(pairs [][2]byte) int {
	seen := make(map[[2]byte]struct{}, len(pairs))
	for _, p := range pairs {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Assessment carries diagnostic detail for a scored buffer, surfaced in
// reports. It does not feed back into Score.
type Assessment struct {
	// QualityScore is the Score result, 0-1.
	QualityScore float64 `json:"quality_score"`

	// TileCount is the whole-tile count of the buffer.
	TileCount int `json:"tile_count"`

	// TileAligned reports whether the buffer length is an exact multiple
	// of the tile size.
	TileAligned bool `json:"tile_aligned"`

	// Entropy is the Shannon entropy of the scored prefix. Graphics data
	// typically sits in the 2-6 band; padding and noise fall outside it.
	Entropy float64 `json:"entropy"`
}

// Assess scores a buffer and collects diagnostic detail about it.
func (s *Scorer) Assess(data []byte) Assessment {
	a := Assessment{
		QualityScore: s.Score(data),
		TileCount:    snes.TileCount(len(data)),
		TileAligned:  len(data) > 0 && len(data)%snes.BytesPerTile == 0,
	}

	sample := data
	if len(sample) > maxTilesChecked*snes.BytesPerTile {
		sample = sample[:maxTilesChecked*snes.BytesPerTile]
	}
	a.Entropy = sampleEntropy(sample)

	return a
}

// sampleEntropy computes Shannon entropy in bits per byte.
func sampleEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var histogram [256]int
	for _, b := range data {
		histogram[b]++
	}

	entropy := 0.0
	for _, count := range histogram {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(len(data))
		entropy -= p * math.Log2(p)
	}
	return entropy
}
