package model

import "fmt"

// SpriteCandidate is one plausible sprite location found by a ROM scan.
// The orchestrator is the only producer; a candidate is immutable once
// emitted.
type SpriteCandidate struct {
	// Offset is the byte offset of the compressed stream in the ROM.
	Offset int64 `json:"offset"`

	// DecompressedSize is the size of the decoded payload in bytes.
	DecompressedSize int `json:"decompressed_size"`

	// CompressedSize is the number of ROM bytes the stream consumed,
	// when the codec reported it.
	CompressedSize int `json:"compressed_size,omitempty"`

	// TileCount is DecompressedSize / 32, the whole-tile count.
	TileCount int `json:"tile_count"`

	// QualityScore is the scorer's sprite-likeness grade, 0-1.
	QualityScore float64 `json:"quality_score"`

	// PaletteHint is the sprite palette (0-7) most used by on-screen
	// OAM entries referencing this candidate's tile numbers. Nil when
	// no synchronized snapshot was supplied or no entry matched.
	PaletteHint *int `json:"palette_hint,omitempty"`
}

// OffsetHex renders the offset in the 0x form used by ROM tooling.
func (c SpriteCandidate) OffsetHex() string {
	return fmt.Sprintf("0x%X", c.Offset)
}
