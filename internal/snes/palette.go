package snes

// CGRAM layout constants.
const (
	// CGRAMSize is the full size of a CGRAM dump: 256 BGR555 words.
	CGRAMSize = 512

	// PaletteCount is the number of 16-color palettes in CGRAM.
	PaletteCount = 16

	// ColorsPerPalette is the number of colors in one palette.
	ColorsPerPalette = 16

	// SpritePaletteBase is the first CGRAM palette used by sprites.
	// Palettes 0-7 belong to backgrounds, 8-15 to sprites.
	SpritePaletteBase = 8
)

// Color is one decoded CGRAM color with 8 bits per channel.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Palette is one decoded 16-color palette. Index 0 is conventionally
// transparent for sprites.
type Palette [ColorsPerPalette]Color

// DecodeCGRAMPalette decodes one palette from a raw CGRAM dump.
//
// Each color is a little-endian 15-bit BGR555 word: red in bits 0-4,
// green in bits 5-9, blue in bits 10-14. Channels expand from 5 to 8 bits
// by shifting left 3, matching the original extraction tooling.
//
// An out-of-range palette index or truncated buffer yields zero (black)
// for the missing colors.
func DecodeCGRAMPalette(cgram []byte, paletteIndex int) Palette {
	var pal Palette
	if paletteIndex < 0 || paletteIndex >= PaletteCount {
		return pal
	}

	base := paletteIndex * ColorsPerPalette * 2
	for i := range ColorsPerPalette {
		off := base + i*2
		if off+1 >= len(cgram) {
			break
		}
		word := uint16(cgram[off]) | uint16(cgram[off+1])<<8
		pal[i] = Color{
			R: uint8(word&0x1F) << 3,
			G: uint8(word>>5&0x1F) << 3,
			B: uint8(word>>10&0x1F) << 3,
		}
	}
	return pal
}

// DecodeSpritePalette decodes sprite palette 0-7, i.e. CGRAM palette
// SpritePaletteBase+n.
func DecodeSpritePalette(cgram []byte, spritePalette int) Palette {
	return DecodeCGRAMPalette(cgram, SpritePaletteBase+spritePalette)
}

// GrayscalePalette returns the fallback palette used when no CGRAM dump is
// available: a linear ramp from black to white across the 16 indices.
func GrayscalePalette() Palette {
	var pal Palette
	for i := range pal {
		v := uint8(i * 255 / (ColorsPerPalette - 1))
		pal[i] = Color{R: v, G: v, B: v}
	}
	return pal
}
