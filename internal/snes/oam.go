package snes

// OAM layout constants.
const (
	// OAMSize is the full size of an OAM dump: a 512-byte low table
	// followed by a 32-byte high table.
	OAMSize = 544

	// OAMEntryCount is the number of sprite descriptors in OAM.
	OAMEntryCount = 128

	// oamLowTableSize is the size of the low table (4 bytes per sprite).
	oamLowTableSize = 512

	// DefaultYCutoff is the Y coordinate at and beyond which a sprite is
	// considered parked offscreen. Emulator dumps commonly park unused
	// sprites at Y >= 224 (NTSC visible height).
	DefaultYCutoff = 224
)

// OAMEntry is one decoded sprite descriptor from OAM.
//
// Palette and Tile are foreign keys: Palette selects one of the eight
// sprite palettes (CGRAM palettes 8-15), Tile indexes into the sprite
// tile area of VRAM.
type OAMEntry struct {
	// Index is the sprite slot, 0-127.
	Index int

	// X is the horizontal position, 0-511. The ninth bit comes from the
	// high table.
	X int

	// Y is the vertical position, 0-255.
	Y int

	// Tile is the tile number, 0-255.
	Tile int

	// Palette is the sprite palette number, 0-7.
	Palette int

	// Priority is the layer priority, 0-3.
	Priority int

	// HFlip reports whether the sprite is mirrored horizontally.
	HFlip bool

	// VFlip reports whether the sprite is mirrored vertically.
	VFlip bool

	// SizeToggle selects the larger of the two global sprite sizes.
	SizeToggle bool
}

// DecodeOAMEntry decodes the sprite descriptor at the given index from a
// raw OAM dump.
//
// The low-table record lives at index*4: x low byte, y, tile, attributes.
// The attribute byte holds the palette in bits 0-2, the priority in bits
// 4-5, and the flip flags in bits 6-7. The high-table byte at
// 512 + index/4 contributes two bits per sprite at bit offset (index%4)*2:
// the low bit is the ninth X bit, the high bit is the size toggle.
//
// An out-of-range index or a buffer too short for the low-table record
// yields a zero-valued entry (with Index preserved). A buffer covering the
// low table but not the high table decodes with both high bits zero, which
// matches hardware behavior for a partially-written OAM.
func DecodeOAMEntry(oam []byte, index int) OAMEntry {
	entry := OAMEntry{Index: index}
	if index < 0 || index >= OAMEntryCount {
		return entry
	}

	low := index * 4
	if low+3 >= len(oam) {
		return entry
	}

	xLow := int(oam[low])
	entry.Y = int(oam[low+1])
	entry.Tile = int(oam[low+2])

	attr := oam[low+3]
	entry.Palette = int(attr & 0x07)
	entry.Priority = int(attr>>4) & 0x03
	entry.HFlip = attr&0x40 != 0
	entry.VFlip = attr&0x80 != 0

	var xMSB int
	high := oamLowTableSize + index/4
	if high < len(oam) {
		shift := uint(index%4) * 2
		bits := oam[high] >> shift
		xMSB = int(bits & 0x01)
		entry.SizeToggle = bits&0x02 != 0
	}
	entry.X = xLow | xMSB<<8

	return entry
}

// DecodeOAM decodes all 128 sprite descriptors from a raw OAM dump.
// Truncated dumps decode as far as the data allows, with the remainder
// zero-valued.
func DecodeOAM(oam []byte) []OAMEntry {
	entries := make([]OAMEntry, OAMEntryCount)
	for i := range entries {
		entries[i] = DecodeOAMEntry(oam, i)
	}
	return entries
}

// ActiveOAMEntries returns the sprite descriptors considered on-screen:
// those with Y below the cutoff. A non-positive cutoff selects
// DefaultYCutoff.
func ActiveOAMEntries(oam []byte, yCutoff int) []OAMEntry {
	if yCutoff <= 0 {
		yCutoff = DefaultYCutoff
	}

	var active []OAMEntry
	for i := range OAMEntryCount {
		entry := DecodeOAMEntry(oam, i)
		if entry.Y < yCutoff {
			active = append(active, entry)
		}
	}
	return active
}
