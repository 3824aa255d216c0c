package snes

// Tile layout constants.
const (
	// TileWidth and TileHeight are the pixel dimensions of one tile.
	TileWidth  = 8
	TileHeight = 8

	// BytesPerTile is the storage size of one 4bpp tile: four bitplanes
	// of 8 bytes each.
	BytesPerTile = 32

	// tilePlaneHalf is the size of one two-plane half of a tile.
	tilePlaneHalf = 16

	// VRAMSize is the full size of a VRAM dump.
	VRAMSize = 65536
)

// TileBitmap is one decoded 8x8 tile. Each cell is a 4-bit palette index
// (0-15); cell [r][c] is row r, column c.
type TileBitmap [TileHeight][TileWidth]uint8

// Decode4bppTile decodes the tile at the given index from raw VRAM-format
// data.
//
// A tile occupies 32 bytes as two interleaved two-bitplane halves: bytes
// 0-15 hold planes 0 and 1 (two bytes per row), bytes 16-31 hold planes 2
// and 3. The pixel at column c takes bit 7-c of each of the four plane
// bytes for its row, plane 0 providing the least significant bit.
//
// An out-of-range tile index or a buffer too short for the full tile
// yields a zero-filled bitmap.
func Decode4bppTile(data []byte, tileIndex int) TileBitmap {
	var tile TileBitmap
	base := tileIndex * BytesPerTile
	if tileIndex < 0 || base+BytesPerTile > len(data) {
		return tile
	}

	for r := range TileHeight {
		p0 := data[base+r*2]
		p1 := data[base+r*2+1]
		p2 := data[base+tilePlaneHalf+r*2]
		p3 := data[base+tilePlaneHalf+r*2+1]

		for c := range TileWidth {
			bit := uint(7 - c)
			tile[r][c] = (p0>>bit)&1 |
				(p1>>bit)&1<<1 |
				(p2>>bit)&1<<2 |
				(p3>>bit)&1<<3
		}
	}
	return tile
}

// Encode4bppTile is the inverse of Decode4bppTile. Pixel values above 15
// contribute only their low 4 bits.
func Encode4bppTile(tile TileBitmap) [BytesPerTile]byte {
	var data [BytesPerTile]byte
	for r := range TileHeight {
		var p0, p1, p2, p3 byte
		for c := range TileWidth {
			px := tile[r][c] & 0x0F
			bit := uint(7 - c)
			p0 |= (px & 1) << bit
			p1 |= (px >> 1 & 1) << bit
			p2 |= (px >> 2 & 1) << bit
			p3 |= (px >> 3 & 1) << bit
		}
		data[r*2] = p0
		data[r*2+1] = p1
		data[tilePlaneHalf+r*2] = p2
		data[tilePlaneHalf+r*2+1] = p3
	}
	return data
}

// TileCount returns how many whole tiles a buffer of the given length
// holds.
func TileCount(size int) int {
	if size < 0 {
		return 0
	}
	return size / BytesPerTile
}
