// Package snes provides pure decoders for the SNES sprite-related binary
// formats: OAM sprite descriptors, CGRAM palettes, and 4bpp planar tiles.
//
// All functions in this package are stateless and safe for concurrent use.
// They never return errors: the scan orchestrator calls them over
// effectively-random candidate data, so malformed input (out-of-range
// indices, truncated buffers) yields a best-effort zero-filled result
// instead of failing.
//
// Format references:
//   - OAM: 512-byte low table (4 bytes per sprite: x low byte, y, tile,
//     attributes) followed by a 32-byte high table carrying the ninth X bit
//     and the size toggle, two bits per sprite.
//   - CGRAM: 256 little-endian BGR555 words forming 16 palettes of 16
//     colors; sprite palettes occupy palettes 8-15.
//   - Tiles: 32 bytes per 8x8 tile, four bitplanes stored as two
//     interleaved two-plane halves.
package snes
