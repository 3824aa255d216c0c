// Package main provides the entry point for the spritescan CLI.
//
// spritescan locates compressed sprite sheets in SNES ROM images.
// It maps empty ROM regions, brute-forces decompression at candidate
// offsets through a pool of external codec processes, and scores the
// results for sprite-likeness.
//
// Usage:
//
//	spritescan scan <rom>
//	spritescan regions <rom>
//
// See --help for all available options.
package main

// main is the entry point for spritescan.
func main() {
	Execute()
}
