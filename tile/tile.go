// Package tile provides common tile interfaces and types.
package tile

import "fmt"

// ID represents tile coordinates in a deep zoom pyramid.
// Level 0 is the coarsest level, columns grow to the right and rows grow downwards.
type ID struct {
	Level  int
	Column int
	Row    int
}

func (t ID) Valid() bool {
	return t.Level >= 0 && t.Column >= 0 && t.Row >= 0
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d_%d", t.Level, t.Column, t.Row)
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes header and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// It returns an error if visiting fails.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}
