package spec

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/hilbert"
)

var ErrTileOutOfRange = errors.New("deepzoom: tile does not fit pmtiles tile id")

// MaxLevel is the highest level addressable by a tile id.
const MaxLevel = 31

// levelStart returns the id of the first tile of level, the number of tiles
// in levels 0..level-1 of a 2^level grid pyramid.
func levelStart(level int) uint64 {
	return (1<<(2*uint(level)) - 1) / 3
}

// EncodeTileID maps a tile to its position along the Hilbert curves of successive levels.
// The grid at level L is 2^L tiles wide, which holds every deep zoom level of step 2.
func EncodeTileID(tileID tile.ID) (uint64, error) {
	if !tileID.Valid() || tileID.Level > MaxLevel {
		return 0, fmt.Errorf("%w: %v", ErrTileOutOfRange, tileID)
	}
	h, err := hilbert.NewHilbert(1 << tileID.Level)
	if err != nil {
		return 0, fmt.Errorf("%w: %v: %w", ErrTileOutOfRange, tileID, err)
	}
	code, err := h.MapInverse(tileID.Column, tileID.Row)
	if err != nil {
		return 0, fmt.Errorf("%w: %v: %w", ErrTileOutOfRange, tileID, err)
	}
	return levelStart(tileID.Level) + uint64(code), nil
}

func DecodeTileID(tileCode uint64) tile.ID {
	level := (bits.Len64(3*tileCode+1) - 1) / 2
	h, _ := hilbert.NewHilbert(1 << level)
	column, row, _ := h.Map(int(tileCode - levelStart(level)))
	return tile.ID{Level: level, Column: column, Row: row}
}
