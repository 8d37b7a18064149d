// Package testtiles provides synthetic tilesets for storage tests.
package testtiles

import (
	"fmt"
	"iter"
	"testing"

	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/go-cmp/cmp"
)

// Case is a named tileset with the descriptor it was built from.
type Case struct {
	Name       string
	Descriptor *pyramid.Descriptor
	Tiles      map[tile.ID][]byte
}

// Tiles returns a payload for every existing tile of d. Every dup-th tile
// repeats the payload of the level's first tile, 0 disables repeats.
func Tiles(d *pyramid.Descriptor, dup int) map[tile.ID][]byte {
	tiles := make(map[tile.ID][]byte)
	n := 0
	for level := 0; level <= d.ZoomLimitLevel(); level++ {
		for column := range d.ColumnsAtLevel(level) {
			for row := range d.RowsAtLevel(level) {
				tileID := tile.ID{Level: level, Column: column, Row: row}
				if !d.TileExists(tileID) {
					continue
				}
				n++
				if dup > 0 && n%dup == 0 {
					tiles[tileID] = fmt.Appendf(nil, "level-%v", level)
				} else {
					tiles[tileID] = fmt.Appendf(nil, "tile-%v", tileID)
				}
			}
		}
	}
	return tiles
}

// CheckDescriptor reports differences between descriptors that must address the same tiles.
func CheckDescriptor(t *testing.T, want, got *pyramid.Descriptor) {
	t.Helper()
	if got.String() != want.String() {
		t.Errorf("descriptor = %v, want = %v", got, want)
	}
	if got.ZoomStep() != want.ZoomStep() {
		t.Errorf("ZoomStep() = %v, want = %v", got.ZoomStep(), want.ZoomStep())
	}
	if diff := cmp.Diff(want.Regions(), got.Regions()); diff != "" {
		t.Errorf("Regions mismatch (-want+got):\n%v", diff)
	}
	for level := 0; level <= want.MaxLevel(); level++ {
		if got.ColumnsAtLevel(level) != want.ColumnsAtLevel(level) || got.RowsAtLevel(level) != want.RowsAtLevel(level) {
			t.Errorf("level %v grid = %vx%v, want = %vx%v", level,
				got.ColumnsAtLevel(level), got.RowsAtLevel(level), want.ColumnsAtLevel(level), want.RowsAtLevel(level))
		}
	}
}

// Cases yields the standard test tilesets, from a single tile up to a pyramid
// large enough to need leaf directories in PMTiles archives.
func Cases(t *testing.T) iter.Seq[Case] {
	return func(yield func(Case) bool) {
		t.Helper()
		for _, c := range []struct {
			name          string
			width, height int
			dup           int
			opts          []pyramid.Option
		}{
			{"single", 1, 1, 0, nil},
			{"square", 512, 512, 0, nil},
			{"wide", 5000, 300, 3, nil},
			{"sparse", 20000, 20000, 0, []pyramid.Option{
				pyramid.WithRegions(pyramid.NewRegion(1000, 1000, 3000, 2000, 0, 15)),
			}},
			{"large", 60000, 40000, 7, []pyramid.Option{pyramid.WithTileSize(254)}},
			// HD image set layout: the single tile level is level 0.
			{"imageset", 4096, 4096, 0, []pyramid.Option{
				pyramid.WithOverlap(0),
				pyramid.WithZoomStep(2),
				pyramid.WithMaxLevel(5),
				pyramid.WithRegions(pyramid.NewRegion(0, 0, 2048, 1024, 0, 5)),
			}},
		} {
			d, err := pyramid.New(c.width, c.height, c.opts...)
			if err != nil {
				t.Fatalf("pyramid.New(%v) failed: %v", c.name, err)
			}
			if !yield(Case{Name: c.name, Descriptor: d, Tiles: Tiles(d, c.dup)}) {
				return
			}
		}
	}
}
