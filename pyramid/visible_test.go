package pyramid_test

import (
	"slices"
	"testing"

	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
)

func rect(x0, y0, x1, y1 float64) r2.Rect {
	return r2.RectFromPoints(r2.Point{X: x0, Y: y0}, r2.Point{X: x1, Y: y1})
}

func gridTiles(level, left, top, right, bottom int) map[tile.ID]int {
	result := make(map[tile.ID]int)
	for column := left; column < right; column++ {
		for row := top; row < bottom; row++ {
			result[tile.ID{Level: level, Column: column, Row: row}] = 1
		}
	}
	return result
}

func countTiles(tiles []tile.ID) map[tile.ID]int {
	result := make(map[tile.ID]int)
	for _, t := range tiles {
		result[t]++
	}
	return result
}

func TestVisibleTiles(t *testing.T) {
	d := mustNew(t, 2000, 1000, pyramid.WithTileSize(100), pyramid.WithOverlap(0))
	testCases := []struct {
		name  string
		rect  r2.Rect
		level int
		want  map[tile.ID]int
	}{
		{"full", rect(0, 0, 2000, 1000), 11, gridTiles(11, 0, 0, 20, 10)},
		{"partial", rect(150, 250, 451, 351), 11, gridTiles(11, 1, 2, 5, 4)},
		{"exact edges", rect(100, 100, 300, 200), 11, gridTiles(11, 1, 1, 3, 2)},
		{"clipped", rect(-500, -500, 50, 50), 11, gridTiles(11, 0, 0, 1, 1)},
		{"beyond", rect(1950, 950, 5000, 5000), 11, gridTiles(11, 19, 9, 20, 10)},
		{"coarse level", rect(0, 0, 1000, 1000), 10, gridTiles(10, 0, 0, 10, 5)},
		{"outside", rect(3000, 3000, 4000, 4000), 11, map[tile.ID]int{}},
		{"negative level", rect(0, 0, 10, 10), -1, map[tile.ID]int{}},
		{"above max level", rect(0, 0, 2000, 1000), 12, map[tile.ID]int{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := countTiles(slices.Collect(d.VisibleTiles(tc.rect, tc.level)))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("VisibleTiles mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestVisibleTilesCenterFirst(t *testing.T) {
	d := mustNew(t, 2000, 1000, pyramid.WithTileSize(100))
	tiles := slices.Collect(d.VisibleTiles(rect(0, 0, 2000, 1000), 11))
	if len(tiles) == 0 {
		t.Fatalf("VisibleTiles returned no tiles")
	}
	if got, want := tiles[0], (tile.ID{Level: 11, Column: 10, Row: 5}); got != want {
		t.Errorf("first tile = %v, want = %v", got, want)
	}

	var firstFive []tile.ID
	for tileID := range d.VisibleTiles(rect(0, 0, 2000, 1000), 11) {
		firstFive = append(firstFive, tileID)
		if len(firstFive) == 5 {
			break
		}
	}
	if diff := cmp.Diff(tiles[:5], firstFive); diff != "" {
		t.Errorf("restarted VisibleTiles mismatch (-want+got):\n%v", diff)
	}
}

func TestVisibleTilesSparse(t *testing.T) {
	d := mustNew(t, 1024, 1024,
		pyramid.WithRegions(pyramid.NewRegion(0, 0, 256, 256, 5, 10)),
	)
	got := countTiles(slices.Collect(d.VisibleTiles(rect(0, 0, 1024, 1024), 10)))
	if diff := cmp.Diff(gridTiles(10, 0, 0, 1, 1), got); diff != "" {
		t.Errorf("VisibleTiles mismatch (-want+got):\n%v", diff)
	}
	if got := slices.Collect(d.VisibleTiles(rect(0, 0, 16, 16), 4)); len(got) != 0 {
		t.Errorf("VisibleTiles outside region levels = %v, want none", got)
	}
}

func TestVisibleTilesZoomLimit(t *testing.T) {
	d := mustNew(t, 512, 512, pyramid.WithIndexLimit(12))
	if got, want := d.ZoomLimitLevel(), 8; got != want {
		t.Fatalf("ZoomLimitLevel() = %v, want = %v", got, want)
	}
	if got := slices.Collect(d.VisibleTiles(rect(0, 0, 256, 256), 8)); len(got) != 1 {
		t.Errorf("VisibleTiles(level 8) = %v, want 1 tile", got)
	}
	if got := slices.Collect(d.VisibleTiles(rect(0, 0, 512, 512), d.ZoomLimitLevel()+1)); len(got) != 0 {
		t.Errorf("VisibleTiles(level above zoom limit) = %v, want none", got)
	}
	for tileID := range d.VisibleTiles(rect(0, 0, 256, 256), d.ZoomLimitLevel()) {
		if _, err := d.TileIndex(tileID); err != nil {
			t.Errorf("TileIndex(%v) failed: %v", tileID, err)
		}
	}
}

func TestVisibleTilesUntilFill(t *testing.T) {
	d := mustNew(t, 512, 512)
	tiles := slices.Collect(d.VisibleTilesUntilFill(rect(0, 0, 512, 512), 9))

	want := gridTiles(9, 0, 0, 2, 2)
	for level := range 9 {
		want[tile.ID{Level: level}] = 1
	}
	if diff := cmp.Diff(want, countTiles(tiles)); diff != "" {
		t.Errorf("VisibleTilesUntilFill mismatch (-want+got):\n%v", diff)
	}
	if !slices.IsSortedFunc(tiles, func(a, b tile.ID) int { return a.Level - b.Level }) {
		t.Errorf("VisibleTilesUntilFill levels are not ascending: %v", tiles)
	}

	if got := slices.Collect(d.VisibleTilesUntilFill(rect(0, 0, 512, 512), 20)); len(got) != len(tiles) {
		t.Errorf("VisibleTilesUntilFill(20) = %v tiles, want = %v", len(got), len(tiles))
	}

	limited := mustNew(t, 512, 512, pyramid.WithIndexLimit(12))
	if got := slices.Collect(limited.VisibleTilesUntilFill(rect(0, 0, 512, 512), 9)); len(got) != 9 {
		t.Errorf("VisibleTilesUntilFill with zoom limit = %v tiles, want = 9", len(got))
	}
}
