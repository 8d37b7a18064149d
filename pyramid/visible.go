package pyramid

import (
	"iter"
	"math"

	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// gridRect is a half-open range of columns and rows.
type gridRect struct {
	left, top, right, bottom int
}

func (g gridRect) empty() bool {
	return g.right <= g.left || g.bottom <= g.top
}

// VisibleTiles returns the tiles of level intersecting rect, where rect is given in
// pixels of that level. Tiles close to the center of rect are yielded first.
// Tiles missing from a sparse pyramid are skipped. Levels outside
// [0, ZoomLimitLevel()] yield nothing.
func (d *Descriptor) VisibleTiles(rect r2.Rect, level int) iter.Seq[tile.ID] {
	return func(yield func(tile.ID) bool) {
		if level < 0 || level > d.zoomLimit {
			return
		}
		width, height := d.ImageSizeAtLevel(level)
		bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: float64(width), Y: float64(height)})
		clipped := rect.Intersection(bounds)
		if clipped.IsEmpty() {
			return
		}

		size := float64(d.tileSize)
		area := gridRect{
			left:   int(math.Floor(clipped.X.Lo / size)),
			top:    int(math.Floor(clipped.Y.Lo / size)),
			right:  min(int(math.Ceil(clipped.X.Hi/size)), d.ColumnsAtLevel(level)),
			bottom: min(int(math.Ceil(clipped.Y.Hi/size)), d.RowsAtLevel(level)),
		}
		if area.empty() {
			return
		}

		if area == (gridRect{0, 0, 1, 1}) {
			t := tile.ID{Level: level}
			if d.TileExists(t) {
				yield(t)
			}
			return
		}

		for column, row := range quadivide(area) {
			t := tile.ID{Level: level, Column: column, Row: row}
			if d.TileExists(t) && !yield(t) {
				return
			}
		}
	}
}

// quadivide yields every cell of area once. Each pending rectangle yields its center
// cell and splits the rest into four quadrants, which are queued behind the
// rectangles already pending, so cells are discovered breadth first from the center.
func quadivide(area gridRect) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		queue := []gridRect{area}
		for len(queue) > 0 {
			a := queue[0]
			queue = queue[1:]

			x := (a.left + a.right) / 2
			y := (a.top + a.bottom) / 2
			if !yield(x, y) {
				return
			}

			quads := [4]gridRect{
				{a.left, a.top, x, y + 1},
				{x, a.top, a.right, y},
				{a.left, y + 1, x + 1, a.bottom},
				{x + 1, y, a.right, a.bottom},
			}
			for _, q := range quads {
				if !q.empty() {
					queue = append(queue, q)
				}
			}
		}
	}
}

// VisibleTilesUntilFill returns the visible tiles of every level from 0 up to
// startingLevel, coarse levels first. rect is given in full resolution pixels.
//
// Coarse tiles are requested even when finer ones cover them: up to a third more
// tiles are fetched, but the viewer never shows holes while finer tiles load.
func (d *Descriptor) VisibleTilesUntilFill(rect r2.Rect, startingLevel int) iter.Seq[tile.ID] {
	return func(yield func(tile.ID) bool) {
		for level := 0; level <= min(startingLevel, d.zoomLimit); level++ {
			scale := d.ScaleAtLevel(level)
			scaled := r2.Rect{
				X: r1.Interval{Lo: rect.X.Lo * scale, Hi: rect.X.Hi * scale},
				Y: r1.Interval{Lo: rect.Y.Lo * scale, Hi: rect.Y.Hi * scale},
			}
			for t := range d.VisibleTiles(scaled, level) {
				if !yield(t) {
					return
				}
			}
		}
	}
}
