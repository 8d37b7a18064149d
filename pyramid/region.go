package pyramid

import (
	"fmt"
	"math"

	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/golang/geo/r2"
)

// Region is a part of a sparse image that is present at levels MinLevel..MaxLevel.
// Rect is given in full resolution pixels.
type Region struct {
	Rect     r2.Rect
	MinLevel int
	MaxLevel int
}

func NewRegion(x, y, width, height float64, minLevel, maxLevel int) Region {
	return Region{
		Rect:     r2.RectFromPoints(r2.Point{X: x, Y: y}, r2.Point{X: x + width, Y: y + height}),
		MinLevel: minLevel,
		MaxLevel: maxLevel,
	}
}

func (r Region) String() string {
	return fmt.Sprintf("[%v,%v %vx%v levels %v..%v]",
		r.Rect.X.Lo, r.Rect.Y.Lo, r.Rect.X.Length(), r.Rect.Y.Length(), r.MinLevel, r.MaxLevel)
}

func (r Region) containsLevel(level int) bool {
	return r.MinLevel <= level && level <= r.MaxLevel
}

// gridBounds returns the tile grid covered by the region at the given scale.
// Partially covered tiles are included.
func (r Region) gridBounds(scale float64, tileSize int) (minColumn, minRow, maxColumn, maxRow int) {
	size := float64(tileSize)
	minColumn = int(math.Floor(r.Rect.X.Lo * scale / size))
	minRow = int(math.Floor(r.Rect.Y.Lo * scale / size))
	maxColumn = int(math.Ceil(r.Rect.X.Hi * scale / size))
	maxRow = int(math.Ceil(r.Rect.Y.Hi * scale / size))
	return
}

// TileExists reports whether the tile is present in the pyramid.
// Without regions every tile exists.
func (d *Descriptor) TileExists(t tile.ID) bool {
	if len(d.regions) == 0 {
		return true
	}
	scale := d.ScaleAtLevel(t.Level)
	for _, r := range d.regions {
		if !r.containsLevel(t.Level) {
			continue
		}
		minColumn, minRow, maxColumn, maxRow := r.gridBounds(scale, d.tileSize)
		if minColumn <= t.Column && t.Column < maxColumn && minRow <= t.Row && t.Row < maxRow {
			return true
		}
	}
	return false
}
