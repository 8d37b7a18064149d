package pyramid

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/eak1mov/go-deepzoom/tile"
)

func (d *Descriptor) logStep(x float64) float64 {
	if d.step == 2 {
		return math.Log2(x)
	}
	return math.Log(x) / math.Log(float64(d.step))
}

// ScaleAtLevel returns the ratio between the image size at level and the full size.
func (d *Descriptor) ScaleAtLevel(level int) float64 {
	if level >= 0 && level < len(d.levels) {
		return d.levels[level].scale
	}
	return math.Pow(float64(d.step), float64(level-d.maxLevel))
}

// ImageSizeAtLevel returns the image size in pixels at level.
func (d *Descriptor) ImageSizeAtLevel(level int) (int, int) {
	scale := d.ScaleAtLevel(level)
	return int(math.Ceil(float64(d.width) * scale)), int(math.Ceil(float64(d.height) * scale))
}

func (d *Descriptor) ColumnsAtLevel(level int) int {
	if level >= 0 && level < len(d.levels) {
		return d.levels[level].columns
	}
	width, _ := d.ImageSizeAtLevel(level)
	return (width + d.tileSize - 1) / d.tileSize
}

func (d *Descriptor) RowsAtLevel(level int) int {
	if level >= 0 && level < len(d.levels) {
		return d.levels[level].rows
	}
	_, height := d.ImageSizeAtLevel(level)
	return (height + d.tileSize - 1) / d.tileSize
}

func (d *Descriptor) TilesAtLevel(level int) int64 {
	return int64(d.ColumnsAtLevel(level)) * int64(d.RowsAtLevel(level))
}

func (d *Descriptor) checkLevel(level int) error {
	if level < 0 || level > d.zoomLimit {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrLevelOutOfRange, level, d.zoomLimit)
	}
	return nil
}

// LevelOffset returns the index of the first tile of level.
func (d *Descriptor) LevelOffset(level int) (int64, error) {
	if err := d.checkLevel(level); err != nil {
		return 0, err
	}
	return d.levels[level].offset, nil
}

// LevelForScale converts a display scale (1 means full resolution) into a level.
func (d *Descriptor) LevelForScale(scaleRatio float64) int {
	if !(scaleRatio > 0) {
		return 0
	}
	level := float64(d.maxLevel) + math.Floor(d.logStep(scaleRatio))
	return int(min(max(level, 0), float64(d.zoomLimit)))
}

// LevelForViewport returns the lowest level that fills a viewport of the given size.
// The binding axis is the one along which the image touches the viewport edges.
func (d *Descriptor) LevelForViewport(viewportWidth, viewportHeight float64) int {
	if !(viewportWidth > 0 && viewportHeight > 0) {
		return 0
	}
	imageAspectRatio := float64(d.width) / float64(d.height)
	viewportAspectRatio := viewportWidth / viewportHeight

	level := 0
	for level < d.zoomLimit {
		width, height := d.ImageSizeAtLevel(level)
		if viewportAspectRatio > imageAspectRatio {
			if float64(height) >= viewportHeight {
				break
			}
		} else if float64(width) >= viewportWidth {
			break
		}
		level++
	}
	return level
}

func (d *Descriptor) checkTile(t tile.ID) error {
	if err := d.checkLevel(t.Level); err != nil {
		return err
	}
	info := &d.levels[t.Level]
	if t.Column < 0 || t.Column >= info.columns || t.Row < 0 || t.Row >= info.rows {
		return fmt.Errorf("%w: %v not in %vx%v grid", ErrTileOutOfRange, t, info.columns, info.rows)
	}
	return nil
}

// TileIndex maps a tile to its position in the flat tile space.
// Within a level the denser axis is stepped first.
func (d *Descriptor) TileIndex(t tile.ID) (int64, error) {
	if err := d.checkTile(t); err != nil {
		return 0, err
	}
	info := &d.levels[t.Level]
	if info.columns > info.rows {
		return info.offset + int64(info.columns)*int64(t.Row) + int64(t.Column), nil
	}
	return info.offset + int64(info.rows)*int64(t.Column) + int64(t.Row), nil
}

// TileFromIndex is the inverse of TileIndex.
func (d *Descriptor) TileFromIndex(index int64) (tile.ID, error) {
	if index < 0 || index >= d.TileCount() {
		return tile.ID{}, fmt.Errorf("%w: %v", ErrIndexOutOfRange, index)
	}
	level := sort.Search(len(d.levels), func(i int) bool {
		return d.levels[i].offset > index
	}) - 1
	info := &d.levels[level]
	index -= info.offset

	if info.columns > info.rows {
		row := index / int64(info.columns)
		column := index - row*int64(info.columns)
		return tile.ID{Level: level, Column: int(column), Row: int(row)}, nil
	}
	column := index / int64(info.rows)
	row := index - column*int64(info.rows)
	return tile.ID{Level: level, Column: int(column), Row: int(row)}, nil
}

// TileTopLeft returns the position of the tile's first pixel at its level.
// Every tile but the first in a row or column starts overlap pixels early.
func (d *Descriptor) TileTopLeft(t tile.ID) image.Point {
	x := t.Column * d.tileSize
	if t.Column > 0 {
		x -= d.overlap
	}
	y := t.Row * d.tileSize
	if t.Row > 0 {
		y -= d.overlap
	}
	return image.Pt(x, y)
}

// TileBounds returns the pixel rectangle covered by the tile at its level,
// overlap included and clipped to the level image.
func (d *Descriptor) TileBounds(t tile.ID) image.Rectangle {
	width, height := d.ImageSizeAtLevel(t.Level)
	topLeft := d.TileTopLeft(t)
	bottomRight := image.Pt(
		(t.Column+1)*d.tileSize+d.overlap,
		(t.Row+1)*d.tileSize+d.overlap,
	)
	return image.Rectangle{Min: topLeft, Max: bottomRight}.Intersect(image.Rect(0, 0, width, height))
}
