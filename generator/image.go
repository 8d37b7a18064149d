package generator

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/files"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// levelBuilder composes the tiles of one level from rows of tiles of the level above.
// Source rows are kept only until the last destination row using them is written.
type levelBuilder struct {
	g     *Generator
	d     *pyramid.Descriptor
	w     tile.Writer
	level int
	next  *levelBuilder

	sourceRows map[int][]*image.RGBA
	received   int
	row        int
}

func newLevelBuilder(g *Generator, d *pyramid.Descriptor, w tile.Writer, level int, next *levelBuilder) *levelBuilder {
	return &levelBuilder{
		g:          g,
		d:          d,
		w:          w,
		level:      level,
		next:       next,
		sourceRows: make(map[int][]*image.RGBA),
	}
}

// sourceRegion returns the pixels of the source level covering the destination tile bounds.
func (b *levelBuilder) sourceRegion(bounds image.Rectangle) image.Rectangle {
	step := b.d.Step()
	width, height := b.d.ImageSizeAtLevel(b.level + 1)
	return image.Rect(
		bounds.Min.X*step,
		bounds.Min.Y*step,
		min(bounds.Max.X*step, width),
		min(bounds.Max.Y*step, height),
	)
}

// sourceRowRange returns the range of source rows needed by the destination row.
func (b *levelBuilder) sourceRowRange(row int) (first, last int) {
	region := b.sourceRegion(b.d.TileBounds(tile.ID{Level: b.level, Row: row}))
	return region.Min.Y / b.d.TileSize(), (region.Max.Y - 1) / b.d.TileSize()
}

// push accepts the next row of source tiles and writes every destination row it completes.
func (b *levelBuilder) push(row int, tiles []*image.RGBA) error {
	b.sourceRows[row] = tiles
	b.received = row + 1

	rows := b.d.RowsAtLevel(b.level)
	for b.row < rows {
		if _, last := b.sourceRowRange(b.row); last >= b.received {
			return nil
		}
		if err := b.compose(b.row); err != nil {
			return err
		}
		b.row++
		if b.row == rows {
			break
		}
		first, _ := b.sourceRowRange(b.row)
		for r := range b.sourceRows {
			if r < first {
				delete(b.sourceRows, r)
			}
		}
	}
	clear(b.sourceRows)
	return nil
}

func (b *levelBuilder) compose(row int) error {
	size := b.d.TileSize()
	columns := b.d.ColumnsAtLevel(b.level)
	tiles := make([]*image.RGBA, columns)
	for column := range columns {
		tileID := tile.ID{Level: b.level, Column: column, Row: row}
		bounds := b.d.TileBounds(tileID)
		region := b.sourceRegion(bounds)

		assembled := image.NewRGBA(region)
		for r := region.Min.Y / size; r <= (region.Max.Y-1)/size; r++ {
			sourceRow, ok := b.sourceRows[r]
			if !ok {
				return fmt.Errorf("deepzoom: source row %v of level %v released early", r, b.level+1)
			}
			for c := region.Min.X / size; c <= (region.Max.X-1)/size; c++ {
				src := sourceRow[c]
				area := src.Bounds().Intersect(region)
				draw.Draw(assembled, area, src, area.Min, draw.Src)
			}
		}

		dst := image.NewRGBA(bounds)
		draw.BiLinear.Scale(dst, bounds, assembled, region, draw.Src, nil)
		if err := b.g.writeTile(b.w, tileID, dst); err != nil {
			return fmt.Errorf("failed to write tile %v: %w", tileID, err)
		}
		tiles[column] = dst
	}
	if b.next != nil {
		return b.next.push(row, tiles)
	}
	return nil
}

// Image writes the pyramid of img to w and finalizes w.
// Every level is written, from the full resolution level down to level 0.
func (g *Generator) Image(img image.Image, w tile.Writer) (*pyramid.Descriptor, error) {
	start := time.Now()
	srcBounds := img.Bounds()
	d, err := g.Descriptor(srcBounds.Dx(), srcBounds.Dy())
	if err != nil {
		return nil, err
	}

	top := d.MaxLevel()
	var next *levelBuilder
	for level := range top {
		next = newLevelBuilder(g, d, w, level, next)
	}

	columns := d.ColumnsAtLevel(top)
	for row := range d.RowsAtLevel(top) {
		tiles := make([]*image.RGBA, columns)
		for column := range columns {
			tileID := tile.ID{Level: top, Column: column, Row: row}
			bounds := d.TileBounds(tileID)
			t := image.NewRGBA(bounds)
			draw.Draw(t, bounds, img, srcBounds.Min.Add(bounds.Min), draw.Src)
			if err := g.writeTile(w, tileID, t); err != nil {
				return nil, fmt.Errorf("failed to write tile %v: %w", tileID, err)
			}
			tiles[column] = t
		}
		if next != nil {
			if err := next.push(row, tiles); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Finalize(); err != nil {
		return nil, err
	}
	g.logger.Info("deepzoom: pyramid generated",
		"image", d.String(), "tiles", TileCount(d), "elapsed", time.Since(start))
	return d, nil
}

// ImageFile decodes srcPath and writes its pyramid next to dziPath:
// tiles go to "<name>_files" and the descriptor to dziPath itself.
func (g *Generator) ImageFile(srcPath, dziPath string) (*pyramid.Descriptor, error) {
	img, err := codec.DecodeFile(srcPath)
	if err != nil {
		return nil, err
	}
	w, err := files.NewWriter(dzi.TilePattern(dziPath, string(g.format)))
	if err != nil {
		return nil, err
	}
	d, err := g.Image(img, w)
	if err != nil {
		return nil, err
	}
	if err := dzi.NewImage(d).WriteFile(dziPath); err != nil {
		return nil, err
	}
	return d, nil
}

// fill paints the whole img with c.
func fill(img draw.Image, c color.Color) {
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}
