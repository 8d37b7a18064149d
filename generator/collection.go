package generator

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/files"
	"github.com/eak1mov/go-deepzoom/morton"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// Collection output layout.
const (
	CollectionFile = "dzc_output.xml"
	ImagesDir      = "dzc_output_images"
	ThumbnailsDir  = "dzc_output_files"
	SceneGraphFile = "SparseImageSceneGraph.xml"
	MetadataFile   = "Metadata.xml"
)

// itemGap is the vertical space left below every item in the scene, relative to its height.
const itemGap = 0.05

// Item is a source image of a collection. Name must be a valid file name,
// it names the item's pyramid in the output.
type Item struct {
	Name string
	Open func() (image.Image, error)
}

// FileItem returns an item decoding the image at path, named after the file.
func FileItem(path string) Item {
	base := filepath.Base(path)
	return Item{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Open: func() (image.Image, error) { return codec.DecodeFile(path) },
	}
}

// FailedItem is an item skipped because it could not be read or written.
type FailedItem struct {
	Name string
	Err  error
}

type CollectionResult struct {
	Collection *dzi.Collection // nil if no item could be used
	Failed     []FailedItem
}

type collectionItem struct {
	name          string
	descriptor    *pyramid.Descriptor
	reader        *files.Reader
	fullPageLevel int
}

// fullPageLevel returns the highest level showing the whole image in a single tile.
func fullPageLevel(d *pyramid.Descriptor) int {
	level := d.MaxLevel()
	for level > 0 && d.TilesAtLevel(level) > 1 {
		level--
	}
	return level
}

// Collection writes a pyramid for every item into outDir, then the collection
// thumbnails and descriptors. Items that cannot be opened or written are
// skipped and reported in the result. No usable items is not an error, nothing is written then.
func (g *Generator) Collection(items []Item, outDir string) (*CollectionResult, error) {
	if g.step != 2 {
		return nil, fmt.Errorf("%w: collections require step 2, got %v", ErrUnsupportedStep, g.step)
	}
	start := time.Now()

	var (
		mu     sync.Mutex
		result = &CollectionResult{}
		built  = make([]*collectionItem, len(items))
	)
	names := uniqueNames(items)

	var group errgroup.Group
	group.SetLimit(g.workers)
	for i, item := range items {
		group.Go(func() error {
			ci, err := g.collectionItem(item, names[i], outDir)
			if err != nil {
				g.logger.Warn("deepzoom: collection item skipped", "item", item.Name, "error", err)
				mu.Lock()
				result.Failed = append(result.Failed, FailedItem{Name: item.Name, Err: err})
				mu.Unlock()
				return nil
			}
			built[i] = ci
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var collected []*collectionItem
	for _, ci := range built {
		if ci != nil {
			collected = append(collected, ci)
		}
	}
	if len(collected) == 0 {
		g.logger.Info("deepzoom: collection has no usable items", "failed", len(result.Failed))
		return result, nil
	}

	maxLevel := collected[0].fullPageLevel
	for _, ci := range collected {
		maxLevel = min(maxLevel, ci.fullPageLevel)
	}
	if err := g.thumbnails(collected, maxLevel, outDir); err != nil {
		return nil, err
	}

	collection, scene := g.layout(collected, maxLevel)
	if err := collection.WriteFile(filepath.Join(outDir, CollectionFile)); err != nil {
		return nil, err
	}
	if err := scene.WriteFile(filepath.Join(outDir, SceneGraphFile)); err != nil {
		return nil, err
	}
	if err := scene.WriteMetadataFile(filepath.Join(outDir, MetadataFile)); err != nil {
		return nil, err
	}
	result.Collection = collection

	g.logger.Info("deepzoom: collection generated",
		"items", len(collected), "failed", len(result.Failed), "max_level", maxLevel,
		"elapsed", time.Since(start))
	return result, nil
}

// uniqueNames returns item names with a numeric suffix added to repeated names.
func uniqueNames(items []Item) []string {
	seen := make(map[string]int, len(items))
	names := make([]string, len(items))
	for i, item := range items {
		name := item.Name
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%v_%v", item.Name, n)
		}
		seen[item.Name]++
		names[i] = name
	}
	return names
}

func (g *Generator) collectionItem(item Item, name, outDir string) (*collectionItem, error) {
	img, err := item.Open()
	if err != nil {
		return nil, err
	}
	imagesDir := filepath.Join(outDir, ImagesDir)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, err
	}

	pattern := dzi.TilePattern(filepath.Join(imagesDir, name+".xml"), string(g.format))
	w, err := files.NewWriter(pattern)
	if err != nil {
		return nil, err
	}
	d, err := g.Image(img, w)
	if err != nil {
		return nil, err
	}
	if err := dzi.NewImage(d).WriteFile(filepath.Join(imagesDir, name+".xml")); err != nil {
		return nil, err
	}
	r, err := files.NewReader(pattern)
	if err != nil {
		return nil, err
	}
	return &collectionItem{name: name, descriptor: d, reader: r, fullPageLevel: fullPageLevel(d)}, nil
}

// thumbnails writes the collection levels 0..maxLevel. A collection tile at level
// maxLevel holds one item, every level below holds twice as many items per side.
// Items are placed along the Morton curve.
func (g *Generator) thumbnails(items []*collectionItem, maxLevel int, outDir string) error {
	pattern := filepath.Join(outDir, ThumbnailsDir, tile.LevelPlaceholder,
		tile.ColumnPlaceholder+"_"+tile.RowPlaceholder+"."+string(g.format))
	w, err := files.NewWriter(pattern)
	if err != nil {
		return err
	}

	columns, rows := morton.Dimensions(len(items))
	perTile := 1
	canvas := image.NewRGBA(image.Rect(0, 0, g.tileSize, g.tileSize))
	for level := maxLevel; level >= 0; level-- {
		slotSize := g.tileSize / perTile
		for column := range columns {
			for row := range rows {
				fill(canvas, color.Black)
				for slotX := range perTile {
					for slotY := range perTile {
						index := morton.Encode(uint32(column*perTile+slotX), uint32(row*perTile+slotY))
						if index >= uint64(len(items)) {
							continue
						}
						slot := image.Rect(0, 0, slotSize, slotSize).Add(image.Pt(slotX*slotSize, slotY*slotSize))
						if err := g.drawThumbnail(canvas, slot, items[index], level); err != nil {
							return err
						}
					}
				}
				tileID := tile.ID{Level: level, Column: column, Row: row}
				if err := g.writeTile(w, tileID, canvas); err != nil {
					return fmt.Errorf("failed to write tile %v: %w", tileID, err)
				}
			}
		}
		columns = max((columns+1)>>1, 1)
		rows = max((rows+1)>>1, 1)
		perTile <<= 1
	}
	return w.Finalize()
}

// drawThumbnail draws the single tile of item at level into slot, clipped to the slot.
func (g *Generator) drawThumbnail(canvas draw.Image, slot image.Rectangle, item *collectionItem, level int) error {
	if slot.Empty() {
		return nil
	}
	tileData, err := item.reader.ReadTile(tile.ID{Level: level})
	if err != nil {
		return err
	}
	if len(tileData) == 0 {
		return nil
	}
	thumb, err := codec.Decode(tileData)
	if err != nil {
		return fmt.Errorf("failed to decode thumbnail of %v: %w", item.name, err)
	}
	area := image.Rectangle{Min: slot.Min, Max: slot.Min.Add(thumb.Bounds().Size())}.Intersect(slot)
	draw.Draw(canvas, area, thumb, thumb.Bounds().Min, draw.Src)
	return nil
}

// layout stacks the items vertically, centered horizontally, in pixel units.
func (g *Generator) layout(items []*collectionItem, maxLevel int) (*dzi.Collection, *dzi.SceneGraph) {
	var maxWidth, totalHeight float64
	tops := make([]float64, len(items))
	for i, item := range items {
		width, height := float64(item.descriptor.Width()), float64(item.descriptor.Height())
		maxWidth = max(maxWidth, width)
		tops[i] = totalHeight
		totalHeight += height * (1 + itemGap)
	}

	collection := &dzi.Collection{
		MaxLevel:   maxLevel,
		TileSize:   g.tileSize,
		Format:     string(g.format),
		Quality:    float64(g.quality) / 100,
		NextItemID: len(items),
	}
	scene := &dzi.SceneGraph{AspectRatio: maxWidth / totalHeight}
	for i, item := range items {
		width, height := float64(item.descriptor.Width()), float64(item.descriptor.Height())
		left := (maxWidth - width) / 2
		top := tops[i]

		collection.Items = append(collection.Items, dzi.CollectionItem{
			ID:     i,
			N:      i,
			Source: ImagesDir + "/" + item.name + ".xml",
			Width:  item.descriptor.Width(),
			Height: item.descriptor.Height(),
			Viewport: dzi.Viewport{
				Width: maxWidth / width,
				X:     -left / width,
				Y:     -top / width,
			},
		})
		scene.Nodes = append(scene.Nodes, dzi.SceneNode{
			FileName: item.name,
			X:        left / maxWidth,
			Y:        top / totalHeight,
			Width:    width / maxWidth,
			Height:   height / totalHeight,
			ZOrder:   i + 1,
		})
	}
	return collection, scene
}
