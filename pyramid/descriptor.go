// Package pyramid implements deep zoom pyramid geometry: level scales, tile grids,
// flat tile indexing, sparse regions and visible tile enumeration.
//
// All methods of Descriptor are pure and safe for concurrent use.
package pyramid

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	ErrInvalidDescriptor = errors.New("deepzoom: invalid descriptor")
	ErrLevelOutOfRange   = errors.New("deepzoom: level out of range")
	ErrIndexOutOfRange   = errors.New("deepzoom: tile index out of range")
	ErrTileOutOfRange    = errors.New("deepzoom: tile out of range")
)

const (
	DefaultTileSize = 256
	DefaultOverlap  = 1
	DefaultStep     = 2
	DefaultZoomStep = 1
	DefaultFormat   = "jpg"

	// DefaultIndexLimit keeps tile indices within int32, the item index range of
	// most virtualizing item hosts.
	DefaultIndexLimit = math.MaxInt32
)

type levelInfo struct {
	scale   float64
	columns int
	rows    int
	offset  int64
}

// Descriptor describes an image pyramid. It is immutable once constructed.
type Descriptor struct {
	width    int
	height   int
	tileSize int
	overlap  int
	step     int
	zoomStep int
	format   string
	regions  []Region

	maxLevel  int
	zoomLimit int
	levels    []levelInfo
}

type config struct {
	TileSize   int
	Overlap    int
	Step       int
	ZoomStep   int
	Format     string
	Regions    []Region
	MaxLevel   int
	IndexLimit int64
}

type Option func(*config)

func WithTileSize(tileSize int) Option {
	return func(c *config) { c.TileSize = tileSize }
}

func WithOverlap(overlap int) Option {
	return func(c *config) { c.Overlap = overlap }
}

// WithStep sets the resolution ratio between adjacent levels.
func WithStep(step int) Option {
	return func(c *config) { c.Step = step }
}

// WithZoomStep sets the zoom granularity reported to viewers.
func WithZoomStep(zoomStep int) Option {
	return func(c *config) { c.ZoomStep = zoomStep }
}

// WithFormat sets the tile file extension, e.g. "jpg" or "png".
func WithFormat(format string) Option {
	return func(c *config) { c.Format = format }
}

func WithRegions(regions ...Region) Option {
	return func(c *config) { c.Regions = append(c.Regions, regions...) }
}

// WithMaxLevel overrides the computed maximum level.
// HD image sets use it, their top level is not derived from the image size alone.
func WithMaxLevel(maxLevel int) Option {
	return func(c *config) { c.MaxLevel = maxLevel }
}

// WithIndexLimit limits the total number of addressable tiles.
// Levels that do not fit are excluded from indexing, see Descriptor.ZoomLimitLevel.
func WithIndexLimit(limit int64) Option {
	return func(c *config) { c.IndexLimit = limit }
}

// New creates a Descriptor for an image of the given size in pixels.
func New(width, height int, opts ...Option) (*Descriptor, error) {
	c := config{
		TileSize:   DefaultTileSize,
		Overlap:    DefaultOverlap,
		Step:       DefaultStep,
		ZoomStep:   DefaultZoomStep,
		Format:     DefaultFormat,
		MaxLevel:   -1,
		IndexLimit: DefaultIndexLimit,
	}
	for _, opt := range opts {
		opt(&c)
	}

	switch {
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("%w: image size %vx%v", ErrInvalidDescriptor, width, height)
	case c.TileSize <= 0:
		return nil, fmt.Errorf("%w: tile size %v", ErrInvalidDescriptor, c.TileSize)
	case c.Overlap < 0:
		return nil, fmt.Errorf("%w: overlap %v", ErrInvalidDescriptor, c.Overlap)
	case c.Step < 2:
		return nil, fmt.Errorf("%w: step %v", ErrInvalidDescriptor, c.Step)
	case c.IndexLimit < 1:
		return nil, fmt.Errorf("%w: index limit %v", ErrInvalidDescriptor, c.IndexLimit)
	}
	for _, r := range c.Regions {
		if r.MinLevel > r.MaxLevel || !(r.Rect.X.Length() > 0 && r.Rect.Y.Length() > 0) {
			return nil, fmt.Errorf("%w: region %v", ErrInvalidDescriptor, r)
		}
	}

	d := &Descriptor{
		width:    width,
		height:   height,
		tileSize: c.TileSize,
		overlap:  c.Overlap,
		step:     c.Step,
		zoomStep: c.ZoomStep,
		format:   c.Format,
		regions:  slices.Clone(c.Regions),
		maxLevel: c.MaxLevel,
	}
	if d.maxLevel < 0 {
		d.maxLevel = maximumLevel(max(width, height), c.Step)
	}
	d.calculateLevels(c.IndexLimit)
	return d, nil
}

// maximumLevel returns the smallest n such that step^n >= dimension.
func maximumLevel(dimension, step int) int {
	level := 0
	for size := int64(1); size < int64(dimension); size *= int64(step) {
		level++
	}
	return level
}

func (d *Descriptor) calculateLevels(indexLimit int64) {
	d.levels = make([]levelInfo, 0, d.maxLevel+1)
	offset := int64(0)
	for level := 0; level <= d.maxLevel; level++ {
		columns := d.ColumnsAtLevel(level)
		rows := d.RowsAtLevel(level)
		count := int64(columns) * int64(rows)
		if count > indexLimit-offset {
			break
		}
		d.levels = append(d.levels, levelInfo{
			scale:   d.ScaleAtLevel(level),
			columns: columns,
			rows:    rows,
			offset:  offset,
		})
		offset += count
	}
	d.zoomLimit = len(d.levels) - 1
}

func (d *Descriptor) Width() int     { return d.width }
func (d *Descriptor) Height() int    { return d.height }
func (d *Descriptor) TileSize() int  { return d.tileSize }
func (d *Descriptor) Overlap() int   { return d.overlap }
func (d *Descriptor) Step() int      { return d.step }
func (d *Descriptor) ZoomStep() int  { return d.zoomStep }
func (d *Descriptor) Format() string { return d.format }

// Regions returns the sparse regions, nil for a fully populated pyramid.
func (d *Descriptor) Regions() []Region {
	return slices.Clone(d.regions)
}

// MaxLevel returns the full resolution level.
func (d *Descriptor) MaxLevel() int { return d.maxLevel }

// ZoomLimitLevel returns the highest level that can be addressed by a tile index.
// It equals MaxLevel unless the pyramid has more tiles than the index limit.
func (d *Descriptor) ZoomLimitLevel() int { return d.zoomLimit }

// TileCount returns the number of addressable tiles in levels 0..ZoomLimitLevel.
func (d *Descriptor) TileCount() int64 {
	last := d.levels[d.zoomLimit]
	return last.offset + int64(last.columns)*int64(last.rows)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%vx%v tile=%v overlap=%v step=%v levels=0..%v format=%v",
		d.width, d.height, d.tileSize, d.overlap, d.step, d.maxLevel, d.format)
}
