// Package generator builds deep zoom pyramids from source images.
//
// The full resolution level is cut from the source raster, every lower level is
// composed from the tiles of the level above it. Tiles are written through any
// tile.Writer, so a pyramid can be stored as a tile tree, MBTiles or PMTiles.
package generator

import (
	"errors"
	"image"
	"log/slog"
	"runtime"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

var ErrUnsupportedStep = errors.New("deepzoom: unsupported step")

type Generator struct {
	tileSize int
	overlap  int
	step     int
	format   codec.Format
	quality  int
	workers  int
	logger   *slog.Logger
	progress func(tile.ID)
}

type config struct {
	TileSize int
	Overlap  int
	Step     int
	Format   codec.Format
	Quality  int
	Workers  int
	Logger   *slog.Logger
	Progress func(tile.ID)
}

type Option func(*config)

func WithTileSize(tileSize int) Option {
	return func(c *config) { c.TileSize = tileSize }
}

func WithOverlap(overlap int) Option {
	return func(c *config) { c.Overlap = overlap }
}

// WithStep sets the resolution ratio between adjacent levels.
// Collections support only the default step of 2.
func WithStep(step int) Option {
	return func(c *config) { c.Step = step }
}

func WithFormat(format codec.Format) Option {
	return func(c *config) { c.Format = format }
}

// WithQuality sets the JPEG quality, 1 to 100.
func WithQuality(quality int) Option {
	return func(c *config) { c.Quality = quality }
}

// WithWorkers limits the number of collection items processed in parallel.
func WithWorkers(workers int) Option {
	return func(c *config) { c.Workers = workers }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithProgress registers a callback invoked after every written tile.
// It may be called concurrently while a collection is generated.
func WithProgress(progress func(tile.ID)) Option {
	return func(c *config) { c.Progress = progress }
}

func New(opts ...Option) *Generator {
	c := config{
		TileSize: pyramid.DefaultTileSize,
		Overlap:  pyramid.DefaultOverlap,
		Step:     pyramid.DefaultStep,
		Format:   codec.FormatJPEG,
		Quality:  codec.DefaultQuality,
		Workers:  runtime.GOMAXPROCS(0),
		Logger:   slog.New(slog.DiscardHandler),
		Progress: func(tile.ID) {},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Generator{
		tileSize: c.TileSize,
		overlap:  c.Overlap,
		step:     c.Step,
		format:   c.Format,
		quality:  c.Quality,
		workers:  max(c.Workers, 1),
		logger:   c.Logger,
		progress: c.Progress,
	}
}

// Descriptor returns the pyramid the generator builds for an image of the given size.
func (g *Generator) Descriptor(width, height int) (*pyramid.Descriptor, error) {
	return pyramid.New(width, height,
		pyramid.WithTileSize(g.tileSize),
		pyramid.WithOverlap(g.overlap),
		pyramid.WithStep(g.step),
		pyramid.WithFormat(string(g.format)),
	)
}

// TileCount returns the number of tiles generated for d, all levels included.
func TileCount(d *pyramid.Descriptor) int64 {
	var count int64
	for level := 0; level <= d.MaxLevel(); level++ {
		count += d.TilesAtLevel(level)
	}
	return count
}

func (g *Generator) writeTile(w tile.Writer, tileID tile.ID, img image.Image) error {
	tileData, err := codec.EncodeBytes(img, g.format, g.quality)
	if err != nil {
		return err
	}
	if err := w.WriteTile(tileID, tileData); err != nil {
		return err
	}
	g.progress(tileID)
	return nil
}
