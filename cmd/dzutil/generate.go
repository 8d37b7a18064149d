package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/generator"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type generateCmd struct {
	inputPath    string
	outputPath   string
	outputFormat string
	tileFormat   string
	quality      int
	tileSize     int
	overlap      int
	step         int
}

func (c *generateCmd) Name() string     { return "generate" }
func (c *generateCmd) Synopsis() string { return "generate a deep zoom pyramid from an image" }
func (c *generateCmd) Usage() string {
	return "dzutil generate -i <image> -o <path.dzi|path.mbtiles|path.pmtiles> [-format jpg|png -quality <q> -tile <size> -overlap <px>]\n"
}
func (c *generateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input image path")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (dzi, mbtiles, pmtiles)")
	f.StringVar(&c.tileFormat, "format", string(codec.FormatJPEG), "Tile format (jpg, png)")
	f.IntVar(&c.quality, "quality", codec.DefaultQuality, "JPEG quality")
	f.IntVar(&c.tileSize, "tile", pyramid.DefaultTileSize, "Tile size in pixels")
	f.IntVar(&c.overlap, "overlap", pyramid.DefaultOverlap, "Tile overlap in pixels")
	f.IntVar(&c.step, "step", pyramid.DefaultStep, "Resolution ratio between levels")
}

func (c *generateCmd) options() ([]generator.Option, error) {
	format, err := codec.ParseFormat(c.tileFormat)
	if err != nil {
		return nil, err
	}
	return []generator.Option{
		generator.WithFormat(format),
		generator.WithQuality(c.quality),
		generator.WithTileSize(c.tileSize),
		generator.WithOverlap(c.overlap),
		generator.WithStep(c.step),
		generator.WithLogger(slog.Default()),
	}, nil
}

func (c *generateCmd) run() error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	img, err := codec.DecodeFile(c.inputPath)
	if err != nil {
		return err
	}
	size := img.Bounds().Size()
	d, err := generator.New(opts...).Descriptor(size.X, size.Y)
	if err != nil {
		return err
	}

	writer, closeWriter, err := createSink(c.outputFormat, c.outputPath, d)
	if err != nil {
		return err
	}
	defer closeWriter()

	bar := progressbar.Default(generator.TileCount(d), "generating")
	opts = append(opts, generator.WithProgress(func(tile.ID) { bar.Add(1) }))
	if _, err := generator.New(opts...).Image(img, writer); err != nil {
		return err
	}
	bar.Finish()
	fmt.Println()
	return nil
}

func (c *generateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		slog.Error("input and output paths are required")
		return subcommands.ExitUsageError
	}
	if err := c.run(); err != nil {
		slog.Error("generate failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
