package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/generator"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type collectionCmd struct {
	outputDir  string
	tileFormat string
	quality    int
	workers    int
}

func (c *collectionCmd) Name() string     { return "collection" }
func (c *collectionCmd) Synopsis() string { return "generate a deep zoom collection from images" }
func (c *collectionCmd) Usage() string {
	return "dzutil collection -o <dir> [-format jpg|png -quality <q> -workers <n>] <image>...\n"
}
func (c *collectionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "o", "", "Output directory")
	f.StringVar(&c.tileFormat, "format", string(codec.FormatJPEG), "Tile format (jpg, png)")
	f.IntVar(&c.quality, "quality", codec.DefaultQuality, "JPEG quality")
	f.IntVar(&c.workers, "workers", 4, "Images processed in parallel")
}

func (c *collectionCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.outputDir == "" || f.NArg() == 0 {
		slog.Error("output directory and at least one image are required")
		return subcommands.ExitUsageError
	}
	format, err := codec.ParseFormat(c.tileFormat)
	if err != nil {
		slog.Error("invalid tile format", "error", err)
		return subcommands.ExitUsageError
	}

	items := make([]generator.Item, 0, f.NArg())
	for _, path := range f.Args() {
		items = append(items, generator.FileItem(path))
	}

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	g := generator.New(
		generator.WithFormat(format),
		generator.WithQuality(c.quality),
		generator.WithWorkers(c.workers),
		generator.WithLogger(slog.Default()),
		generator.WithProgress(func(tile.ID) { bar.Add(1) }),
	)
	result, err := g.Collection(items, c.outputDir)
	bar.Finish()
	fmt.Println()
	if err != nil {
		slog.Error("collection failed", "error", err)
		return subcommands.ExitFailure
	}

	for _, failed := range result.Failed {
		slog.Warn("image skipped", "name", failed.Name, "error", failed.Err)
	}
	if result.Collection == nil {
		slog.Warn("no usable images, nothing written")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
