package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-deepzoom/generator"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between pyramid storage formats" }
func (c *convertCmd) Usage() string {
	return "dzutil convert -i <path> -o <path> [-if <format> | -of <format>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (dzi, imageset, mbtiles, pmtiles)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (dzi, mbtiles, pmtiles)")
}

func (c *convertCmd) run(ctx context.Context) error {
	reader, d, closeReader, err := openSource(ctx, c.inputFormat, c.inputPath)
	if err != nil {
		return err
	}
	defer closeReader()
	visitor, ok := reader.(tile.Visitor)
	if !ok {
		return fmt.Errorf("%w: %v cannot be listed", errUnknownStorage, c.inputPath)
	}

	writer, closeWriter, err := createSink(c.outputFormat, c.outputPath, d)
	if err != nil {
		return err
	}
	defer closeWriter()

	bar := progressbar.Default(generator.TileCount(d), "converting")
	n, err := tile.Copy(writer, visitor, func(tile.ID) { bar.Add(1) })
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}
	slog.Info("pyramid converted", "tiles", n, "image", d.String())
	return nil
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		slog.Error("input and output paths are required")
		return subcommands.ExitUsageError
	}
	if err := c.run(ctx); err != nil {
		slog.Error("convert failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
