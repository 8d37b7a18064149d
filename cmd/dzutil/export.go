package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/eak1mov/go-deepzoom/index"
	"github.com/eak1mov/go-deepzoom/pm"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type exportCmd struct {
	inputFormat     string
	inputPath       string
	outputIndexPath string
	outputTilesPath string
}

func (c *exportCmd) Name() string     { return "export_index" }
func (c *exportCmd) Synopsis() string { return "export tile locations of a pyramid" }
func (c *exportCmd) Usage() string {
	return "dzutil export_index -i <path> -o <path> [-t <path> -if <format>]\n" +
		"Without -t the input must be a PMTiles archive, locations refer to the archive itself.\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (dzi, imageset, mbtiles, pmtiles)")
	f.StringVar(&c.outputIndexPath, "o", "", "Output index file path")
	f.StringVar(&c.outputTilesPath, "t", "", "Output tiles file path")
}

// exportTiles copies all tiles into a single data file, indexed by offset within it.
func (c *exportCmd) exportTiles(reader tile.Visitor) error {
	tilesFile, err := os.Create(c.outputTilesPath)
	if err != nil {
		return err
	}
	defer tilesFile.Close()
	tilesWriter := bufio.NewWriter(tilesFile)
	tilesOffset := uint64(0)

	var items []index.Item
	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	for tileID, tileData := range tile.IterTiles(reader) {
		items = append(items, index.NewItem(tileID, tilesOffset, uint64(len(tileData))))
		if _, err := tilesWriter.Write(tileData); err != nil {
			return err
		}
		tilesOffset += uint64(len(tileData))
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()
	if err := tilesWriter.Flush(); err != nil {
		return err
	}
	return c.writeIndex(items)
}

// exportLocations indexes the tiles in place.
func (c *exportCmd) exportLocations(reader *pm.Reader) error {
	var items []index.Item
	err := reader.VisitLocations(func(tileID tile.ID, offset, length uint64) error {
		items = append(items, index.NewItem(tileID, offset, length))
		return nil
	})
	if err != nil {
		return err
	}
	return c.writeIndex(items)
}

func (c *exportCmd) writeIndex(items []index.Item) error {
	index.Sort(items)
	file, err := os.Create(c.outputIndexPath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err := errors.Join(index.WriteAll(items, w), w.Flush()); err != nil {
		file.Close()
		return err
	}
	slog.Info("index written", "tiles", len(items), "path", c.outputIndexPath)
	return file.Close()
}

func (c *exportCmd) run(ctx context.Context) error {
	reader, _, closeReader, err := openSource(ctx, c.inputFormat, c.inputPath)
	if err != nil {
		return err
	}
	defer closeReader()

	if c.outputTilesPath == "" {
		archive, ok := reader.(*pm.Reader)
		if !ok {
			return errors.New("tile locations require a pmtiles input, use -t to export tile data")
		}
		return c.exportLocations(archive)
	}
	visitor, ok := reader.(tile.Visitor)
	if !ok {
		return fmt.Errorf("%w: %v cannot be listed", errUnknownStorage, c.inputPath)
	}
	return c.exportTiles(visitor)
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputIndexPath == "" {
		slog.Error("input and output paths are required")
		return subcommands.ExitUsageError
	}
	if err := c.run(ctx); err != nil {
		slog.Error("export failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
