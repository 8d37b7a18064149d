// Package pm provides API for reading and writing deep zoom tiles in PMTiles v3 format.
//
// Deep zoom level, column and row are stored as PMTiles z, x and y. With the default
// step of 2 every deep zoom level fits the 2^z grid of its PMTiles zoom level.
package pm

import (
	"bufio"
	"cmp"
	"crypto/md5"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/eak1mov/go-deepzoom/internal/meta"
	"github.com/eak1mov/go-deepzoom/pm/spec"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// Writer implements tile.Writer interface for PMTiles format.
// Identical tiles are stored once. A Writer is not safe for concurrent use.
type Writer struct {
	logger *slog.Logger
	file   *os.File
	header spec.Header

	tileWriter *bufio.Writer
	tileOffset uint64

	entries   []spec.Entry
	locations map[[16]byte]int // hash -> entry index
}

type writerConfig struct {
	Metadata map[string]string
	TileType spec.TileType
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata adds entries to the JSON metadata of the archive.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { maps.Copy(c.Metadata, metadata) }
}

// WithDescriptor stores d in the archive metadata, see Reader.ReadDescriptor.
// The header tile type is derived from the descriptor format.
func WithDescriptor(d *pyramid.Descriptor, name string) WriterOption {
	return func(c *writerConfig) {
		maps.Copy(c.Metadata, meta.FromDescriptor(d, name))
		c.TileType = tileType(d.Format())
	}
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

func tileType(format string) spec.TileType {
	switch format {
	case "jpg", "jpeg":
		return spec.TileTypeJpeg
	case "png":
		return spec.TileTypePng
	case "webp":
		return spec.TileTypeWebp
	}
	return spec.TileTypeUnknown
}

// NewWriter creates a new Writer for writing to a PMTiles file.
//
// The returned Writer must be closed after use, Finalize completes the archive.
func NewWriter(filePath string, opts ...WriterOption) (w *Writer, err error) {
	config := writerConfig{
		Metadata: make(map[string]string),
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	metadata, err := json.Marshal(config.Metadata)
	if err != nil {
		return nil, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	offset := uint64(spec.HeaderRootDirMaxLength)
	if _, err = file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err = file.Write(metadata); err != nil {
		return nil, err
	}

	header := spec.Header{
		HeaderMagic:         spec.HeaderMagicV3,
		MetadataOffset:      offset,
		MetadataLength:      uint64(len(metadata)),
		TileDataOffset:      offset + uint64(len(metadata)),
		Clustered:           true,
		InternalCompression: spec.CompressionGzip,
		TileCompression:     spec.CompressionNone,
		TileType:            config.TileType,
		MinLonE7:            -180_0000000,
		MinLatE7:            -85_0511287,
		MaxLonE7:            180_0000000,
		MaxLatE7:            85_0511287,
	}

	return &Writer{
		logger:     config.Logger,
		file:       file,
		header:     header,
		tileWriter: bufio.NewWriter(file),
		locations:  make(map[[16]byte]int),
	}, nil
}

// WriteTile stores a tile. Empty tiles are skipped.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if len(tileData) == 0 {
		return nil
	}
	tileCode, err := spec.EncodeTileID(tileID)
	if err != nil {
		return err
	}

	if w.header.AddressedTilesCount == 0 {
		w.header.MinZoom, w.header.MaxZoom = uint8(tileID.Level), uint8(tileID.Level)
	}
	w.header.MinZoom = min(w.header.MinZoom, uint8(tileID.Level))
	w.header.MaxZoom = max(w.header.MaxZoom, uint8(tileID.Level))
	w.header.AddressedTilesCount++

	digest := md5.Sum(tileData)
	if i, exists := w.locations[digest]; exists {
		w.entries = append(w.entries, spec.Entry{
			TileCode:  tileCode,
			Offset:    w.entries[i].Offset,
			Length:    w.entries[i].Length,
			RunLength: 1,
		})
		return nil
	}

	if _, err := w.tileWriter.Write(tileData); err != nil {
		return err
	}
	w.locations[digest] = len(w.entries)
	w.entries = append(w.entries, spec.Entry{
		TileCode:  tileCode,
		Offset:    w.tileOffset,
		Length:    uint32(len(tileData)),
		RunLength: 1,
	})
	w.tileOffset += uint64(len(tileData))
	return nil
}

func (w *Writer) Finalize() error {
	if w.tileWriter == nil {
		panic("deepzoom: finalize called twice")
	}

	w.logger.Debug("deepzoom: flush", "size", humanize.Bytes(w.tileOffset))
	if err := w.tileWriter.Flush(); err != nil {
		return err
	}
	w.tileWriter = nil
	w.header.TileDataLength = w.tileOffset
	w.header.TileContentsCount = uint64(len(w.locations))

	w.logger.Debug("deepzoom: sort", "entries", len(w.entries))
	slices.SortFunc(w.entries, func(a, b spec.Entry) int {
		return cmp.Compare(a.TileCode, b.TileCode)
	})
	w.entries = spec.CompactEntries(w.entries)
	w.header.TileEntriesCount = uint64(len(w.entries))

	w.logger.Debug("deepzoom: serialize")
	rootBytes, leavesBytes, err := spec.SerializeAll(w.entries, w.header.InternalCompression)
	if err != nil {
		return err
	}

	w.logger.Debug("deepzoom: write leaves", "size", humanize.Bytes(uint64(len(leavesBytes))))
	leavesOffset, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(leavesBytes); err != nil {
		return err
	}
	w.header.LeafDirectoryOffset = uint64(leavesOffset)
	w.header.LeafDirectoryLength = uint64(len(leavesBytes))

	w.logger.Debug("deepzoom: write root", "size", humanize.Bytes(uint64(len(rootBytes))))
	if _, err := w.file.WriteAt(rootBytes, spec.RootDirOffset); err != nil {
		return err
	}
	w.header.RootOffset = spec.RootDirOffset
	w.header.RootLength = uint64(len(rootBytes))

	w.logger.Debug("deepzoom: write header")
	if _, err := w.file.WriteAt(spec.SerializeHeader(&w.header), 0); err != nil {
		return err
	}

	err = w.file.Close()
	w.file = nil
	w.logger.Debug("deepzoom: done!")
	return err
}

func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
