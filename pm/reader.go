package pm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/eak1mov/go-deepzoom/internal/meta"
	"github.com/eak1mov/go-deepzoom/pm/spec"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// FileAccessFunc reads length bytes at offset of the archive.
type FileAccessFunc = func(offset, length uint64) ([]byte, error)

// Reader implements tile.Reader and tile.Visitor interfaces for PMTiles format.
// The root directory is decoded once, leaf directories are read on demand.
type Reader struct {
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *spec.Header
	root       []spec.Entry
}

// NewFileReader creates a new Reader for the given PMTiles file path.
//
// The returned Reader must be closed after use to release the file.
func NewFileReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	fileAccess := func(offset, length uint64) ([]byte, error) {
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			return nil, err
		}
		return buffer, nil
	}
	r, err := newReader(fileAccess, file.Close)
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a new Reader over an archive accessed by ranges,
// e.g. a file in a remote storage.
func NewReader(fileAccess FileAccessFunc) (*Reader, error) {
	return newReader(fileAccess, func() error { return nil })
}

func newReader(fileAccess FileAccessFunc, fileCloser func() error) (*Reader, error) {
	headerData, err := fileAccess(0, spec.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := spec.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		fileAccess: fileAccess,
		fileCloser: fileCloser,
		header:     header,
	}
	r.root, err = r.readDirectory(header.RootOffset, header.RootLength)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) Close() error {
	return r.fileCloser()
}

// Header returns a copy of the archive header.
func (r *Reader) Header() spec.Header {
	return *r.header
}

// ReadMetadata returns the JSON metadata of the archive.
// Values which are not strings are formatted with fmt.
func (r *Reader) ReadMetadata() (map[string]string, error) {
	data, err := r.fileAccess(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]string)
	if len(data) == 0 {
		return metadata, nil
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", meta.ErrInvalidMetadata, err)
	}
	for k, v := range values {
		if s, ok := v.(string); ok {
			metadata[k] = s
		} else {
			metadata[k] = fmt.Sprint(v)
		}
	}
	return metadata, nil
}

// ReadDescriptor rebuilds the pyramid descriptor stored in the metadata.
func (r *Reader) ReadDescriptor() (*pyramid.Descriptor, error) {
	metadata, err := r.ReadMetadata()
	if err != nil {
		return nil, err
	}
	return meta.Descriptor(metadata)
}

func (r *Reader) readDirectory(dirOffset, dirLength uint64) ([]spec.Entry, error) {
	dirCompressed, err := r.fileAccess(dirOffset, dirLength)
	if err != nil {
		return nil, err
	}
	dirData, err := spec.Decompress(dirCompressed, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	return spec.DeserializeDirectory(dirData)
}

// ReadTile reads a single tile. Tiles outside of the tile id space read as missing.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	tileCode, err := spec.EncodeTileID(tileID)
	if err != nil {
		return make([]byte, 0), nil
	}

	entries := r.root
	for {
		entry, found := spec.FindEntry(entries, tileCode)
		if !found {
			return make([]byte, 0), nil
		}
		if entry.RunLength > 0 {
			return r.fileAccess(r.header.TileDataOffset+entry.Offset, uint64(entry.Length))
		}
		entries, err = r.readDirectory(r.header.LeafDirectoryOffset+entry.Offset, uint64(entry.Length))
		if err != nil {
			return nil, err
		}
	}
}

func (r *Reader) visitEntries(entries []spec.Entry, visitor func(entry spec.Entry) error) error {
	for _, entry := range entries {
		if entry.RunLength > 0 {
			if err := visitor(entry); err != nil {
				return err
			}
			continue
		}
		leaf, err := r.readDirectory(r.header.LeafDirectoryOffset+entry.Offset, uint64(entry.Length))
		if err != nil {
			return err
		}
		if err := r.visitEntries(leaf, visitor); err != nil {
			return err
		}
	}
	return nil
}

// VisitTiles visits tiles in tile id order. Tiles of a run share the same data slice.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return r.visitEntries(r.root, func(entry spec.Entry) error {
		tileData, err := r.fileAccess(r.header.TileDataOffset+entry.Offset, uint64(entry.Length))
		if err != nil {
			return err
		}
		for i := range entry.RunLength {
			if err := visitor(spec.DecodeTileID(entry.TileCode+uint64(i)), tileData); err != nil {
				return err
			}
		}
		return nil
	})
}

// VisitLocations visits the byte range of every tile within the archive file, in tile id order.
// Tile data is not read.
func (r *Reader) VisitLocations(visitor func(tileID tile.ID, offset, length uint64) error) error {
	return r.visitEntries(r.root, func(entry spec.Entry) error {
		offset := r.header.TileDataOffset + entry.Offset
		for i := range entry.RunLength {
			if err := visitor(spec.DecodeTileID(entry.TileCode+uint64(i)), offset, uint64(entry.Length)); err != nil {
				return err
			}
		}
		return nil
	})
}
