package files

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/eak1mov/go-deepzoom/tile"
)

// Reader implements tile.Reader and tile.Visitor interfaces for tile trees.
type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
}

// NewReader creates a new Reader for the given file pattern
// (e.g. "/home/user/image_files/{level}/{column}_{row}.jpg").
func NewReader(filePattern string) (*Reader, error) {
	if err := tile.ValidatePattern(filePattern); err != nil {
		return nil, err
	}
	pathRegexp, err := patternRegexp(filePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrInvalidPattern, err)
	}
	return &Reader{filePattern, rootDir(filePattern), pathRegexp}, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	tileData, err := os.ReadFile(tile.FormatPattern(r.filePattern, tileID))
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// VisitTiles walks the tree in lexical order. Files not matching the pattern are skipped.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}
		level, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("level")])
		column, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("column")])
		row, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("row")])

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		return visitor(tile.ID{Level: level, Column: column, Row: row}, tileData)
	})
}
