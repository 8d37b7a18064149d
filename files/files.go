// Package files reads and writes deep zoom tile trees, where every tile is a file
// with a path like "image_files/level/column_row.ext".
package files

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/eak1mov/go-deepzoom/tile"
)

// rootDir returns the longest directory shared by all paths of the pattern.
func rootDir(pattern string) string {
	path0 := tile.FormatPattern(pattern, tile.ID{Level: 0, Column: 0, Row: 0})
	path1 := tile.FormatPattern(pattern, tile.ID{Level: 1, Column: 1, Row: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}
	return path0
}

func patternRegexp(pattern string) (*regexp.Regexp, error) {
	expr := regexp.QuoteMeta(filepath.Clean(pattern))
	expr = strings.ReplaceAll(expr, regexp.QuoteMeta(tile.LevelPlaceholder), `(?P<level>\d+)`)
	expr = strings.ReplaceAll(expr, regexp.QuoteMeta(tile.ColumnPlaceholder), `(?P<column>\d+)`)
	expr = strings.ReplaceAll(expr, regexp.QuoteMeta(tile.RowPlaceholder), `(?P<row>\d+)`)
	return regexp.Compile("^" + expr + "$")
}
