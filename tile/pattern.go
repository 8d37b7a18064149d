package tile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Placeholders recognized in tile path patterns.
const (
	LevelPlaceholder  = "{level}"
	ColumnPlaceholder = "{column}"
	RowPlaceholder    = "{row}"
)

var ErrInvalidPattern = errors.New("deepzoom: invalid tile pattern")

// ValidatePattern checks that pattern contains every placeholder.
func ValidatePattern(pattern string) error {
	for _, p := range []string{LevelPlaceholder, ColumnPlaceholder, RowPlaceholder} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidPattern, p, pattern)
		}
	}
	return nil
}

// FormatPattern substitutes the tile coordinates into pattern,
// e.g. "img_files/{level}/{column}_{row}.jpg" becomes "img_files/9/1_0.jpg".
func FormatPattern(pattern string, tileID ID) string {
	return strings.NewReplacer(
		LevelPlaceholder, strconv.Itoa(tileID.Level),
		ColumnPlaceholder, strconv.Itoa(tileID.Column),
		RowPlaceholder, strconv.Itoa(tileID.Row),
	).Replace(pattern)
}
