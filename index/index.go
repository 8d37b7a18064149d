// Package index reads and writes tile location indices: flat little-endian
// records mapping deep zoom tiles to byte ranges of a single-file archive.
// The record layout is fixed so that other tools can read it without this package.
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/eak1mov/go-deepzoom/tile"
)

var ErrInvalidIndex = errors.New("deepzoom: invalid tile index")

// Item locates a single tile: Offset and Length are absolute within the archive file.
type Item struct {
	Level  uint32
	Column uint32
	Row    uint32
	Length uint32
	Offset uint64
}

// ItemSize is the encoded size of an Item in bytes.
var ItemSize = binary.Size(Item{})

func NewItem(tileID tile.ID, offset, length uint64) Item {
	return Item{
		Level:  uint32(tileID.Level),
		Column: uint32(tileID.Column),
		Row:    uint32(tileID.Row),
		Length: uint32(length),
		Offset: offset,
	}
}

func (i Item) TileID() tile.ID {
	return tile.ID{Level: int(i.Level), Column: int(i.Column), Row: int(i.Row)}
}

func compareItems(a, b Item) int {
	if c := int(a.Level) - int(b.Level); c != 0 {
		return c
	}
	if c := int(a.Row) - int(b.Row); c != 0 {
		return c
	}
	return int(a.Column) - int(b.Column)
}

// Sort orders items by level, then row, then column, the order Find expects.
func Sort(items []Item) {
	slices.SortFunc(items, compareItems)
}

// Find looks up a tile in items sorted by Sort.
func Find(items []Item, tileID tile.ID) (Item, bool) {
	key := NewItem(tileID, 0, 0)
	i, found := slices.BinarySearchFunc(items, key, compareItems)
	if !found {
		return Item{}, false
	}
	return items[i], true
}

func WriteAll(items []Item, writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, items)
}

func ReadAll(indexData []byte) ([]Item, error) {
	if len(indexData)%ItemSize != 0 {
		return nil, fmt.Errorf("%w: size %v is not a multiple of %v", ErrInvalidIndex, len(indexData), ItemSize)
	}
	items := make([]Item, len(indexData)/ItemSize)

	err := binary.Read(bytes.NewReader(indexData), binary.LittleEndian, items)
	if err != nil {
		return nil, err
	}

	return items, nil
}
