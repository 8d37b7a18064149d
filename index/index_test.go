package index_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eak1mov/go-deepzoom/index"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/go-cmp/cmp"
)

func TestWriteReadAll(t *testing.T) {
	items := []index.Item{
		index.NewItem(tile.ID{Level: 9, Column: 1, Row: 0}, 1<<40, 100),
		index.NewItem(tile.ID{Level: 0, Column: 0, Row: 0}, 127, 5),
	}
	var buf bytes.Buffer
	if err := index.WriteAll(items, &buf); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if buf.Len() != 2*index.ItemSize || index.ItemSize != 24 {
		t.Errorf("encoded size = %v, item size = %v", buf.Len(), index.ItemSize)
	}

	got, err := index.ReadAll(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("ReadAll mismatch (-want+got):\n%v", diff)
	}

	if _, err := index.ReadAll(buf.Bytes()[:30]); !errors.Is(err, index.ErrInvalidIndex) {
		t.Errorf("ReadAll of truncated index error = %v, want %v", err, index.ErrInvalidIndex)
	}
}

func TestFind(t *testing.T) {
	var items []index.Item
	for level := range 4 {
		for column := range 3 {
			for row := range 2 {
				tileID := tile.ID{Level: level, Column: column, Row: row}
				items = append(items, index.NewItem(tileID, uint64(level*100+column*10+row), 1))
			}
		}
	}
	index.Sort(items)

	item, found := index.Find(items, tile.ID{Level: 2, Column: 1, Row: 1})
	if !found || item.Offset != 211 {
		t.Errorf("Find = %v, %v, want offset 211", item, found)
	}
	if item.TileID() != (tile.ID{Level: 2, Column: 1, Row: 1}) {
		t.Errorf("TileID() = %v", item.TileID())
	}
	if _, found := index.Find(items, tile.ID{Level: 5}); found {
		t.Errorf("Find of missing tile succeeded")
	}
}
