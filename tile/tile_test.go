package tile_test

import (
	"errors"
	"maps"
	"testing"

	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/go-cmp/cmp"
)

type memTiles map[tile.ID][]byte

func (m memTiles) VisitTiles(visitor func(tile.ID, []byte) error) error {
	for tileID, tileData := range m {
		if err := visitor(tileID, tileData); err != nil {
			return err
		}
	}
	return nil
}

func (m memTiles) WriteTile(tileID tile.ID, tileData []byte) error {
	m[tileID] = tileData
	return nil
}

func (m memTiles) Finalize() error { return nil }

type failingWriter struct{ memTiles }

func (failingWriter) WriteTile(tile.ID, []byte) error { return errors.New("boom") }

func TestIterTiles(t *testing.T) {
	tiles := memTiles{
		{Level: 0, Column: 0, Row: 0}: []byte("a"),
		{Level: 9, Column: 1, Row: 1}: []byte("b"),
	}
	if diff := cmp.Diff(map[tile.ID][]byte(tiles), maps.Collect(tile.IterTiles(tiles))); diff != "" {
		t.Errorf("IterTiles mismatch (-want+got):\n%v", diff)
	}

	count := 0
	for range tile.IterTiles(tiles) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("IterTiles did not stop after break, count = %v", count)
	}
}

func TestCopy(t *testing.T) {
	src := memTiles{
		{Level: 1, Column: 0, Row: 0}: []byte("x"),
		{Level: 2, Column: 1, Row: 0}: []byte("y"),
	}
	dst := memTiles{}
	visited := 0
	n, err := tile.Copy(dst, src, func(tile.ID) { visited++ })
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if n != 2 || visited != 2 {
		t.Errorf("Copy = %v (visited %v), want = 2", n, visited)
	}
	if diff := cmp.Diff(src, dst); diff != "" {
		t.Errorf("Copy mismatch (-want+got):\n%v", diff)
	}

	if _, err := tile.Copy(failingWriter{memTiles{}}, src, nil); err == nil {
		t.Errorf("Copy into failing writer succeeded")
	}
}

func TestIDString(t *testing.T) {
	if got, want := (tile.ID{Level: 12, Column: 3, Row: 4}).String(), "12/3_4"; got != want {
		t.Errorf("String() = %v, want = %v", got, want)
	}
	if (tile.ID{Level: -1}).Valid() {
		t.Errorf("negative level reported valid")
	}
}

func TestFormatPattern(t *testing.T) {
	pattern := "http://host/img_files/{level}/{column}_{row}.jpg"
	if err := tile.ValidatePattern(pattern); err != nil {
		t.Fatalf("ValidatePattern failed: %v", err)
	}
	got := tile.FormatPattern(pattern, tile.ID{Level: 11, Column: 3, Row: 40})
	if want := "http://host/img_files/11/3_40.jpg"; got != want {
		t.Errorf("FormatPattern() = %v, want = %v", got, want)
	}

	if err := tile.ValidatePattern("img/{level}/{column}.jpg"); !errors.Is(err, tile.ErrInvalidPattern) {
		t.Errorf("ValidatePattern(missing row) error = %v", err)
	}
}
