package files

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/eak1mov/go-deepzoom/tile"
)

// Writer implements tile.Writer interface for tile trees.
// It is safe for concurrent use.
type Writer struct {
	filePattern string

	mu      sync.Mutex
	dirs    map[string]struct{}
	written int
}

// NewWriter creates a new Writer for the given file pattern
// (e.g. "/home/user/image_files/{level}/{column}_{row}.jpg").
func NewWriter(filePattern string) (*Writer, error) {
	if err := tile.ValidatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern: filePattern, dirs: make(map[string]struct{})}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	filePath := tile.FormatPattern(w.filePattern, tileID)
	if err := w.makeDir(filepath.Dir(filePath)); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, tileData, 0644); err != nil {
		return err
	}
	w.mu.Lock()
	w.written++
	w.mu.Unlock()
	return nil
}

func (w *Writer) makeDir(dirPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dirPath]; ok {
		return nil
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}
	w.dirs[dirPath] = struct{}{}
	return nil
}

// Written returns the number of tiles written so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *Writer) Finalize() error {
	return nil
}
