package mb

import (
	"database/sql"
	"errors"
	"log/slog"
	"maps"

	"github.com/dustin/go-humanize"
	"github.com/eak1mov/go-deepzoom/internal/meta"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// Writer implements tile.Writer interface for MBTiles format.
// Tiles are inserted in a single transaction committed by Finalize.
type Writer struct {
	db     *sql.DB
	tx     *sql.Tx
	stmt   *sql.Stmt
	logger *slog.Logger

	tiles int
	bytes uint64
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { maps.Copy(c.Metadata, metadata) }
}

// WithDescriptor stores d in the metadata table, see Reader.ReadDescriptor.
func WithDescriptor(d *pyramid.Descriptor, name string) WriterOption {
	return WithMetadata(meta.FromDescriptor(d, name))
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new Writer for writing to a MBTiles file.
// It applies given options and initializes database for writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (w *Writer, err error) {
	config := writerConfig{
		Metadata: make(map[string]string),
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`)
	if err != nil {
		return nil, err
	}

	for k, v := range config.Metadata {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	return &Writer{db: db, tx: tx, stmt: stmt, logger: config.Logger}, nil
}

// Close releases database resources. Tiles not committed by Finalize are discarded.
func (w *Writer) Close() error {
	var txErr error
	if w.tx != nil {
		txErr = w.tx.Rollback()
		w.tx = nil
	}
	return errors.Join(w.stmt.Close(), txErr, w.db.Close())
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if _, err := w.stmt.Exec(tileID.Level, tileID.Column, tileID.Row, tileData); err != nil {
		return err
	}
	w.tiles++
	w.bytes += uint64(len(tileData))
	return nil
}

func (w *Writer) Finalize() error {
	w.logger.Debug("deepzoom: commit", "tiles", w.tiles, "size", humanize.Bytes(w.bytes))
	if err := w.tx.Commit(); err != nil {
		return err
	}
	w.tx = nil

	w.logger.Debug("deepzoom: creating index")
	_, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)")

	w.logger.Debug("deepzoom: done!")
	return err
}
