package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/files"
	"github.com/eak1mov/go-deepzoom/httpsource"
	"github.com/eak1mov/go-deepzoom/mb"
	"github.com/eak1mov/go-deepzoom/pm"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

const (
	formatDZI      = "dzi"
	formatImageSet = "imageset"
	formatMBTiles  = "mbtiles"
	formatPMTiles  = "pmtiles"
	formatHTTP     = "http"
)

var errUnknownStorage = errors.New("unknown storage format")

func deduceFormat(format, path string) string {
	if format != "" {
		return format
	}
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return formatHTTP
	case strings.HasSuffix(path, ".mbtiles"):
		return formatMBTiles
	case strings.HasSuffix(path, ".pmtiles"):
		return formatPMTiles
	case strings.HasSuffix(path, ".xml"):
		return formatImageSet
	}
	return formatDZI
}

// imageName returns the file name of path without directory and extension.
func imageName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func closeFunc(v any) func() error {
	if closer, ok := v.(io.Closer); ok {
		return closer.Close
	}
	return func() error { return nil }
}

// openSource opens a pyramid for reading. The returned close function must be called after use.
func openSource(ctx context.Context, format, path string) (tile.Reader, *pyramid.Descriptor, func() error, error) {
	var (
		reader tile.Reader
		d      *pyramid.Descriptor
		err    error
	)
	switch deduceFormat(format, path) {
	case formatDZI:
		reader, d, err = openDZI(path)
	case formatImageSet:
		reader, d, err = openImageSet(path)
	case formatHTTP:
		reader, d, err = openHTTP(ctx, httpClient, path)
	case formatMBTiles:
		var r *mb.Reader
		if r, err = mb.NewReader(path); err == nil {
			if d, err = r.ReadDescriptor(); err != nil {
				r.Close()
			} else {
				reader = r
			}
		}
	case formatPMTiles:
		var r *pm.Reader
		if r, err = pm.NewFileReader(path); err == nil {
			if d, err = r.ReadDescriptor(); err != nil {
				r.Close()
			} else {
				reader = r
			}
		}
	default:
		return nil, nil, nil, fmt.Errorf("%w: %q", errUnknownStorage, format)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return reader, d, closeFunc(reader), nil
}

func openDZI(path string) (tile.Reader, *pyramid.Descriptor, error) {
	img, err := dzi.ReadImageFile(path)
	if err != nil {
		return nil, nil, err
	}
	d, err := img.Descriptor()
	if err != nil {
		return nil, nil, err
	}
	r, err := files.NewReader(dzi.TilePattern(path, img.Format))
	if err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

func openImageSet(path string) (tile.Reader, *pyramid.Descriptor, error) {
	set, err := dzi.ReadImageSetFile(path)
	if err != nil {
		return nil, nil, err
	}
	d, err := set.Descriptor()
	if err != nil {
		return nil, nil, err
	}
	r, err := files.NewReader(set.TilePattern(path))
	if err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

// httpClient fetches remote descriptors and their tiles.
var httpClient = &http.Client{Timeout: httpsource.DefaultTimeout}

func openHTTP(ctx context.Context, client *http.Client, url string) (tile.Reader, *pyramid.Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", httpsource.DefaultUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: %v for %v", httpsource.ErrUnexpectedStatus, resp.StatusCode, url)
	}

	img, err := dzi.ParseImage(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	d, err := img.Descriptor()
	if err != nil {
		return nil, nil, err
	}
	r, err := httpsource.NewReader(dzi.TilePattern(url, img.Format),
		httpsource.WithClient(client),
		httpsource.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

// dziWriter writes a tile tree and its .dzi descriptor on Finalize.
type dziWriter struct {
	*files.Writer
	path       string
	descriptor *pyramid.Descriptor
}

func (w *dziWriter) Finalize() error {
	if err := w.Writer.Finalize(); err != nil {
		return err
	}
	return dzi.NewImage(w.descriptor).WriteFile(w.path)
}

// createSink creates a writer storing the pyramid d. The returned close function must be called after use.
func createSink(format, path string, d *pyramid.Descriptor) (tile.Writer, func() error, error) {
	var (
		writer tile.Writer
		err    error
	)
	switch deduceFormat(format, path) {
	case formatDZI:
		var w *files.Writer
		if w, err = files.NewWriter(dzi.TilePattern(path, d.Format())); err == nil {
			writer = &dziWriter{Writer: w, path: path, descriptor: d}
		}
	case formatMBTiles:
		writer, err = mb.NewWriter(path, mb.WithDescriptor(d, imageName(path)), mb.WithLogger(slog.Default()))
	case formatPMTiles:
		writer, err = pm.NewWriter(path, pm.WithDescriptor(d, imageName(path)), pm.WithLogger(slog.Default()))
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownStorage, format)
	}
	if err != nil {
		return nil, nil, err
	}
	return writer, closeFunc(writer), nil
}
