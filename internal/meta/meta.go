// Package meta converts pyramid descriptors to and from the key-value metadata
// stored alongside tiles in single-file tile archives.
package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/eak1mov/go-deepzoom/pyramid"
)

var ErrInvalidMetadata = errors.New("deepzoom: invalid tileset metadata")

// Metadata keys.
const (
	KeyName     = "name"
	KeyFormat   = "format"
	KeyTileSize = "tile_size"
	KeyOverlap  = "overlap"
	KeyWidth    = "width"
	KeyHeight   = "height"
	KeyStep     = "step"
	KeyMinZoom  = "minzoom"
	KeyMaxZoom  = "maxzoom"
	KeyZoomStep = "zoom_step"
	KeyRegions  = "display_rects"
)

// displayRect is the stored form of a pyramid.Region.
type displayRect struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	MinLevel int     `json:"min_level"`
	MaxLevel int     `json:"max_level"`
}

// FromDescriptor returns the metadata describing d.
func FromDescriptor(d *pyramid.Descriptor, name string) map[string]string {
	m := map[string]string{
		KeyName:     name,
		KeyFormat:   d.Format(),
		KeyTileSize: strconv.Itoa(d.TileSize()),
		KeyOverlap:  strconv.Itoa(d.Overlap()),
		KeyWidth:    strconv.Itoa(d.Width()),
		KeyHeight:   strconv.Itoa(d.Height()),
		KeyStep:     strconv.Itoa(d.Step()),
		KeyMinZoom:  "0",
		KeyMaxZoom:  strconv.Itoa(d.MaxLevel()),
		KeyZoomStep: strconv.Itoa(d.ZoomStep()),
	}
	if regions := d.Regions(); len(regions) > 0 {
		rects := make([]displayRect, 0, len(regions))
		for _, r := range regions {
			rects = append(rects, displayRect{
				X:        r.Rect.X.Lo,
				Y:        r.Rect.Y.Lo,
				Width:    r.Rect.X.Length(),
				Height:   r.Rect.Y.Length(),
				MinLevel: r.MinLevel,
				MaxLevel: r.MaxLevel,
			})
		}
		data, _ := json.Marshal(rects) // plain numbers only
		m[KeyRegions] = string(data)
	}
	return m
}

// Descriptor rebuilds the descriptor stored by FromDescriptor.
func Descriptor(m map[string]string) (*pyramid.Descriptor, error) {
	var err error
	get := func(key string) int {
		if err != nil {
			return 0
		}
		value, ok := m[key]
		if !ok {
			err = fmt.Errorf("%w: key %v not found", ErrInvalidMetadata, key)
			return 0
		}
		var v int
		v, err = strconv.Atoi(value)
		if err != nil {
			err = fmt.Errorf("%w: key %v: %w", ErrInvalidMetadata, key, err)
		}
		return v
	}

	width, height := get(KeyWidth), get(KeyHeight)
	opts := []pyramid.Option{
		pyramid.WithTileSize(get(KeyTileSize)),
		pyramid.WithOverlap(get(KeyOverlap)),
		pyramid.WithStep(get(KeyStep)),
	}
	if err != nil {
		return nil, err
	}
	if format, ok := m[KeyFormat]; ok {
		opts = append(opts, pyramid.WithFormat(format))
	}
	if _, ok := m[KeyZoomStep]; ok {
		opts = append(opts, pyramid.WithZoomStep(get(KeyZoomStep)))
	}
	if _, ok := m[KeyMaxZoom]; ok {
		opts = append(opts, pyramid.WithMaxLevel(get(KeyMaxZoom)))
	}
	if err != nil {
		return nil, err
	}
	if value, ok := m[KeyRegions]; ok {
		var rects []displayRect
		if err := json.Unmarshal([]byte(value), &rects); err != nil {
			return nil, fmt.Errorf("%w: key %v: %w", ErrInvalidMetadata, KeyRegions, err)
		}
		regions := make([]pyramid.Region, 0, len(rects))
		for _, r := range rects {
			regions = append(regions, pyramid.NewRegion(r.X, r.Y, r.Width, r.Height, r.MinLevel, r.MaxLevel))
		}
		opts = append(opts, pyramid.WithRegions(regions...))
	}
	return pyramid.New(width, height, opts...)
}
