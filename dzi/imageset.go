package dzi

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// ImageSet describes an HD image pyramid: the imageset element of a pyramid.xml file.
// Its tiles are addressed by a URL template with {l}, {c} and {r} placeholders.
type ImageSet struct {
	URL         string
	TileWidth   int
	TileOverlap int
	Width       int
	Height      int
	Step        int
	MaxZoom     int
	Levels      int
	// SubRect is the populated part of a sparse image: x, y, width and height.
	SubRect []float64
}

// ImageSetFormat is the tile format of HD image sets.
const ImageSetFormat = "tif"

type imageSetFileXML struct {
	ImageSet *imageSetXML `xml:"imageset"`
}

type imageSetXML struct {
	URL         string `xml:"url,attr"`
	TileWidth   string `xml:"tileWidth,attr"`
	TileOverlap string `xml:"tileOverlap,attr"`
	Width       string `xml:"width,attr"`
	Height      string `xml:"height,attr"`
	Step        string `xml:"step,attr"`
	MaxZoom     string `xml:"maxZoom,attr"`
	SubRect     string `xml:"subRect,attr"`
	Levels      string `xml:"levels,attr"`
}

// ParseImageSet reads an HD pyramid document. The root element name is not checked.
func ParseImageSet(r io.Reader) (*ImageSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var x imageSetFileXML
	if err := unmarshal(data, &x); err != nil {
		return nil, err
	}
	if x.ImageSet == nil {
		return nil, fmt.Errorf("%w: element imageset not found", ErrInvalidDescriptor)
	}
	if x.ImageSet.URL == "" {
		return nil, fmt.Errorf("%w: attribute url not found", ErrInvalidDescriptor)
	}

	var p attrParser
	s := &ImageSet{
		URL:         x.ImageSet.URL,
		TileWidth:   p.int("tileWidth", x.ImageSet.TileWidth),
		TileOverlap: p.int("tileOverlap", x.ImageSet.TileOverlap),
		Width:       p.int("width", x.ImageSet.Width),
		Height:      p.int("height", x.ImageSet.Height),
		Step:        p.int("step", x.ImageSet.Step),
		MaxZoom:     p.int("maxZoom", x.ImageSet.MaxZoom),
	}
	if x.ImageSet.Levels != "" {
		s.Levels = p.int("levels", x.ImageSet.Levels)
	}
	if p.err != nil {
		return nil, p.err
	}

	if fields := strings.Fields(x.ImageSet.SubRect); len(fields) > 0 {
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: subRect %q", ErrInvalidDescriptor, x.ImageSet.SubRect)
		}
		for _, f := range fields {
			s.SubRect = append(s.SubRect, p.float("subRect", f))
		}
		if p.err != nil {
			return nil, p.err
		}
	}
	return s, nil
}

// ReadImageSetFile reads an HD pyramid file.
func ReadImageSetFile(path string) (*ImageSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseImageSet(f)
}

// MaxLevel returns the top level of the set. The coarsest levels, smaller than
// one tile, are not stored, so level 0 is the single tile level.
func (s *ImageSet) MaxLevel() int {
	step := max(s.Step, 2)
	levels := 0
	for size := int64(1); size < int64(max(s.Width, s.Height)); size *= int64(step) {
		levels++
	}
	skipped := int(math.Floor(math.Log(float64(s.TileWidth)) / math.Log(float64(step))))
	return levels - skipped + 1
}

// Descriptor builds the pyramid described by s.
func (s *ImageSet) Descriptor() (*pyramid.Descriptor, error) {
	maxLevel := s.MaxLevel()
	opts := []pyramid.Option{
		pyramid.WithTileSize(s.TileWidth),
		pyramid.WithOverlap(s.TileOverlap),
		pyramid.WithStep(s.Step),
		pyramid.WithZoomStep(s.MaxZoom),
		pyramid.WithFormat(ImageSetFormat),
		pyramid.WithMaxLevel(maxLevel),
	}
	if len(s.SubRect) == 4 {
		regionMax := maxLevel
		if s.Levels > 0 {
			regionMax = s.Levels
		}
		opts = append(opts, pyramid.WithRegions(
			pyramid.NewRegion(s.SubRect[0], s.SubRect[1], s.SubRect[2], s.SubRect[3], 0, regionMax),
		))
	}
	return pyramid.New(s.Width, s.Height, opts...)
}

// TilePattern resolves the URL template against the directory of descriptorPath.
func (s *ImageSet) TilePattern(descriptorPath string) string {
	dir := descriptorPath[:strings.LastIndexByte(descriptorPath, '/')+1]
	return dir + strings.NewReplacer(
		"{l}", tile.LevelPlaceholder,
		"{c}", tile.ColumnPlaceholder,
		"{r}", tile.RowPlaceholder,
	).Replace(s.URL)
}
