package dzi

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/tile"
)

// Image describes a single deep zoom image (the contents of a .dzi file).
type Image struct {
	TileSize     int
	Overlap      int
	Format       string
	Width        int
	Height       int
	DisplayRects []DisplayRect
}

// DisplayRect marks a part of a sparse image, see pyramid.Region.
type DisplayRect struct {
	X, Y, Width, Height float64
	MinLevel, MaxLevel  int
}

type imageXML struct {
	XMLName      xml.Name         `xml:"Image"`
	Xmlns        string           `xml:"xmlns,attr,omitempty"`
	TileSize     string           `xml:"TileSize,attr"`
	Overlap      string           `xml:"Overlap,attr"`
	Format       string           `xml:"Format,attr"`
	Size         *sizeXML         `xml:"Size"`
	DisplayRects *displayRectsXML `xml:"DisplayRects"`
}

type sizeXML struct {
	Width  string `xml:"Width,attr"`
	Height string `xml:"Height,attr"`
}

type displayRectsXML struct {
	Items []displayRectXML `xml:"DisplayRect"`
}

type displayRectXML struct {
	MinLevel string   `xml:"MinLevel,attr"`
	MaxLevel string   `xml:"MaxLevel,attr"`
	Rect     *rectXML `xml:"Rect"`
}

type rectXML struct {
	X      string `xml:"X,attr"`
	Y      string `xml:"Y,attr"`
	Width  string `xml:"Width,attr"`
	Height string `xml:"Height,attr"`
}

// NewImage returns the descriptor file contents for d.
func NewImage(d *pyramid.Descriptor) *Image {
	img := &Image{
		TileSize: d.TileSize(),
		Overlap:  d.Overlap(),
		Format:   d.Format(),
		Width:    d.Width(),
		Height:   d.Height(),
	}
	for _, r := range d.Regions() {
		img.DisplayRects = append(img.DisplayRects, DisplayRect{
			X:        r.Rect.X.Lo,
			Y:        r.Rect.Y.Lo,
			Width:    r.Rect.X.Length(),
			Height:   r.Rect.Y.Length(),
			MinLevel: r.MinLevel,
			MaxLevel: r.MaxLevel,
		})
	}
	return img
}

// ParseImage reads a .dzi document.
func ParseImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var x imageXML
	if err := unmarshal(data, &x); err != nil {
		return nil, err
	}
	if x.Size == nil {
		return nil, fmt.Errorf("%w: element Size not found", ErrInvalidDescriptor)
	}
	if x.Format == "" {
		return nil, fmt.Errorf("%w: attribute Format not found", ErrInvalidDescriptor)
	}

	var p attrParser
	img := &Image{
		TileSize: p.int("TileSize", x.TileSize),
		Overlap:  p.int("Overlap", x.Overlap),
		Format:   x.Format,
		Width:    p.int("Width", x.Size.Width),
		Height:   p.int("Height", x.Size.Height),
	}
	if x.DisplayRects != nil {
		for _, item := range x.DisplayRects.Items {
			if item.Rect == nil {
				return nil, fmt.Errorf("%w: element Rect not found", ErrInvalidDescriptor)
			}
			img.DisplayRects = append(img.DisplayRects, DisplayRect{
				X:        p.float("X", item.Rect.X),
				Y:        p.float("Y", item.Rect.Y),
				Width:    p.float("Width", item.Rect.Width),
				Height:   p.float("Height", item.Rect.Height),
				MinLevel: p.int("MinLevel", item.MinLevel),
				MaxLevel: p.int("MaxLevel", item.MaxLevel),
			})
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return img, nil
}

// ReadImageFile reads a .dzi file.
func ReadImageFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseImage(f)
}

func (img *Image) toXML() *imageXML {
	x := &imageXML{
		Xmlns:    Namespace,
		TileSize: formatInt(img.TileSize),
		Overlap:  formatInt(img.Overlap),
		Format:   img.Format,
		Size:     &sizeXML{Width: formatInt(img.Width), Height: formatInt(img.Height)},
	}
	if len(img.DisplayRects) > 0 {
		x.DisplayRects = &displayRectsXML{}
		for _, r := range img.DisplayRects {
			x.DisplayRects.Items = append(x.DisplayRects.Items, displayRectXML{
				MinLevel: formatInt(r.MinLevel),
				MaxLevel: formatInt(r.MaxLevel),
				Rect: &rectXML{
					X:      formatFloat(r.X),
					Y:      formatFloat(r.Y),
					Width:  formatFloat(r.Width),
					Height: formatFloat(r.Height),
				},
			})
		}
	}
	return x
}

// Write writes img as a .dzi document.
func (img *Image) Write(w io.Writer) error {
	data, err := marshal(img.toXML())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes img to a .dzi file.
func (img *Image) WriteFile(path string) error {
	return writeFile(path, img.toXML())
}

// Descriptor builds the pyramid described by img.
func (img *Image) Descriptor(opts ...pyramid.Option) (*pyramid.Descriptor, error) {
	regions := make([]pyramid.Region, 0, len(img.DisplayRects))
	for _, r := range img.DisplayRects {
		regions = append(regions, pyramid.NewRegion(r.X, r.Y, r.Width, r.Height, r.MinLevel, r.MaxLevel))
	}
	opts = append([]pyramid.Option{
		pyramid.WithTileSize(img.TileSize),
		pyramid.WithOverlap(img.Overlap),
		pyramid.WithFormat(img.Format),
		pyramid.WithRegions(regions...),
	}, opts...)
	return pyramid.New(img.Width, img.Height, opts...)
}

// TilePattern returns the tile path pattern of a .dzi file or URL:
// "dir/name.dzi" gives "dir/name_files/{level}/{column}_{row}.format".
func TilePattern(descriptorPath, format string) string {
	base := descriptorPath
	if i := strings.LastIndexByte(base, '.'); i > strings.LastIndexByte(base, '/') {
		base = base[:i]
	}
	return base + "_files/" + tile.LevelPlaceholder + "/" +
		tile.ColumnPlaceholder + "_" + tile.RowPlaceholder + "." + format
}
