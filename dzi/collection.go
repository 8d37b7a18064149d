package dzi

import (
	"encoding/xml"
	"io"
	"os"
)

// Collection describes a deep zoom collection (dzc_output.xml).
type Collection struct {
	MaxLevel   int
	TileSize   int
	Format     string
	Quality    float64
	NextItemID int
	Items      []CollectionItem
}

// CollectionItem is a collection member. Source is the path of its .xml
// descriptor relative to the collection file.
type CollectionItem struct {
	ID       int
	N        int
	Source   string
	Width    int
	Height   int
	Viewport Viewport
}

// Viewport places an item in the collection scene. Width is the scene width in
// units of the item width, X and Y are the negated item origin in the same units.
type Viewport struct {
	Width float64
	X     float64
	Y     float64
}

type collectionXML struct {
	XMLName    xml.Name            `xml:"Collection"`
	MaxLevel   int                 `xml:"MaxLevel,attr"`
	TileSize   int                 `xml:"TileSize,attr"`
	Format     string              `xml:"Format,attr"`
	Quality    float64             `xml:"Quality,attr"`
	NextItemID int                 `xml:"NextItemId,attr"`
	Xmlns      string              `xml:"xmlns,attr,omitempty"`
	Items      []collectionItemXML `xml:"Items>I"`
}

type collectionItemXML struct {
	ID       int         `xml:"Id,attr"`
	N        int         `xml:"N,attr"`
	IsPath   int         `xml:"IsPath,attr"`
	Source   string      `xml:"Source,attr"`
	Size     sizeIntXML  `xml:"Size"`
	Viewport viewportXML `xml:"Viewport"`
}

type sizeIntXML struct {
	Width  int `xml:"Width,attr"`
	Height int `xml:"Height,attr"`
}

type viewportXML struct {
	Width float64 `xml:"Width,attr"`
	X     float64 `xml:"X,attr"`
	Y     float64 `xml:"Y,attr"`
}

// ParseCollection reads a collection document.
func ParseCollection(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var x collectionXML
	if err := unmarshal(data, &x); err != nil {
		return nil, err
	}
	c := &Collection{
		MaxLevel:   x.MaxLevel,
		TileSize:   x.TileSize,
		Format:     x.Format,
		Quality:    x.Quality,
		NextItemID: x.NextItemID,
	}
	for _, item := range x.Items {
		c.Items = append(c.Items, CollectionItem{
			ID:       item.ID,
			N:        item.N,
			Source:   item.Source,
			Width:    item.Size.Width,
			Height:   item.Size.Height,
			Viewport: Viewport(item.Viewport),
		})
	}
	return c, nil
}

// ReadCollectionFile reads a collection file.
func ReadCollectionFile(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCollection(f)
}

func (c *Collection) toXML() *collectionXML {
	x := &collectionXML{
		MaxLevel:   c.MaxLevel,
		TileSize:   c.TileSize,
		Format:     c.Format,
		Quality:    c.Quality,
		NextItemID: c.NextItemID,
		Xmlns:      Namespace,
	}
	for _, item := range c.Items {
		x.Items = append(x.Items, collectionItemXML{
			ID:       item.ID,
			N:        item.N,
			IsPath:   1,
			Source:   item.Source,
			Size:     sizeIntXML{Width: item.Width, Height: item.Height},
			Viewport: viewportXML(item.Viewport),
		})
	}
	return x
}

// WriteFile writes c to a collection file.
func (c *Collection) WriteFile(path string) error {
	return writeFile(path, c.toXML())
}
