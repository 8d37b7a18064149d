package dzi

import (
	"encoding/xml"
	"io"
	"os"
)

// SceneGraph lays out collection items on a canvas normalized to 1x1,
// origin at the top left corner.
type SceneGraph struct {
	AspectRatio float64
	Nodes       []SceneNode
}

type SceneNode struct {
	FileName string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	ZOrder   int
}

type sceneNodeXML struct {
	FileName string  `xml:"FileName"`
	X        float64 `xml:"x"`
	Y        float64 `xml:"y"`
	Width    float64 `xml:"Width"`
	Height   float64 `xml:"Height"`
	ZOrder   int     `xml:"ZOrder"`
}

type sceneGraphXML struct {
	XMLName     xml.Name       `xml:"SceneGraph"`
	Version     int            `xml:"version,attr"`
	AspectRatio float64        `xml:"AspectRatio"`
	Nodes       []sceneNodeXML `xml:"SceneNode"`
}

type metadataImageXML struct {
	sceneNodeXML
	Tag string `xml:"Tag"`
}

type metadataXML struct {
	XMLName     xml.Name           `xml:"Metadata"`
	Version     int                `xml:"version,attr"`
	AspectRatio float64            `xml:"AspectRatio"`
	Images      []metadataImageXML `xml:"Image"`
}

func (g *SceneGraph) nodesXML() []sceneNodeXML {
	nodes := make([]sceneNodeXML, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, sceneNodeXML(n))
	}
	return nodes
}

// WriteFile writes g as SparseImageSceneGraph.xml.
func (g *SceneGraph) WriteFile(path string) error {
	return writeFile(path, &sceneGraphXML{
		Version:     1,
		AspectRatio: g.AspectRatio,
		Nodes:       g.nodesXML(),
	})
}

// WriteMetadataFile writes g as Metadata.xml, the same layout with empty image tags.
func (g *SceneGraph) WriteMetadataFile(path string) error {
	x := &metadataXML{Version: 1, AspectRatio: g.AspectRatio}
	for _, n := range g.nodesXML() {
		x.Images = append(x.Images, metadataImageXML{sceneNodeXML: n})
	}
	return writeFile(path, x)
}

// ParseSceneGraph reads a SparseImageSceneGraph.xml document.
func ParseSceneGraph(r io.Reader) (*SceneGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var x sceneGraphXML
	if err := unmarshal(data, &x); err != nil {
		return nil, err
	}
	g := &SceneGraph{AspectRatio: x.AspectRatio}
	for _, n := range x.Nodes {
		g.Nodes = append(g.Nodes, SceneNode(n))
	}
	return g, nil
}

// ReadSceneGraphFile reads a SparseImageSceneGraph.xml file.
func ReadSceneGraphFile(path string) (*SceneGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSceneGraph(f)
}
