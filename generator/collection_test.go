package generator_test

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-deepzoom/codec"
	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/generator"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func memItem(name string, width, height int) generator.Item {
	return generator.Item{
		Name: name,
		Open: func() (image.Image, error) { return gradient(width, height), nil },
	}
}

func failingItem(name string) generator.Item {
	return generator.Item{
		Name: name,
		Open: func() (image.Image, error) { return nil, errors.New("unreadable") },
	}
}

func TestCollection(t *testing.T) {
	dir := t.TempDir()
	g := generator.New(generator.WithFormat(codec.FormatPNG), generator.WithWorkers(2))
	result, err := g.Collection([]generator.Item{
		memItem("a", 300, 200),
		failingItem("broken"),
		memItem("b", 100, 100),
		memItem("c", 256, 40),
	}, dir)
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}

	if len(result.Failed) != 1 || result.Failed[0].Name != "broken" {
		t.Errorf("Failed = %v, want only broken", result.Failed)
	}

	got, err := dzi.ReadCollectionFile(filepath.Join(dir, generator.CollectionFile))
	if err != nil {
		t.Fatalf("ReadCollectionFile failed: %v", err)
	}
	want := &dzi.Collection{
		MaxLevel:   7,
		TileSize:   256,
		Format:     "png",
		Quality:    0.9,
		NextItemID: 3,
		Items: []dzi.CollectionItem{
			{ID: 0, N: 0, Source: "dzc_output_images/a.xml", Width: 300, Height: 200,
				Viewport: dzi.Viewport{Width: 1, X: 0, Y: 0}},
			{ID: 1, N: 1, Source: "dzc_output_images/b.xml", Width: 100, Height: 100,
				Viewport: dzi.Viewport{Width: 3, X: -1, Y: -2.1}},
			{ID: 2, N: 2, Source: "dzc_output_images/c.xml", Width: 256, Height: 40,
				Viewport: dzi.Viewport{Width: 300.0 / 256, X: -22.0 / 256, Y: -315.0 / 256}},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("collection mismatch (-want+got):\n%v", diff)
	}
	if diff := cmp.Diff(want, result.Collection, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("result collection mismatch (-want+got):\n%v", diff)
	}

	scene, err := dzi.ReadSceneGraphFile(filepath.Join(dir, generator.SceneGraphFile))
	if err != nil {
		t.Fatalf("ReadSceneGraphFile failed: %v", err)
	}
	totalHeight := 340 * 1.05
	wantScene := &dzi.SceneGraph{
		AspectRatio: 300 / totalHeight,
		Nodes: []dzi.SceneNode{
			{FileName: "a", X: 0, Y: 0, Width: 1, Height: 200 / totalHeight, ZOrder: 1},
			{FileName: "b", X: 100.0 / 300, Y: 210 / totalHeight, Width: 100.0 / 300, Height: 100 / totalHeight, ZOrder: 2},
			{FileName: "c", X: 22.0 / 300, Y: 315 / totalHeight, Width: 256.0 / 300, Height: 40 / totalHeight, ZOrder: 3},
		},
	}
	if diff := cmp.Diff(wantScene, scene, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("scene mismatch (-want+got):\n%v", diff)
	}

	for _, name := range []string{
		generator.MetadataFile,
		"dzc_output_images/a.xml",
		"dzc_output_images/a_files/9/1_0.png",
		"dzc_output_images/b_files/0/0_0.png",
		"dzc_output_files/7/0_0.png",
		"dzc_output_files/7/1_1.png",
		"dzc_output_files/6/0_0.png",
		"dzc_output_files/0/0_0.png",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%v not written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dzc_output_files/6/1_0.png")); err == nil {
		t.Errorf("unexpected thumbnail tile 6/1_0")
	}

	thumbData, err := os.ReadFile(filepath.Join(dir, "dzc_output_files/7/1_0.png"))
	if err != nil {
		t.Fatalf("reading thumbnail failed: %v", err)
	}
	if size := decodeTile(t, thumbData).Bounds().Size(); size != image.Pt(256, 256) {
		t.Errorf("thumbnail tile size = %v, want 256x256", size)
	}
}

func TestCollectionNoUsableItems(t *testing.T) {
	dir := t.TempDir()
	result, err := generator.New().Collection([]generator.Item{failingItem("x"), failingItem("y")}, dir)
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	if result.Collection != nil || len(result.Failed) != 2 {
		t.Errorf("Collection() = %+v, want no collection and 2 failed items", result)
	}
	if _, err := os.Stat(filepath.Join(dir, generator.CollectionFile)); !os.IsNotExist(err) {
		t.Errorf("collection file written for empty collection")
	}

	result, err = generator.New().Collection(nil, dir)
	if err != nil || result.Collection != nil {
		t.Errorf("Collection(nil) = %+v, %v", result, err)
	}
}

func TestCollectionUnsupportedStep(t *testing.T) {
	_, err := generator.New(generator.WithStep(3)).Collection([]generator.Item{memItem("a", 10, 10)}, t.TempDir())
	if !errors.Is(err, generator.ErrUnsupportedStep) {
		t.Errorf("Collection error = %v, want %v", err, generator.ErrUnsupportedStep)
	}
}

func TestFileItem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.01.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating source failed: %v", err)
	}
	if err := codec.Encode(f, gradient(20, 10), codec.FormatPNG, 0); err != nil {
		t.Fatalf("encoding source failed: %v", err)
	}
	f.Close()

	item := generator.FileItem(path)
	if item.Name != "page.01" {
		t.Errorf("Name = %q, want page.01", item.Name)
	}
	img, err := item.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if size := img.Bounds().Size(); size != image.Pt(20, 10) {
		t.Errorf("image size = %v, want 20x10", size)
	}
}
