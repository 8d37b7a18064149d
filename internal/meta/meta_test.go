package meta_test

import (
	"errors"
	"testing"

	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/internal/meta"
	"github.com/eak1mov/go-deepzoom/internal/testtiles"
	"github.com/eak1mov/go-deepzoom/pyramid"
)

func TestDescriptor(t *testing.T) {
	d, err := pyramid.New(3000, 2000, pyramid.WithTileSize(510), pyramid.WithOverlap(2), pyramid.WithFormat("png"))
	if err != nil {
		t.Fatalf("pyramid.New failed: %v", err)
	}
	m := meta.FromDescriptor(d, "scan")
	if got, want := m[meta.KeyMaxZoom], "12"; got != want {
		t.Errorf("maxzoom = %v, want = %v", got, want)
	}
	got, err := meta.Descriptor(m)
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}
	if got.String() != d.String() {
		t.Errorf("Descriptor() = %v, want = %v", got, d)
	}

	delete(m, meta.KeyWidth)
	if _, err := meta.Descriptor(m); !errors.Is(err, meta.ErrInvalidMetadata) {
		t.Errorf("Descriptor(no width) error = %v", err)
	}
	m[meta.KeyWidth] = "wide"
	if _, err := meta.Descriptor(m); !errors.Is(err, meta.ErrInvalidMetadata) {
		t.Errorf("Descriptor(bad width) error = %v", err)
	}
}

func TestDescriptorImageSet(t *testing.T) {
	set := &dzi.ImageSet{
		URL:       "{l}/{c}/{r}.tif",
		TileWidth: 256,
		Width:     4096,
		Height:    4096,
		Step:      2,
		MaxZoom:   1,
		SubRect:   []float64{512, 256, 2048, 1024},
	}
	d, err := set.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}
	if got, want := d.MaxLevel(), 5; got != want {
		t.Fatalf("MaxLevel() = %v, want = %v", got, want)
	}

	m := meta.FromDescriptor(d, "hd")
	got, err := meta.Descriptor(m)
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}
	testtiles.CheckDescriptor(t, d, got)
	if got, want := got.ColumnsAtLevel(5), 16; got != want {
		t.Errorf("ColumnsAtLevel(5) = %v, want = %v", got, want)
	}

	m[meta.KeyRegions] = "[{"
	if _, err := meta.Descriptor(m); !errors.Is(err, meta.ErrInvalidMetadata) {
		t.Errorf("Descriptor(bad regions) error = %v", err)
	}
}

func TestDescriptorWithoutMaxZoom(t *testing.T) {
	d, err := pyramid.New(1000, 600)
	if err != nil {
		t.Fatalf("pyramid.New failed: %v", err)
	}
	m := meta.FromDescriptor(d, "plain")
	delete(m, meta.KeyMaxZoom)
	delete(m, meta.KeyZoomStep)
	if _, ok := m[meta.KeyRegions]; ok {
		t.Errorf("regions stored for a dense pyramid: %v", m[meta.KeyRegions])
	}
	got, err := meta.Descriptor(m)
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}
	testtiles.CheckDescriptor(t, d, got)
}
