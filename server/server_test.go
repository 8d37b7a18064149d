package server_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eak1mov/go-deepzoom/dzi"
	"github.com/eak1mov/go-deepzoom/internal/testtiles"
	"github.com/eak1mov/go-deepzoom/pyramid"
	"github.com/eak1mov/go-deepzoom/server"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/go-cmp/cmp"
)

type mapReader map[tile.ID][]byte

func (m mapReader) ReadTile(tileID tile.ID) ([]byte, error) {
	if tileID.Level == 1 {
		return nil, errors.New("broken level")
	}
	if tileData, ok := m[tileID]; ok {
		return tileData, nil
	}
	return make([]byte, 0), nil
}

func setupTestServer(t *testing.T) (*httptest.Server, *pyramid.Descriptor, map[tile.ID][]byte) {
	t.Helper()
	d, err := pyramid.New(512, 512, pyramid.WithFormat("png"))
	if err != nil {
		t.Fatalf("pyramid.New failed: %v", err)
	}
	tiles := testtiles.Tiles(d, 0)
	delete(tiles, tile.ID{Level: 9, Column: 1, Row: 1})
	srv := httptest.NewServer(server.New(d, mapReader(tiles), server.WithName("photo")).Handler())
	t.Cleanup(srv.Close)
	return srv, d, tiles
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %v failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %v failed: %v", url, err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestDescriptorEndpoint(t *testing.T) {
	srv, d, _ := setupTestServer(t)

	status, contentType, body := get(t, srv.URL+"/photo.dzi")
	if status != http.StatusOK {
		t.Fatalf("status = %v, want %v", status, http.StatusOK)
	}
	if contentType != "application/xml" {
		t.Errorf("Content-Type = %q, want application/xml", contentType)
	}
	img, err := dzi.ParseImage(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseImage failed: %v", err)
	}
	if diff := cmp.Diff(dzi.NewImage(d), img); diff != "" {
		t.Errorf("descriptor mismatch (-want+got):\n%v", diff)
	}
}

func TestTileEndpoint(t *testing.T) {
	srv, _, tiles := setupTestServer(t)

	status, contentType, body := get(t, srv.URL+"/photo_files/9/1_0.png")
	if status != http.StatusOK {
		t.Fatalf("status = %v, want %v", status, http.StatusOK)
	}
	if contentType != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", contentType)
	}
	if diff := cmp.Diff(string(tiles[tile.ID{Level: 9, Column: 1, Row: 0}]), body); diff != "" {
		t.Errorf("tile mismatch (-want+got):\n%v", diff)
	}

	for _, tc := range []struct {
		path   string
		status int
	}{
		{"/photo_files/9/1_1.png", http.StatusNotFound},
		{"/photo_files/9/2_0.png", http.StatusNotFound},
		{"/photo_files/10/0_0.png", http.StatusNotFound},
		{"/photo_files/9/0_0.jpg", http.StatusNotFound},
		{"/photo_files/x/0_0.png", http.StatusBadRequest},
		{"/photo_files/1/0_0.png", http.StatusInternalServerError},
		{"/other.dzi", http.StatusNotFound},
	} {
		t.Run(tc.path, func(t *testing.T) {
			status, _, _ := get(t, srv.URL+tc.path)
			if status != tc.status {
				t.Errorf("status = %v, want %v", status, tc.status)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	status, contentType, body := get(t, srv.URL+"/health")
	if status != http.StatusOK {
		t.Fatalf("status = %v, want %v", status, http.StatusOK)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if !strings.Contains(body, `"status":"healthy"`) {
		t.Errorf("unexpected health response %q", body)
	}
}
