package pm_test

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-deepzoom/internal/testtiles"
	"github.com/eak1mov/go-deepzoom/pm"
	"github.com/eak1mov/go-deepzoom/pm/spec"
	"github.com/eak1mov/go-deepzoom/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	for tc := range testtiles.Cases(t) {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			filePath := filepath.Join(t.TempDir(), "tiles.pmtiles")
			writer, err := pm.NewWriter(filePath,
				pm.WithDescriptor(tc.Descriptor, tc.Name),
				pm.WithMetadata(map[string]string{"description": "test"}),
			)
			require.NoError(t, err)
			defer writer.Close()

			for tileID, tileData := range tc.Tiles {
				require.NoError(t, writer.WriteTile(tileID, tileData))
			}
			require.NoError(t, writer.Finalize())

			reader, err := pm.NewFileReader(filePath)
			require.NoError(t, err)
			defer reader.Close()

			header := reader.Header()
			require.Equal(t, spec.TileTypeJpeg, header.TileType)
			require.Equal(t, uint64(len(tc.Tiles)), header.AddressedTilesCount)
			require.Equal(t, uint8(tc.Descriptor.MaxLevel()), header.MaxZoom)

			metadata, err := reader.ReadMetadata()
			require.NoError(t, err)
			require.Equal(t, tc.Name, metadata["name"])
			require.Equal(t, "test", metadata["description"])

			d, err := reader.ReadDescriptor()
			require.NoError(t, err)
			testtiles.CheckDescriptor(t, tc.Descriptor, d)

			if diff := cmp.Diff(tc.Tiles, maps.Collect(tile.IterTiles(reader))); diff != "" {
				t.Errorf("VisitTiles mismatch (-want+got):\n%v", diff)
			}

			n := 0
			for tileID, tileData := range tc.Tiles {
				got, err := reader.ReadTile(tileID)
				require.NoError(t, err)
				require.Equal(t, tileData, got, "ReadTile(%v)", tileID)
				if n++; n == 2000 {
					break
				}
			}

			got, err := reader.ReadTile(tile.ID{Level: 20, Column: 5, Row: 5})
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestLeafDirectories(t *testing.T) {
	for tc := range testtiles.Cases(t) {
		if tc.Name != "large" {
			continue
		}
		filePath := filepath.Join(t.TempDir(), "tiles.pmtiles")
		writer, err := pm.NewWriter(filePath)
		require.NoError(t, err)
		for tileID, tileData := range tc.Tiles {
			require.NoError(t, writer.WriteTile(tileID, tileData))
		}
		require.NoError(t, writer.Finalize())

		reader, err := pm.NewFileReader(filePath)
		require.NoError(t, err)
		defer reader.Close()
		header := reader.Header()
		require.NotZero(t, header.LeafDirectoryLength)
		require.Less(t, header.TileContentsCount, header.AddressedTilesCount)
		require.LessOrEqual(t, header.RootLength, uint64(spec.RootDirMaxLength))
	}
}

func TestReaderErrors(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "bad.pmtiles")
	require.NoError(t, os.WriteFile(filePath, make([]byte, 1000), 0644))
	_, err := pm.NewFileReader(filePath)
	require.True(t, errors.Is(err, spec.ErrInvalidHeader), "%v", err)

	_, err = pm.NewFileReader(filepath.Join(t.TempDir(), "missing.pmtiles"))
	require.True(t, errors.Is(err, os.ErrNotExist), "%v", err)
}

func TestVisitLocations(t *testing.T) {
	for tc := range testtiles.Cases(t) {
		if tc.Name != "wide" {
			continue
		}
		filePath := filepath.Join(t.TempDir(), "tiles.pmtiles")
		writer, err := pm.NewWriter(filePath, pm.WithDescriptor(tc.Descriptor, tc.Name))
		require.NoError(t, err)
		defer writer.Close()
		for tileID, tileData := range tc.Tiles {
			require.NoError(t, writer.WriteTile(tileID, tileData))
		}
		require.NoError(t, writer.Finalize())

		fileData, err := os.ReadFile(filePath)
		require.NoError(t, err)
		reader, err := pm.NewFileReader(filePath)
		require.NoError(t, err)
		defer reader.Close()

		got := make(map[tile.ID][]byte)
		err = reader.VisitLocations(func(tileID tile.ID, offset, length uint64) error {
			got[tileID] = fileData[offset : offset+length]
			return nil
		})
		require.NoError(t, err)
		if diff := cmp.Diff(tc.Tiles, got); diff != "" {
			t.Errorf("VisitLocations mismatch (-want+got):\n%v", diff)
		}
	}
}
