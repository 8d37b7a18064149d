package spec_test

import (
	"cmp"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/eak1mov/go-deepzoom/pm/spec"
	gcmp "github.com/google/go-cmp/cmp"
)

func randomEntries(n int, seed uint64) []spec.Entry {
	rng := rand.New(rand.NewPCG(seed, 0))
	entries := make([]spec.Entry, 0, n)
	code, offset := uint64(0), uint64(0)
	for range n {
		code += 1 + rng.Uint64N(5)
		length := 1 + rng.Uint32N(50000)
		entries = append(entries, spec.Entry{TileCode: code, Offset: offset, Length: length, RunLength: 1})
		if rng.IntN(4) != 0 {
			offset += uint64(length)
		}
	}
	return entries
}

func TestDirectorySerializer(t *testing.T) {
	for _, n := range []int{0, 1, 100, 50000} {
		entries := randomEntries(n, uint64(n))
		deserialized, err := spec.DeserializeDirectory(spec.SerializeDirectory(entries))
		if err != nil {
			t.Fatalf("DeserializeDirectory failed: %v", err)
		}
		if diff := gcmp.Diff(entries, deserialized); diff != "" {
			t.Errorf("DeserializeDirectory(SerializeDirectory(%v entries)) mismatch (-want+got):\n%v", n, diff)
		}
	}

	data := spec.SerializeDirectory(randomEntries(10, 1))
	if _, err := spec.DeserializeDirectory(data[:len(data)-1]); !errors.Is(err, spec.ErrInvalidDirectory) {
		t.Errorf("DeserializeDirectory(truncated) error = %v", err)
	}
}

func TestCompactEntries(t *testing.T) {
	entries := []spec.Entry{
		{TileCode: 1, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 2, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 3, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 5, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 6, Offset: 10, Length: 5, RunLength: 1},
	}
	want := []spec.Entry{
		{TileCode: 1, Offset: 0, Length: 10, RunLength: 3},
		{TileCode: 5, Offset: 0, Length: 10, RunLength: 1},
		{TileCode: 6, Offset: 10, Length: 5, RunLength: 1},
	}
	if diff := gcmp.Diff(want, spec.CompactEntries(entries)); diff != "" {
		t.Errorf("CompactEntries mismatch (-want+got):\n%v", diff)
	}

	for _, tc := range []struct {
		code  uint64
		found bool
		want  uint64
	}{
		{0, false, 0},
		{1, true, 1},
		{3, true, 1},
		{4, false, 0},
		{6, true, 6},
		{7, false, 0},
	} {
		entry, found := spec.FindEntry(want, tc.code)
		if found != tc.found || entry.TileCode != tc.want {
			t.Errorf("FindEntry(%v) = %v, %v, want = %v, %v", tc.code, entry.TileCode, found, tc.want, tc.found)
		}
	}
}

func TestSerializeAll(t *testing.T) {
	entries := randomEntries(200000, 7)
	slices.SortFunc(entries, func(a, b spec.Entry) int { return cmp.Compare(a.TileCode, b.TileCode) })

	root, leaves, err := spec.SerializeAll(entries, spec.CompressionGzip)
	if err != nil {
		t.Fatalf("SerializeAll failed: %v", err)
	}
	if len(root) > spec.RootDirMaxLength {
		t.Fatalf("root directory is %v bytes", len(root))
	}
	if len(leaves) == 0 {
		t.Fatalf("no leaf directories for %v entries", len(entries))
	}

	rootData, err := spec.Decompress(root, spec.CompressionGzip)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	rootEntries, err := spec.DeserializeDirectory(rootData)
	if err != nil {
		t.Fatalf("DeserializeDirectory failed: %v", err)
	}
	var all []spec.Entry
	for _, rootEntry := range rootEntries {
		if rootEntry.RunLength != 0 {
			t.Fatalf("root entry %v is not a leaf", rootEntry)
		}
		leafData, err := spec.Decompress(leaves[rootEntry.Offset:rootEntry.Offset+uint64(rootEntry.Length)], spec.CompressionGzip)
		if err != nil {
			t.Fatalf("Decompress failed: %v", err)
		}
		leafEntries, err := spec.DeserializeDirectory(leafData)
		if err != nil {
			t.Fatalf("DeserializeDirectory failed: %v", err)
		}
		all = append(all, leafEntries...)
	}
	if diff := gcmp.Diff(entries, all); diff != "" {
		t.Errorf("leaf entries mismatch (-want+got):\n%v", diff)
	}
}
