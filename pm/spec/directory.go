package spec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

var ErrInvalidDirectory = errors.New("deepzoom: invalid pmtiles directory")

// Entry is a directory entry. RunLength 0 marks a leaf directory entry,
// otherwise RunLength consecutive tile ids share the same tile data.
type Entry struct {
	TileCode  uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// SerializeDirectory stores entries sorted by TileCode as varint columns:
// delta encoded ids, run lengths, lengths, then offsets where 0 means
// "directly after the previous entry".
func SerializeDirectory(entries []Entry) []byte {
	buffer := binary.AppendUvarint(nil, uint64(len(entries)))

	lastCode := uint64(0)
	for _, entry := range entries {
		buffer = binary.AppendUvarint(buffer, entry.TileCode-lastCode)
		lastCode = entry.TileCode
	}
	for _, entry := range entries {
		buffer = binary.AppendUvarint(buffer, uint64(entry.RunLength))
	}
	for _, entry := range entries {
		buffer = binary.AppendUvarint(buffer, uint64(entry.Length))
	}
	for i, entry := range entries {
		if i > 0 && entry.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			buffer = binary.AppendUvarint(buffer, 0)
		} else {
			buffer = binary.AppendUvarint(buffer, entry.Offset+1)
		}
	}
	return buffer
}

// varintReader reads consecutive varints, remembering the first failure.
type varintReader struct {
	data []byte
	err  error
}

func (r *varintReader) next() uint64 {
	if r.err != nil {
		return 0
	}
	value, n := binary.Uvarint(r.data)
	if n <= 0 {
		r.err = fmt.Errorf("%w: truncated varint", ErrInvalidDirectory)
		return 0
	}
	r.data = r.data[n:]
	return value
}

func DeserializeDirectory(data []byte) ([]Entry, error) {
	r := varintReader{data: data}

	numEntries := r.next()
	// Every entry takes at least four bytes.
	if r.err != nil || numEntries > uint64(len(data))/4 {
		return nil, fmt.Errorf("%w: %v entries in %v bytes", ErrInvalidDirectory, numEntries, len(data))
	}
	entries := make([]Entry, numEntries)

	lastCode := uint64(0)
	for i := range entries {
		lastCode += r.next()
		entries[i].TileCode = lastCode
	}
	for i := range entries {
		entries[i].RunLength = uint32(r.next())
	}
	for i := range entries {
		entries[i].Length = uint32(r.next())
	}
	for i := range entries {
		value := r.next()
		if value == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = value - 1
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return entries, nil
}

// CompactEntries merges runs of consecutive tile ids pointing to the same data.
// entries must be sorted by TileCode. The slice is compacted in place.
func CompactEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	last := 0
	for _, entry := range entries[1:] {
		run := &entries[last]
		if entry.Offset == run.Offset && entry.TileCode == run.TileCode+uint64(run.RunLength) {
			run.RunLength++
			continue
		}
		last++
		entries[last] = entry
	}
	return entries[:last+1]
}

// FindEntry returns the entry covering tileCode, or the leaf directory entry
// that may contain it.
func FindEntry(entries []Entry, tileCode uint64) (Entry, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].TileCode > tileCode
	})
	if i == 0 {
		return Entry{}, false
	}

	entry := entries[i-1]
	if entry.RunLength == 0 || tileCode < entry.TileCode+uint64(entry.RunLength) {
		return entry, true
	}
	return Entry{}, false
}

// SerializeAll builds the compressed root directory and leaf directories.
// Leaves are introduced, and grown by 10% per attempt, until the root
// directory fits in RootDirMaxLength.
func SerializeAll(entries []Entry, compression Compression) (root, leaves []byte, err error) {
	root, err = Compress(SerializeDirectory(entries), compression)
	if err != nil || len(root) <= RootDirMaxLength {
		return root, nil, err
	}

	count := float64(len(entries))
	maxRootEntries := RootDirMaxLength * 0.9 / (float64(len(root)) / count)
	leafSize := max(count/maxRootEntries, 4096, math.Sqrt(count))

	for len(root) > RootDirMaxLength {
		var rootEntries []Entry
		leaves = leaves[:0]
		for leafEntries := range slices.Chunk(entries, int(leafSize)) {
			leaf, err := Compress(SerializeDirectory(leafEntries), compression)
			if err != nil {
				return nil, nil, err
			}
			rootEntries = append(rootEntries, Entry{
				TileCode: leafEntries[0].TileCode,
				Offset:   uint64(len(leaves)),
				Length:   uint32(len(leaf)),
			})
			leaves = append(leaves, leaf...)
		}
		if root, err = Compress(SerializeDirectory(rootEntries), compression); err != nil {
			return nil, nil, err
		}
		leafSize *= 1.1
	}
	return root, leaves, nil
}
