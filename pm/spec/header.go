// Package spec implements the binary layout of PMTiles v3 archives:
// the fixed size header, tile directories and tile ids.
package spec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBrotli
	CompressionZstd
)

type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypeMvt
	TileTypePng
	TileTypeJpeg
	TileTypeWebp
	TileTypeAvif
)

// Header is the fixed size archive header. Fields are stored in order, little endian.
type Header struct {
	HeaderMagic         uint64
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

const (
	headerMagic     uint64 = 0x73656C69544D50 // "PMTiles"
	headerMagicMask uint64 = 1<<56 - 1
	HeaderMagicV3   uint64 = headerMagic | (0x03 << 56)

	HeaderLength = 127

	// The root directory must be contained in the first 16 KiB of the archive.
	HeaderRootDirMaxLength = 16 << 10
	RootDirOffset          = HeaderLength
	RootDirMaxLength       = HeaderRootDirMaxLength - HeaderLength
)

var (
	ErrInvalidHeader  = errors.New("deepzoom: invalid pmtiles header")
	ErrInvalidVersion = errors.New("deepzoom: unsupported pmtiles version")
)

func SerializeHeader(h *Header) []byte {
	le := binary.LittleEndian
	b := make([]byte, 0, HeaderLength)
	for _, v := range []uint64{
		h.HeaderMagic,
		h.RootOffset, h.RootLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirectoryOffset, h.LeafDirectoryLength,
		h.TileDataOffset, h.TileDataLength,
		h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount,
	} {
		b = le.AppendUint64(b, v)
	}
	clustered := byte(0)
	if h.Clustered {
		clustered = 1
	}
	b = append(b, clustered, byte(h.InternalCompression), byte(h.TileCompression), byte(h.TileType), h.MinZoom, h.MaxZoom)
	for _, v := range []int32{h.MinLonE7, h.MinLatE7, h.MaxLonE7, h.MaxLatE7} {
		b = le.AppendUint32(b, uint32(v))
	}
	b = append(b, h.CenterZoom)
	b = le.AppendUint32(b, uint32(h.CenterLonE7))
	b = le.AppendUint32(b, uint32(h.CenterLatE7))
	return b
}

// headerDecoder consumes a header buffer front to back.
type headerDecoder struct {
	buf []byte
}

func (d *headerDecoder) uint64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return v
}

func (d *headerDecoder) int32() int32 {
	v := binary.LittleEndian.Uint32(d.buf)
	d.buf = d.buf[4:]
	return int32(v)
}

func (d *headerDecoder) byte() byte {
	v := d.buf[0]
	d.buf = d.buf[1:]
	return v
}

func DeserializeHeader(buffer []byte) (*Header, error) {
	if len(buffer) < HeaderLength {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, io.ErrUnexpectedEOF)
	}
	d := headerDecoder{buffer[:HeaderLength]}
	h := &Header{
		HeaderMagic:         d.uint64(),
		RootOffset:          d.uint64(),
		RootLength:          d.uint64(),
		MetadataOffset:      d.uint64(),
		MetadataLength:      d.uint64(),
		LeafDirectoryOffset: d.uint64(),
		LeafDirectoryLength: d.uint64(),
		TileDataOffset:      d.uint64(),
		TileDataLength:      d.uint64(),
		AddressedTilesCount: d.uint64(),
		TileEntriesCount:    d.uint64(),
		TileContentsCount:   d.uint64(),
		Clustered:           d.byte() == 1,
		InternalCompression: Compression(d.byte()),
		TileCompression:     Compression(d.byte()),
		TileType:            TileType(d.byte()),
		MinZoom:             d.byte(),
		MaxZoom:             d.byte(),
		MinLonE7:            d.int32(),
		MinLatE7:            d.int32(),
		MaxLonE7:            d.int32(),
		MaxLatE7:            d.int32(),
		CenterZoom:          d.byte(),
		CenterLonE7:         d.int32(),
		CenterLatE7:         d.int32(),
	}
	if h.HeaderMagic&headerMagicMask != headerMagic {
		return nil, ErrInvalidHeader
	}
	if h.HeaderMagic != HeaderMagicV3 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, h.HeaderMagic>>56)
	}
	return h, nil
}
