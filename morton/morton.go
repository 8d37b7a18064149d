// Package morton implements the Z-order curve used to lay out deep zoom collection thumbnails.
//
// Item i of a collection is placed at the cell (x, y) where the even bits of i are
// the bits of x and the odd bits of i are the bits of y:
//
//	 0  1  4  5
//	 2  3  6  7
//	 8  9 12 13
//	10 11 14 15
package morton

// spread inserts a zero bit above every bit of v.
func spread(v uint32) uint64 {
	x := uint64(v)
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

// compact is the inverse of spread, odd bits of v are ignored.
func compact(v uint64) uint32 {
	x := v & 0x5555555555555555
	x = (x | x>>1) & 0x3333333333333333
	x = (x | x>>2) & 0x0f0f0f0f0f0f0f0f
	x = (x | x>>4) & 0x00ff00ff00ff00ff
	x = (x | x>>8) & 0x0000ffff0000ffff
	x = (x | x>>16) & 0x00000000ffffffff
	return uint32(x)
}

// Encode returns the Morton index of the cell (x, y).
func Encode(x, y uint32) uint64 {
	return spread(x) | spread(y)<<1
}

// Decode returns the cell of the Morton index i.
func Decode(i uint64) (x, y uint32) {
	return compact(i), compact(i >> 1)
}

// Dimensions returns the size of the smallest grid containing the cells of indices 0..n-1.
func Dimensions(n int) (width, height int) {
	if n <= 0 {
		return 0, 0
	}
	// Encode(x, 0) is the smallest index in column x, the same holds for rows.
	for Encode(uint32(width), 0) < uint64(n) {
		width++
	}
	for Encode(0, uint32(height)) < uint64(n) {
		height++
	}
	return width, height
}
