// Package gridkey derives the 32-bit map key of a tile coordinate.
//
// The key packs the low 16 bits of the row above the low 16 bits of the
// column, which is a bijection as long as both stay strictly inside
// (-Limit, Limit). Key 0 is reserved as the empty-slot marker of the
// spatial map, so the origin, which would pack to 0, is remapped to Origin.
package gridkey

import "fmt"

// Limit bounds the absolute value of columns and rows.
const Limit = 0x7FFF

// Origin is the key of (0, 0). No valid coordinate packs to it naturally.
const Origin uint32 = Limit<<16 | Limit

func Valid(col, row int32) bool {
	return col > -Limit && col < Limit && row > -Limit && row < Limit
}

// Hash returns the key of (col, row). Coordinates outside the valid domain
// are a programming error and panic.
func Hash(col, row int32) uint32 {
	if !Valid(col, row) {
		panic(fmt.Sprintf("gridkey: coordinate (%d,%d) out of range", col, row))
	}
	if col == 0 && row == 0 {
		return Origin
	}
	return uint32(row)<<16 | uint32(col)&0xFFFF
}

// Coords inverts Hash.
func Coords(key uint32) (col, row int32) {
	if key == Origin {
		return 0, 0
	}
	return int32(int16(key & 0xFFFF)), int32(int16(key >> 16))
}
