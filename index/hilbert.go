package index

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/eak1mov/go-tilestore/tile"
	"github.com/google/hilbert"
)

// The curve covers the whole coordinate range shifted to be non-negative.
const curveSide = 1 << 16

var curve = sync.OnceValue(func() *hilbert.Hilbert {
	h, err := hilbert.NewHilbert(curveSide)
	if err != nil {
		panic(err)
	}
	return h
})

// HilbertCode returns the position of id along a Hilbert curve over the grid.
// Nearby tiles get nearby codes.
func HilbertCode(id tile.ID) uint64 {
	code, err := curve().MapInverse(int(id.Col)+tile.MaxCoord, int(id.Row)+tile.MaxCoord)
	if err != nil {
		panic(fmt.Sprintf("index: tile %v: %v", id, err))
	}
	return uint64(code)
}

// HilbertID is the inverse of HilbertCode.
func HilbertID(code uint64) tile.ID {
	x, y, err := curve().Map(int(code))
	if err != nil {
		panic(fmt.Sprintf("index: hilbert code %d: %v", code, err))
	}
	return tile.ID{Col: int32(x - tile.MaxCoord), Row: int32(y - tile.MaxCoord)}
}

// SortHilbert sorts items along the Hilbert curve.
func SortHilbert(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		return cmp.Compare(HilbertCode(a.TileID()), HilbertCode(b.TileID()))
	})
}
