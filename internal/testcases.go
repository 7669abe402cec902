package internal

import (
	"iter"
	"math/rand/v2"

	"github.com/eak1mov/go-tilestore/tile"
)

// Grid yields every id with both coordinates in [-r, r], row by row.
func Grid(r int32) iter.Seq[tile.ID] {
	return func(yield func(tile.ID) bool) {
		for row := -r; row <= r; row++ {
			for col := -r; col <= r; col++ {
				if !yield(tile.ID{Col: col, Row: row}) {
					return
				}
			}
		}
	}
}

// RandomIDs yields n ids drawn from [-window, window]² by a generator seeded
// with seed, so runs are reproducible.
func RandomIDs(seed uint64, n int, window int32) iter.Seq[tile.ID] {
	return func(yield func(tile.ID) bool) {
		rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		span := 2*window + 1
		for range n {
			id := tile.ID{
				Col: rnd.Int32N(span) - window,
				Row: rnd.Int32N(span) - window,
			}
			if !yield(id) {
				return
			}
		}
	}
}

// Payload returns n bytes derived from id, distinct for nearby ids.
func Payload(id tile.ID, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(int(id.Col)*31 + int(id.Row)*17 + i)
	}
	return b
}
