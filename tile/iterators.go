package tile

import (
	"errors"
	"iter"
)

// Visitor is implemented by tile collections that can enumerate their tiles.
type Visitor interface {
	// VisitTiles calls visitor for every tile. Tiles are borrowed for the
	// duration of the call; Acquire them to keep them.
	// Order of tiles is implementation-defined.
	VisitTiles(visitor func(*Tile) error) error
}

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles of v.
// Iteration panics if the visitor fails.
func IterTiles(v Visitor) iter.Seq[*Tile] {
	return func(yield func(*Tile) bool) {
		err := v.VisitTiles(func(t *Tile) error {
			if !yield(t) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// IterData returns an iterator over tile IDs and payload copies of v.
func IterData(v Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		for t := range IterTiles(v) {
			if !yield(t.ID(), t.Bytes()) {
				return
			}
		}
	}
}
