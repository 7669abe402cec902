package tilestore

import (
	"github.com/eak1mov/go-tilestore/reclaim"
	"github.com/eak1mov/go-tilestore/spatialmap"
	"github.com/eak1mov/go-tilestore/tile"
)

// Iterator walks the tiles of a store while holding it exclusively.
// Inserts and deletes from other goroutines block until Close; lookups
// proceed.
//
//	it := s.Iterate()
//	defer it.Close()
//	for ; !it.Done(); it.Next() {
//		...
//	}
type Iterator struct {
	s     *Store
	guard reclaim.Guard
	c     *spatialmap.Cursor[tile.Tile]
}

// Iterate returns an iterator positioned at the first tile.
// Tiles returned by Tile stay valid until Close.
func (s *Store) Iterate() *Iterator {
	s.iterMu.Lock()
	return &Iterator{
		s:     s,
		guard: s.domain.Pin(),
		c:     s.tiles.Cursor(),
	}
}

func (it *Iterator) check() {
	if it.s == nil {
		panic("tilestore: use of closed iterator")
	}
}

func (it *Iterator) Done() bool {
	it.check()
	return !it.c.Valid()
}

func (it *Iterator) Next() {
	it.check()
	it.c.Next()
}

// Tile returns the current tile, borrowed until Close.
func (it *Iterator) Tile() *tile.Tile {
	it.check()
	return it.c.Value()
}

// DeleteCurrent removes the current tile and advances.
func (it *Iterator) DeleteCurrent() {
	it.check()
	k := it.c.Key()
	it.c.Next()
	it.s.erase(k)
}

// MoveCurrentTo removes the current tile, adds it to dst and advances.
func (it *Iterator) MoveCurrentTo(dst *Store) {
	it.check()
	if dst == it.s {
		panic("tilestore: move into the iterated store")
	}
	t, k := it.c.Value(), it.c.Key()
	it.c.Next()
	it.s.erase(k)
	dst.AddTile(t)
}

// Close releases the store. Closing twice is a no-op.
func (it *Iterator) Close() {
	if it.s == nil {
		return
	}
	s := it.s
	it.s = nil
	it.guard.Unpin()
	s.iterMu.Unlock()
	s.update()
}

// VisitTiles calls visitor for every tile while holding the store
// exclusively. The visitor must not modify the store except through
// lookups.
func (s *Store) VisitTiles(visitor func(*tile.Tile) error) error {
	it := s.Iterate()
	defer it.Close()
	for ; !it.Done(); it.Next() {
		if err := visitor(it.Tile()); err != nil {
			return err
		}
	}
	return nil
}
