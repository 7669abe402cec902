// Package tile provides the tile payload types shared by the store and its collaborators.
package tile

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/eak1mov/go-tilestore/gridkey"
)

// MaxCoord bounds the absolute value of tile columns and rows.
const MaxCoord = gridkey.Limit

// ID represents tile coordinates on the image grid.
type ID struct {
	Col int32
	Row int32
}

// NoID tags transient tiles that are not stored anywhere.
var NoID = ID{Col: math.MinInt32, Row: math.MinInt32}

func (id ID) Valid() bool {
	return gridkey.Valid(id.Col, id.Row)
}

func (id ID) String() string {
	return fmt.Sprintf("(%d,%d)", id.Col, id.Row)
}

// Tracker is the change-tracking collaborator of a tile.
// It is told when a tile leaves its store; tiles never own it.
type Tracker interface {
	TileDead(t *Tile)
}

// Factory constructs a tile at id from the given default data.
type Factory func(id ID, d *Data, tr Tracker) *Tile

// Tile is a fixed-size payload block at a grid coordinate.
//
// Tiles are shared-owned through an explicit reference count: New returns a
// tile holding one reference, every holder calls Release exactly once, and the
// last Release frees the payload. The payload is shared copy-on-write with the
// Data it was created from until the first Write.
type Tile struct {
	id      ID
	tracker Tracker
	refs    atomic.Int32
	freed   atomic.Bool

	mu   sync.RWMutex
	data *Data
}

// New creates a tile at id backed by d. A nil d gives an empty payload.
func New(id ID, d *Data, tr Tracker) *Tile {
	if d == nil {
		d = NewData(nil)
	}
	d.Acquire()
	t := &Tile{id: id, tracker: tr, data: d}
	t.refs.Store(1)
	return t
}

func (t *Tile) ID() ID { return t.id }

func (t *Tile) Tracker() Tracker { return t.tracker }

// Acquire adds a reference. Acquiring a freed tile is a programming error.
func (t *Tile) Acquire() {
	if t.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("tile: acquire of freed tile %v", t.id))
	}
}

// Release drops a reference and reports whether the tile was freed.
func (t *Tile) Release() bool {
	n := t.refs.Add(-1)
	if n > 0 {
		return false
	}
	if n < 0 {
		panic(fmt.Sprintf("tile: release of freed tile %v", t.id))
	}
	t.mu.Lock()
	t.freed.Store(true)
	t.data.Release()
	t.data = nil
	t.mu.Unlock()
	return true
}

// Refs returns the current number of references.
func (t *Tile) Refs() int { return int(t.refs.Load()) }

func (t *Tile) Freed() bool { return t.freed.Load() }

// NotifyDead tells the tracker the tile was removed from its store.
func (t *Tile) NotifyDead() {
	if t.tracker != nil {
		t.tracker.TileDead(t)
	}
}

// Read calls fn with the payload under the tile's read lock.
// fn must not retain or modify the slice.
func (t *Tile) Read(fn func(pixels []byte)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.data == nil {
		panic(fmt.Sprintf("tile: read of freed tile %v", t.id))
	}
	fn(t.data.pixels)
}

// Write calls fn with a private copy of the payload under the tile's write lock.
func (t *Tile) Write(fn func(pixels []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.data == nil {
		panic(fmt.Sprintf("tile: write to freed tile %v", t.id))
	}
	if t.data.Users() > 1 {
		private := t.data.clone()
		private.Acquire()
		t.data.Release()
		t.data = private
	}
	fn(t.data.pixels)
}

// Bytes returns a copy of the payload.
func (t *Tile) Bytes() []byte {
	var out []byte
	t.Read(func(pixels []byte) {
		out = append([]byte(nil), pixels...)
	})
	return out
}

// Shared reports whether the payload is still shared with other holders of its Data.
func (t *Tile) Shared() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data != nil && t.data.Users() > 1
}

// Clone returns a new tile at the same coordinates sharing the payload
// copy-on-write and reporting to tr. The clone holds one reference.
func (t *Tile) Clone(tr Tracker) *Tile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.data == nil {
		panic(fmt.Sprintf("tile: clone of freed tile %v", t.id))
	}
	return New(t.id, t.data, tr)
}
