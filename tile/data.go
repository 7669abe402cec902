package tile

import (
	"fmt"
	"sync/atomic"
)

// Data is a reference-counted pixel payload. A store keeps one as the
// template for tiles that were never written; tiles share it until they
// write, then switch to a private copy.
//
// A new Data has no users. It is freed by the Release that drops the last
// user, which returns its buffer to the pool.
type Data struct {
	pixels []byte
	users  atomic.Int32
	freed  atomic.Bool
}

// NewData copies pixels into a pooled buffer.
func NewData(pixels []byte) *Data {
	buf := getBuffer(len(pixels))
	copy(buf, pixels)
	return &Data{pixels: buf}
}

func (d *Data) Acquire() {
	if d.freed.Load() {
		panic("tile: acquire of freed data")
	}
	d.users.Add(1)
}

// Release drops a user and reports whether the data was freed.
func (d *Data) Release() bool {
	n := d.users.Add(-1)
	if n > 0 {
		return false
	}
	if n < 0 {
		panic(fmt.Sprintf("tile: data released %d times too often", -n))
	}
	d.freed.Store(true)
	putBuffer(d.pixels)
	d.pixels = nil
	return true
}

func (d *Data) Users() int { return int(d.users.Load()) }

func (d *Data) Freed() bool { return d.freed.Load() }

func (d *Data) Len() int { return len(d.pixels) }

// Bytes returns a copy of the payload. The caller must hold a user or
// otherwise know the data is alive.
func (d *Data) Bytes() []byte {
	return append([]byte(nil), d.pixels...)
}

func (d *Data) clone() *Data {
	return NewData(d.pixels)
}
