package spatialmap

// Cursor walks the cells of a map in place, shard by shard.
//
// A cursor does not lock. Erasing the current key through the map is safe
// and keeps the position. Concurrent inserts may trigger migrations, after
// which the cursor keeps walking the table it started on; callers that need
// every key exactly once must keep inserts out while it runs.
type Cursor[V any] struct {
	m     *Map[V]
	shard int
	t     *table[V]
	i     int
	key   uint32
	value *V
}

// Cursor returns a cursor positioned at the first key, if any.
func (m *Map[V]) Cursor() *Cursor[V] {
	c := &Cursor[V]{m: m, t: m.shards[0].table.Load(), i: -1}
	c.Next()
	return c
}

func (c *Cursor[V]) Valid() bool { return c.value != nil }

func (c *Cursor[V]) Key() uint32 { return c.key }

func (c *Cursor[V]) Value() *V { return c.value }

func (c *Cursor[V]) Next() {
	for c.shard < len(c.m.shards) {
		for c.i++; c.i < len(c.t.cells); c.i++ {
			cell := &c.t.cells[c.i]
			if v := cell.value.Load(); v != nil {
				c.key, c.value = cell.key.Load(), v
				return
			}
		}
		c.shard++
		if c.shard < len(c.m.shards) {
			c.t = c.m.shards[c.shard].table.Load()
			c.i = -1
		}
	}
	c.key, c.value = 0, nil
}
