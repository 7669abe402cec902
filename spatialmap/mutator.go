package spatialmap

// Mutator is a handle to the cell reserved for one key. It stays usable
// across migrations: when the shard's table was replaced, operations look the
// key up again.
type Mutator[V any] struct {
	m    *Map[V]
	s    *shard[V]
	key  uint32
	home uint32
	t    *table[V]
	c    *cell[V]
}

func (mu Mutator[V]) Key() uint32 { return mu.key }

// Value returns the value currently stored under the key, or nil.
func (mu Mutator[V]) Value() *V {
	if mu.s.table.Load() == mu.t {
		return mu.c.value.Load()
	}
	return mu.m.Get(mu.key)
}

// Fill stores v if the key holds no value. Of several concurrent fillers
// exactly one wins; the others get the winner's value and false.
func (mu Mutator[V]) Fill(v *V) (actual *V, won bool) {
	if v == nil {
		panic("spatialmap: fill with nil value")
	}
	mu.s.mu.Lock()
	defer mu.s.mu.Unlock()

	t, c := mu.m.reserve(mu.s, mu.key, mu.home)
	if cur := c.value.Load(); cur != nil {
		return cur, false
	}
	c.value.Store(v)
	t.live++
	mu.m.size.Add(1)
	return v, true
}

// Exchange stores v unconditionally and returns the previous value, or nil.
func (mu Mutator[V]) Exchange(v *V) *V {
	return mu.m.Assign(mu.key, v)
}
