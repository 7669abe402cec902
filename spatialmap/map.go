// Package spatialmap implements a concurrent hash map from nonzero uint32
// keys to pointers.
//
// The map is split into shards selected by the mixed key. Each shard owns an
// open-addressing table with linear probing whose cells hold an atomic key
// and an atomic value pointer:
//
//   - Get never locks: it loads the shard's current table and probes it.
//   - Writers take the shard lock. A key, once written to a cell, stays there
//     until the table is replaced; erasing only clears the value.
//   - When a table runs out of free cells the writer migrates the shard: it
//     copies the live cells into a fresh table and publishes it with a single
//     atomic store. Readers still probing the old table see it frozen as it
//     was at the switch, so every lookup observes one generation.
//
// Key 0 is reserved for empty cells.
package spatialmap

import (
	"log/slog"
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	defaultShards = 64
	minTableSize  = 8
)

type cell[V any] struct {
	key   atomic.Uint32
	value atomic.Pointer[V]
}

type table[V any] struct {
	cells []cell[V]
	mask  uint32
	used  int // cells holding a key; guarded by the shard lock
	live  int // cells holding a value; guarded by the shard lock
}

func newTable[V any](size int) *table[V] {
	return &table[V]{
		cells: make([]cell[V], size),
		mask:  uint32(size - 1),
	}
}

func (t *table[V]) find(key, home uint32) *cell[V] {
	for i := home & t.mask; ; i = (i + 1) & t.mask {
		c := &t.cells[i]
		switch c.key.Load() {
		case key:
			return c
		case 0:
			return nil
		}
	}
}

// claim writes key into the first empty cell of its probe sequence.
// The caller checked that the key is absent and that a free cell exists.
func (t *table[V]) claim(key, home uint32) *cell[V] {
	for i := home & t.mask; ; i = (i + 1) & t.mask {
		c := &t.cells[i]
		if c.key.Load() == 0 {
			c.key.Store(key)
			t.used++
			return c
		}
	}
}

func (t *table[V]) full() bool {
	return (t.used+1)*4 > len(t.cells)*3
}

type shard[V any] struct {
	mu    sync.Mutex
	table atomic.Pointer[table[V]]
}

// Map is a concurrent map. The zero value is not usable; call New.
type Map[V any] struct {
	shards     []shard[V]
	shardBits  int
	size       atomic.Int64
	migrating  atomic.Int32
	migrations atomic.Uint64
	logger     *slog.Logger
}

type config struct {
	Shards   int
	Capacity int
	Logger   *slog.Logger
}

type Option func(*config)

// WithShards sets the number of shards, rounded up to a power of two.
func WithShards(n int) Option {
	return func(c *config) { c.Shards = n }
}

// WithCapacity presizes the map for n keys.
func WithCapacity(n int) Option {
	return func(c *config) { c.Capacity = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func New[V any](opts ...Option) *Map[V] {
	cfg := config{
		Shards: defaultShards,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	shardBits := bits.Len(uint(max(cfg.Shards, 1) - 1))
	m := &Map[V]{
		shards:    make([]shard[V], 1<<shardBits),
		shardBits: shardBits,
		logger:    cfg.Logger,
	}
	size := tableSize(cfg.Capacity / len(m.shards))
	for i := range m.shards {
		m.shards[i].table.Store(newTable[V](size))
	}
	return m
}

// tableSize returns the table size that holds n keys at half load.
func tableSize(n int) int {
	size := minTableSize
	for size < n*2 {
		size <<= 1
	}
	return size
}

// mix is the murmur3 finalizer; grid keys are highly regular and need
// spreading before being split into shard and cell bits.
func mix(k uint32) uint32 {
	k ^= k >> 16
	k *= 0x85ebca6b
	k ^= k >> 13
	k *= 0xc2b2ae35
	k ^= k >> 16
	return k
}

func (m *Map[V]) locate(key uint32) (*shard[V], uint32) {
	if key == 0 {
		panic("spatialmap: key 0 is reserved")
	}
	h := mix(key)
	s := &m.shards[h&(1<<m.shardBits-1)]
	return s, h >> m.shardBits
}

// Get returns the value stored under key, or nil.
func (m *Map[V]) Get(key uint32) *V {
	s, home := m.locate(key)
	if c := s.table.Load().find(key, home); c != nil {
		return c.value.Load()
	}
	return nil
}

// reserve returns the cell of key in the shard's current table, claiming one
// (and migrating first if needed) when the key is absent.
// The shard lock must be held.
func (m *Map[V]) reserve(s *shard[V], key, home uint32) (*table[V], *cell[V]) {
	t := s.table.Load()
	if c := t.find(key, home); c != nil {
		return t, c
	}
	if t.full() {
		t = m.migrate(s, t)
	}
	return t, t.claim(key, home)
}

// migrate copies the live cells of old into a new table sized for them and
// publishes it. The shard lock must be held.
func (m *Map[V]) migrate(s *shard[V], old *table[V]) *table[V] {
	m.migrating.Add(1)
	defer m.migrating.Add(-1)

	t := newTable[V](tableSize(old.live + 1))
	for i := range old.cells {
		c := &old.cells[i]
		v := c.value.Load()
		if v == nil {
			continue
		}
		key := c.key.Load()
		nc := t.claim(key, mix(key)>>m.shardBits)
		nc.value.Store(v)
		t.live++
	}
	s.table.Store(t)
	m.migrations.Add(1)

	m.logger.Debug("spatialmap: migrate",
		"from", len(old.cells), "to", len(t.cells),
		"live", old.live, "tombstones", old.used-old.live)
	return t
}

// Assign stores v under key and returns the previous value, or nil.
func (m *Map[V]) Assign(key uint32, v *V) *V {
	if v == nil {
		panic("spatialmap: assign of nil value")
	}
	s, home := m.locate(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	t, c := m.reserve(s, key, home)
	old := c.value.Swap(v)
	if old == nil {
		t.live++
		m.size.Add(1)
	}
	return old
}

// Erase removes key and returns the value it held, or nil.
func (m *Map[V]) Erase(key uint32) *V {
	s, home := m.locate(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table.Load()
	c := t.find(key, home)
	if c == nil {
		return nil
	}
	old := c.value.Swap(nil)
	if old != nil {
		t.live--
		m.size.Add(-1)
	}
	return old
}

// InsertOrFind reserves a cell for key and returns a handle to it.
// A key already present in the shard's table is found without locking.
func (m *Map[V]) InsertOrFind(key uint32) Mutator[V] {
	s, home := m.locate(key)
	t := s.table.Load()
	if c := t.find(key, home); c != nil {
		return Mutator[V]{m: m, s: s, key: key, home: home, t: t, c: c}
	}
	s.mu.Lock()
	t, c := m.reserve(s, key, home)
	s.mu.Unlock()
	return Mutator[V]{m: m, s: s, key: key, home: home, t: t, c: c}
}

// Len returns the number of keys holding a value.
func (m *Map[V]) Len() int { return int(m.size.Load()) }

// Migrating reports whether some shard is being migrated right now.
func (m *Map[V]) Migrating() bool { return m.migrating.Load() != 0 }

// Range calls fn for every key and value until fn returns false.
// It is weakly consistent with concurrent writers.
func (m *Map[V]) Range(fn func(key uint32, v *V) bool) {
	for c := m.Cursor(); c.Valid(); c.Next() {
		if !fn(c.Key(), c.Value()) {
			return
		}
	}
}
