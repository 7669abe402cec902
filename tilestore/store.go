// Package tilestore implements a concurrent store of raster tiles addressed
// by grid coordinates.
//
// Lookups run without locks. Inserts and deletes share a store-wide lock
// that is taken exclusively only by whole-store operations: Clear, Clone and
// iteration. Tiles removed from the store are released through an
// epoch-based reclamation domain, so a concurrent reader never sees a freed
// tile.
//
// Every tile handle returned by the store carries a reference owned by the
// caller, who must Release it.
package tilestore

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eak1mov/go-tilestore/gridkey"
	"github.com/eak1mov/go-tilestore/reclaim"
	"github.com/eak1mov/go-tilestore/spatialmap"
	"github.com/eak1mov/go-tilestore/tile"
)

type Store struct {
	cfg     config
	factory tile.Factory
	tracker tile.Tracker
	logger  *slog.Logger

	// iterMu is held shared by writers and exclusively by whole-store
	// operations.
	iterMu  sync.RWMutex
	tiles   *spatialmap.Map[tile.Tile]
	domain  *reclaim.Domain
	created atomic.Uint64

	dataMu      sync.RWMutex
	defaultData *tile.Data
}

func New(opts ...Option) *Store {
	cfg := config{
		Logger:  slog.New(slog.DiscardHandler),
		Factory: tile.New,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mapOpts := []spatialmap.Option{
		spatialmap.WithCapacity(cfg.Capacity),
		spatialmap.WithLogger(cfg.Logger),
	}
	if cfg.Shards > 0 {
		mapOpts = append(mapOpts, spatialmap.WithShards(cfg.Shards))
	}
	domainOpts := []reclaim.Option{reclaim.WithLogger(cfg.Logger)}
	if cfg.HighWater > 0 {
		domainOpts = append(domainOpts, reclaim.WithHighWater(cfg.HighWater))
	}

	s := &Store{
		factory: cfg.Factory,
		tracker: cfg.Tracker,
		logger:  cfg.Logger,
		tiles:   spatialmap.New[tile.Tile](mapOpts...),
		domain:  reclaim.New(domainOpts...),
	}
	if cfg.DefaultData != nil {
		s.SetDefaultData(cfg.DefaultData)
	}
	cfg.DefaultData = nil
	s.cfg = cfg
	return s
}

func key(id tile.ID) uint32 {
	return gridkey.Hash(id.Col, id.Row)
}

func (s *Store) update() {
	s.domain.Update(s.tiles.Migrating())
}

// retire notifies the tracker and hands the store's reference to t over to
// the reclamation domain.
func (s *Store) retire(t *tile.Tile) {
	t.NotifyDead()
	s.domain.Retire(func() { t.Release() })
}

// TileExists reports whether a tile is stored at id.
func (s *Store) TileExists(id tile.ID) bool {
	defer s.update()
	return s.lookup(key(id), false) != nil
}

// GetExistingTile returns the tile stored at id, or nil.
func (s *Store) GetExistingTile(id tile.ID) *tile.Tile {
	defer s.update()
	return s.lookup(key(id), true)
}

// lookup returns the tile stored under k, acquired if acquire is set.
func (s *Store) lookup(k uint32, acquire bool) *tile.Tile {
	g := s.domain.Pin()
	defer g.Unpin()

	t := s.tiles.Get(k)
	if t != nil && acquire {
		t.Acquire()
	}
	return t
}

// GetOrCreateTile returns the tile stored at id, creating it from the
// default data if there is none. Of several goroutines racing to create the
// same tile exactly one reports created; all of them get the same tile.
func (s *Store) GetOrCreateTile(id tile.ID) (t *tile.Tile, created bool) {
	k := key(id)
	s.iterMu.RLock()
	defer s.iterMu.RUnlock()
	defer s.update()

	g := s.domain.Pin()
	defer g.Unpin()

	mu := s.tiles.InsertOrFind(k)
	t = mu.Value()
	if t == nil {
		fresh := s.newTile(id, s.tracker)
		t, created = mu.Fill(fresh)
		if !created {
			fresh.Release()
		} else {
			s.created.Add(1)
		}
	}
	t.Acquire()
	return t, created
}

// GetReadOnlyTile returns the tile stored at id. When there is none it
// returns a transient tile at tile.NoID built from the default data, which
// is not stored and reports to no tracker.
func (s *Store) GetReadOnlyTile(id tile.ID) (t *tile.Tile, existed bool) {
	defer s.update()
	if t = s.lookup(key(id), true); t != nil {
		return t, true
	}
	return s.newTile(tile.NoID, nil), false
}

// AddTile stores t at its coordinates, replacing any tile stored there.
// The store acquires its own reference. Adding a tile that is already
// stored panics.
func (s *Store) AddTile(t *tile.Tile) {
	k := key(t.ID())
	t.Acquire()

	s.iterMu.RLock()
	defer s.iterMu.RUnlock()
	s.insert(k, t)
}

// insert stores t, which carries a reference owned by the store.
// The caller holds iterMu in either mode.
func (s *Store) insert(k uint32, t *tile.Tile) {
	old := s.tiles.Assign(k, t)
	if old == t {
		t.Release()
		panic(fmt.Sprintf("tilestore: tile %v added twice", t.ID()))
	}
	if old != nil {
		s.domain.Retire(func() { old.Release() })
	}
	s.update()
}

// DeleteTile removes the tile at id and reports whether there was one.
func (s *Store) DeleteTile(id tile.ID) bool {
	k := key(id)
	s.iterMu.RLock()
	defer s.iterMu.RUnlock()
	return s.erase(k)
}

// DeleteTileObject removes whatever tile is stored at t's coordinates.
func (s *Store) DeleteTileObject(t *tile.Tile) bool {
	return s.DeleteTile(t.ID())
}

// erase removes k and retires its tile. The caller holds iterMu in either
// mode.
func (s *Store) erase(k uint32) bool {
	t := s.tiles.Erase(k)
	if t != nil {
		s.retire(t)
	}
	s.update()
	return t != nil
}

// Clear removes every tile.
func (s *Store) Clear() {
	s.iterMu.Lock()
	n := 0
	for c := s.tiles.Cursor(); c.Valid(); c.Next() {
		if t := s.tiles.Erase(c.Key()); t != nil {
			s.retire(t)
			n++
		}
	}
	s.iterMu.Unlock()

	s.logger.Debug("tilestore: clear", "tiles", n)
	s.domain.Update(false)
}

// SetDefaultData replaces the data new tiles are created from. The store
// acquires d and releases the data it replaces. Existing tiles keep theirs.
func (s *Store) SetDefaultData(d *tile.Data) {
	if d != nil {
		d.Acquire()
	}
	s.dataMu.Lock()
	old := s.defaultData
	s.defaultData = d
	s.dataMu.Unlock()
	if old != nil {
		old.Release()
	}
}

// DefaultData returns the current default data, or nil. The caller must
// Release it.
func (s *Store) DefaultData() *tile.Data {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	if s.defaultData != nil {
		s.defaultData.Acquire()
	}
	return s.defaultData
}

func (s *Store) newTile(id tile.ID, tr tile.Tracker) *tile.Tile {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.factory(id, s.defaultData, tr)
}

// NewTile builds an unstored tile at id with the store's factory and
// tracker. A nil d uses the current default data.
func (s *Store) NewTile(id tile.ID, d *tile.Data) *tile.Tile {
	if d == nil {
		return s.newTile(id, s.tracker)
	}
	return s.factory(id, d, s.tracker)
}

// Clone returns a new store holding a copy of every tile. Payloads are
// shared copy-on-write. The clone inherits the configuration of s, which
// opts may override.
func (s *Store) Clone(opts ...Option) *Store {
	cfg := s.cfg
	base := []Option{func(c *config) {
		*c = cfg
		c.Capacity = s.NumTiles()
	}}
	dst := New(append(base, opts...)...)

	if d := s.DefaultData(); d != nil {
		dst.SetDefaultData(d)
		d.Release()
	}

	s.iterMu.Lock()
	dst.iterMu.Lock()
	for c := s.tiles.Cursor(); c.Valid(); c.Next() {
		dst.insert(c.Key(), c.Value().Clone(dst.tracker))
	}
	dst.iterMu.Unlock()
	s.iterMu.Unlock()

	s.logger.Debug("tilestore: clone", "tiles", dst.NumTiles())
	return dst
}

// NumTiles returns the number of stored tiles. It is exact only when no
// writer runs concurrently.
func (s *Store) NumTiles() int { return s.tiles.Len() }

func (s *Store) IsEmpty() bool { return s.tiles.Len() == 0 }

// Close removes every tile, runs all pending reclamation and drops the
// default data. No other goroutine may use the store during or after Close.
func (s *Store) Close() {
	s.Clear()
	s.domain.Flush()
	s.SetDefaultData(nil)
}
