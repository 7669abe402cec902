package tilestore

import (
	"github.com/eak1mov/go-tilestore/spatialmap"
)

// Stats is a snapshot of store diagnostics.
type Stats struct {
	Tiles          int
	Created        uint64 // tiles created by GetOrCreateTile
	ReclaimPending int    // removed tiles waiting for readers to unpin
	Reclaimed      uint64
	Pinned         int
	Map            spatialmap.Stats
}

func (s *Store) Stats() Stats {
	return Stats{
		Tiles:          s.tiles.Len(),
		Created:        s.created.Load(),
		ReclaimPending: s.domain.Pending(),
		Reclaimed:      s.domain.Reclaimed(),
		Pinned:         s.domain.Pinned(),
		Map:            s.tiles.Stats(),
	}
}

// DebugLog writes the store statistics to the logger at debug level.
func (s *Store) DebugLog() {
	st := s.Stats()
	s.logger.Debug("tilestore: stats",
		"tiles", st.Tiles,
		"created", st.Created,
		"reclaim_pending", st.ReclaimPending,
		"reclaimed", st.Reclaimed,
		"capacity", st.Map.Capacity,
		"tombstones", st.Map.Tombstones,
		"min_probe", st.Map.MinProbe,
		"max_probe", st.Map.MaxProbe,
		"migrations", st.Map.Migrations)
}
