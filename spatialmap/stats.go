package spatialmap

// Stats describes the occupancy of a map.
type Stats struct {
	Shards     int
	Capacity   int // cells over all shards
	Live       int // cells holding a value
	Tombstones int // cells holding a key without a value
	MinProbe   int // shortest probe distance of a live key
	MaxProbe   int // longest probe distance of a live key
	Migrations uint64
}

// Stats walks every shard under its lock.
func (m *Map[V]) Stats() Stats {
	st := Stats{Shards: len(m.shards), MinProbe: -1, Migrations: m.migrations.Load()}
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		t := s.table.Load()
		st.Capacity += len(t.cells)
		st.Live += t.live
		st.Tombstones += t.used - t.live
		for j := range t.cells {
			c := &t.cells[j]
			if c.value.Load() == nil {
				continue
			}
			home := (mix(c.key.Load()) >> m.shardBits) & t.mask
			probe := int((uint32(j) - home) & t.mask)
			if st.MinProbe < 0 || probe < st.MinProbe {
				st.MinProbe = probe
			}
			st.MaxProbe = max(st.MaxProbe, probe)
		}
		s.mu.Unlock()
	}
	if st.MinProbe < 0 {
		st.MinProbe = 0
	}
	return st
}
