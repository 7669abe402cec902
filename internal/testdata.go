package internal

import (
	"slices"
	"sync"

	"github.com/eak1mov/go-tilestore/tile"
)

// Recorder is a tile.Tracker that remembers which tiles were reported dead.
type Recorder struct {
	mu   sync.Mutex
	dead []tile.ID
}

func (r *Recorder) TileDead(t *tile.Tile) {
	r.mu.Lock()
	r.dead = append(r.dead, t.ID())
	r.mu.Unlock()
}

// Dead returns the reported ids sorted by row, then column.
func (r *Recorder) Dead() []tile.ID {
	r.mu.Lock()
	ids := slices.Clone(r.dead)
	r.mu.Unlock()
	slices.SortFunc(ids, CompareIDs)
	return ids
}

func CompareIDs(a, b tile.ID) int {
	if a.Row != b.Row {
		return int(a.Row) - int(b.Row)
	}
	return int(a.Col) - int(b.Col)
}
