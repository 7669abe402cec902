package spatialmap_test

import (
	"maps"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eak1mov/go-tilestore/spatialmap"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

type value struct {
	key uint32
}

func TestAssignGetErase(t *testing.T) {
	m := spatialmap.New[value](spatialmap.WithShards(4))

	v1, v2 := &value{key: 7}, &value{key: 7}
	if old := m.Assign(7, v1); old != nil {
		t.Errorf("Assign(7) on empty map = %v, want = nil", old)
	}
	if got := m.Get(7); got != v1 {
		t.Errorf("Get(7) = %p, want = %p", got, v1)
	}
	if old := m.Assign(7, v2); old != v1 {
		t.Errorf("Assign(7) = %p, want = %p", old, v1)
	}
	if got, want := m.Len(), 1; got != want {
		t.Errorf("Len() = %v, want = %v", got, want)
	}
	if old := m.Erase(7); old != v2 {
		t.Errorf("Erase(7) = %p, want = %p", old, v2)
	}
	if got := m.Get(7); got != nil {
		t.Errorf("Get(7) after Erase = %v, want = nil", got)
	}
	if old := m.Erase(7); old != nil {
		t.Errorf("second Erase(7) = %v, want = nil", old)
	}
	if got, want := m.Len(), 0; got != want {
		t.Errorf("Len() = %v, want = %v", got, want)
	}
}

func TestReservedKey(t *testing.T) {
	m := spatialmap.New[value]()
	defer func() {
		if recover() == nil {
			t.Errorf("Get(0) did not panic")
		}
	}()
	m.Get(0)
}

func TestGrowth(t *testing.T) {
	m := spatialmap.New[value](spatialmap.WithShards(2))
	const n = 10_000

	for key := uint32(1); key <= n; key++ {
		m.Assign(key, &value{key: key})
	}
	for key := uint32(1); key <= n; key += 2 {
		m.Erase(key)
	}

	got := make(map[uint32]uint32)
	m.Range(func(key uint32, v *value) bool {
		got[key] = v.key
		return true
	})
	want := make(map[uint32]uint32)
	for key := uint32(2); key <= n; key += 2 {
		want[key] = key
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Range mismatch (-want+got):\n%v", diff)
	}

	st := m.Stats()
	if st.Migrations == 0 {
		t.Errorf("Stats().Migrations = 0, want > 0")
	}
	if got, want := st.Live, n/2; got != want {
		t.Errorf("Stats().Live = %v, want = %v", got, want)
	}
	if st.Live+st.Tombstones > st.Capacity*3/4 {
		t.Errorf("Stats() load above 3/4: %+v", st)
	}
}

func TestTombstonesAreDropped(t *testing.T) {
	m := spatialmap.New[value](spatialmap.WithShards(1))
	for key := uint32(1); key <= 1000; key++ {
		m.Assign(key, &value{key: key})
		m.Erase(key)
	}
	st := m.Stats()
	if st.Capacity > 64 {
		t.Errorf("Stats().Capacity = %v, churn on distinct keys should not grow the table", st.Capacity)
	}
	if got, want := m.Len(), 0; got != want {
		t.Errorf("Len() = %v, want = %v", got, want)
	}
}

func TestMutator(t *testing.T) {
	m := spatialmap.New[value]()
	mu := m.InsertOrFind(42)
	if got := mu.Value(); got != nil {
		t.Fatalf("Value() of fresh slot = %v, want = nil", got)
	}
	if got := m.Get(42); got != nil {
		t.Fatalf("reserved slot is visible: %v", got)
	}

	first := &value{key: 42}
	actual, won := mu.Fill(first)
	if !won || actual != first {
		t.Fatalf("Fill() = %p, %v, want = %p, true", actual, won, first)
	}
	actual, won = m.InsertOrFind(42).Fill(&value{key: 42})
	if won || actual != first {
		t.Errorf("second Fill() = %p, %v, want = %p, false", actual, won, first)
	}

	second := &value{key: 42}
	if old := mu.Exchange(second); old != first {
		t.Errorf("Exchange() = %p, want = %p", old, first)
	}
	if got := mu.Value(); got != second {
		t.Errorf("Value() = %p, want = %p", got, second)
	}
}

func TestMutatorSurvivesMigration(t *testing.T) {
	m := spatialmap.New[value](spatialmap.WithShards(1))
	mu := m.InsertOrFind(1)
	for key := uint32(2); key < 500; key++ {
		m.Assign(key, &value{key: key})
	}
	v := &value{key: 1}
	if actual, won := mu.Fill(v); !won || actual != v {
		t.Fatalf("Fill() after migration = %p, %v", actual, won)
	}
	if got := mu.Value(); got != v {
		t.Errorf("Value() = %p, want = %p", got, v)
	}
	if got := m.Get(1); got != v {
		t.Errorf("Get(1) = %p, want = %p", got, v)
	}
}

func TestConcurrentFill(t *testing.T) {
	m := spatialmap.New[value]()
	const workers = 16

	var wins atomic.Int32
	results := make([]*value, workers)
	start := make(chan struct{})

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			actual, won := m.InsertOrFind(99).Fill(&value{key: 99})
			if won {
				wins.Add(1)
			}
			results[i] = actual
			return nil
		})
	}
	close(start)
	g.Wait()

	if got, want := wins.Load(), int32(1); got != want {
		t.Errorf("winners = %v, want = %v", got, want)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("worker %d got %p, worker 0 got %p", i, r, results[0])
		}
	}
}

// Readers must always find either nothing or the value written for that key
// while writers force migrations on the same shards.
func TestConcurrentMigration(t *testing.T) {
	m := spatialmap.New[value](spatialmap.WithShards(4))
	const keys = 4096
	deadline := time.Now().Add(200 * time.Millisecond)

	var g errgroup.Group
	for w := range 4 {
		g.Go(func() error {
			for i := 0; time.Now().Before(deadline); i++ {
				key := uint32((i*4+w)%keys + 1)
				if i%3 == 0 {
					m.Erase(key)
				} else {
					m.Assign(key, &value{key: key})
				}
			}
			return nil
		})
	}
	var mismatches atomic.Int64
	for range 4 {
		g.Go(func() error {
			for i := 0; time.Now().Before(deadline); i++ {
				key := uint32(i%keys + 1)
				if v := m.Get(key); v != nil && v.key != key {
					mismatches.Add(1)
				}
			}
			return nil
		})
	}
	g.Wait()

	if got := mismatches.Load(); got != 0 {
		t.Errorf("readers saw %d values under the wrong key", got)
	}
	live := maps.Collect(func(yield func(uint32, *value) bool) { m.Range(yield) })
	if got, want := len(live), m.Len(); got != want {
		t.Errorf("Range() found %v keys, Len() = %v", got, want)
	}
}
