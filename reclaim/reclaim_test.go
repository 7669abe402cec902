package reclaim_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/eak1mov/go-tilestore/reclaim"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestUpdateWithoutReaders(t *testing.T) {
	d := reclaim.New()
	freed := 0
	for range 10 {
		d.Retire(func() { freed++ })
	}
	if got, want := d.Pending(), 10; got != want {
		t.Fatalf("Pending() = %v, want = %v", got, want)
	}
	d.Update(false)
	if got, want := freed, 10; got != want {
		t.Errorf("freed = %v, want = %v", got, want)
	}
	if got, want := d.Pending(), 0; got != want {
		t.Errorf("Pending() = %v, want = %v", got, want)
	}
	if got, want := d.Reclaimed(), uint64(10); got != want {
		t.Errorf("Reclaimed() = %v, want = %v", got, want)
	}
}

func TestPinnedReaderDefersFree(t *testing.T) {
	d := reclaim.New()
	g := d.Pin()

	freed := false
	d.Retire(func() { freed = true })
	d.Update(false)
	if freed {
		t.Fatalf("record freed while an older reader is pinned")
	}
	if got, want := d.Pinned(), 1; got != want {
		t.Errorf("Pinned() = %v, want = %v", got, want)
	}

	g.Unpin()
	d.Update(false)
	if !freed {
		t.Errorf("record not freed after reader unpinned")
	}
}

func TestLaterReaderDoesNotBlock(t *testing.T) {
	d := reclaim.New()
	freed := false
	d.Retire(func() { freed = true })

	g := d.Pin()
	defer g.Unpin()
	d.Update(false)
	if !freed {
		t.Errorf("record retired before the pin was not freed")
	}
}

func TestUpdateSkipsDuringMigration(t *testing.T) {
	d := reclaim.New()
	freed := false
	d.Retire(func() { freed = true })
	d.Update(true)
	if freed {
		t.Fatalf("record freed during migration")
	}
	d.Update(false)
	if !freed {
		t.Errorf("record not freed after migration")
	}
}

func TestFlushIgnoresReaders(t *testing.T) {
	d := reclaim.New()
	g := d.Pin()
	n := 0
	for range 3 {
		d.Retire(func() { n++ })
	}
	d.Flush()
	g.Unpin()
	if got, want := n, 3; got != want {
		t.Errorf("freed = %v, want = %v", got, want)
	}
	if got, want := d.Pending(), 0; got != want {
		t.Errorf("Pending() = %v, want = %v", got, want)
	}
}

func TestManyPinnedReaders(t *testing.T) {
	d := reclaim.New()
	guards := make([]reclaim.Guard, 200)
	for i := range guards {
		guards[i] = d.Pin()
	}
	if got, want := d.Pinned(), len(guards); got != want {
		t.Errorf("Pinned() = %v, want = %v", got, want)
	}
	for i := range guards {
		guards[i].Unpin()
	}
	if got, want := d.Pinned(), 0; got != want {
		t.Errorf("Pinned() = %v, want = %v", got, want)
	}
}

func TestDoubleUnpinPanics(t *testing.T) {
	d := reclaim.New()
	g := d.Pin()
	g.Unpin()
	defer func() {
		if recover() == nil {
			t.Errorf("second Unpin did not panic")
		}
	}()
	g.Unpin()
}

type object struct {
	freed atomic.Bool
}

// Writers keep swapping a shared pointer and retiring the old object, readers
// keep loading it and checking it was not freed under them.
func TestStress(t *testing.T) {
	d := reclaim.New(reclaim.WithHighWater(64))
	var shared atomic.Pointer[object]
	shared.Store(&object{})

	var retired, observedFreed atomic.Int64
	deadline := time.Now().Add(300 * time.Millisecond)

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			for time.Now().Before(deadline) {
				old := shared.Swap(&object{})
				retired.Add(1)
				d.Retire(func() { old.freed.Store(true) })
				d.Update(false)
			}
			return nil
		})
	}
	for range 8 {
		g.Go(func() error {
			for time.Now().Before(deadline) {
				guard := d.Pin()
				obj := shared.Load()
				for range 16 {
					if obj.freed.Load() {
						observedFreed.Add(1)
					}
				}
				guard.Unpin()
				d.Update(false)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Zero(t, observedFreed.Load(), "reader observed a freed object")
	d.Flush()
	require.Zero(t, d.Pending())
	require.Equal(t, uint64(retired.Load()), d.Reclaimed())
}
