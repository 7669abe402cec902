// Package reclaim implements epoch-based deferred reclamation.
//
// Readers bracket every access to shared pointers with Pin and Unpin. Writers
// that unlink an object hand its destructor to Retire instead of running it.
// A retired destructor runs once every reader that could have loaded the
// object has unpinned:
//
//   - Pin publishes the global epoch e in a reader slot and re-checks that the
//     global epoch is still e, so any later scan of the slots sees it.
//   - Retire stamps the record with the epoch r current after the unlink and
//     advances the global epoch, so readers pinning later publish epochs > r.
//   - Update runs every record with r below the smallest published epoch.
package reclaim

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	segmentSize      = 64
	defaultHighWater = 4096
)

type slot struct {
	epoch atomic.Uint64 // 0 when free
	_     [56]byte
}

type segment struct {
	slots [segmentSize]slot
	next  atomic.Pointer[segment]
}

type record struct {
	epoch uint64
	free  func()
}

// Domain is a reclamation domain. The zero value is not usable; call New.
type Domain struct {
	epoch atomic.Uint64
	slots segment
	hint  atomic.Uint32

	mu        sync.Mutex
	records   []record
	pending   atomic.Int64
	reclaimed atomic.Uint64
	highWater int64
	logger    *slog.Logger
}

type config struct {
	Logger    *slog.Logger
	HighWater int
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithHighWater sets the backlog above which Update waits for the queue lock
// instead of skipping when another goroutine holds it.
func WithHighWater(n int) Option {
	return func(c *config) { c.HighWater = n }
}

func New(opts ...Option) *Domain {
	cfg := config{
		Logger:    slog.New(slog.DiscardHandler),
		HighWater: defaultHighWater,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &Domain{
		highWater: int64(max(cfg.HighWater, 1)),
		logger:    cfg.Logger,
	}
	d.epoch.Store(1)
	return d
}

// Guard is a pinned read critical section.
type Guard struct {
	s *slot
}

// Pin enters a read critical section. Pointers loaded from the protected
// structure stay valid until the matching Unpin.
func (d *Domain) Pin() Guard {
	e := d.epoch.Load()
	s := d.acquireSlot(e)
	for {
		cur := d.epoch.Load()
		if cur == e {
			return Guard{s: s}
		}
		e = cur
		s.epoch.Store(e)
	}
}

func (d *Domain) acquireSlot(e uint64) *slot {
	start := int(d.hint.Add(1) % segmentSize)
	seg := &d.slots
	for {
		for i := range segmentSize {
			s := &seg.slots[(start+i)%segmentSize]
			if s.epoch.Load() == 0 && s.epoch.CompareAndSwap(0, e) {
				return s
			}
		}
		next := seg.next.Load()
		if next == nil {
			seg.next.CompareAndSwap(nil, &segment{})
			next = seg.next.Load()
		}
		seg = next
	}
}

// Unpin leaves the critical section. Unpinning twice is a programming error.
func (g *Guard) Unpin() {
	if g.s == nil {
		panic("reclaim: unpin of released guard")
	}
	g.s.epoch.Store(0)
	g.s = nil
}

// Retire queues free to run once no pinned reader can still observe the
// object it releases. The object must already be unreachable for new readers.
func (d *Domain) Retire(free func()) {
	d.mu.Lock()
	e := d.epoch.Add(1) - 1
	d.records = append(d.records, record{epoch: e, free: free})
	d.pending.Add(1)
	d.mu.Unlock()
}

// Update runs the records that became safe. It is cheap when nothing is
// queued and skips entirely while the protected structure is migrating.
func (d *Domain) Update(migrating bool) {
	if migrating || d.pending.Load() == 0 {
		return
	}
	if d.pending.Load() >= d.highWater {
		d.mu.Lock()
	} else if !d.mu.TryLock() {
		return
	}
	cur := d.epoch.Add(1)
	safe := d.minPinned(cur)

	var ready []record
	kept := d.records[:0]
	for _, r := range d.records {
		if r.epoch < safe {
			ready = append(ready, r)
		} else {
			kept = append(kept, r)
		}
	}
	clear(d.records[len(kept):])
	d.records = kept
	d.pending.Add(-int64(len(ready)))
	d.mu.Unlock()

	d.run(ready)
}

// Flush runs every queued record regardless of pinned readers. It is meant
// for teardown, when no reader can remain.
func (d *Domain) Flush() {
	d.mu.Lock()
	ready := d.records
	d.records = nil
	d.pending.Add(-int64(len(ready)))
	d.mu.Unlock()

	d.logger.Debug("reclaim: flush", "records", len(ready))
	d.run(ready)
}

func (d *Domain) run(ready []record) {
	for _, r := range ready {
		r.free()
	}
	d.reclaimed.Add(uint64(len(ready)))
}

func (d *Domain) minPinned(limit uint64) uint64 {
	lowest := limit
	for seg := &d.slots; seg != nil; seg = seg.next.Load() {
		for i := range seg.slots {
			if e := seg.slots[i].epoch.Load(); e != 0 && e < lowest {
				lowest = e
			}
		}
	}
	return lowest
}

// Pending returns the number of queued records.
func (d *Domain) Pending() int { return int(d.pending.Load()) }

// Reclaimed returns the number of records run so far.
func (d *Domain) Reclaimed() uint64 { return d.reclaimed.Load() }

// Pinned returns the number of readers currently pinned.
func (d *Domain) Pinned() int {
	n := 0
	for seg := &d.slots; seg != nil; seg = seg.next.Load() {
		for i := range seg.slots {
			if seg.slots[i].epoch.Load() != 0 {
				n++
			}
		}
	}
	return n
}

// Epoch returns the current global epoch.
func (d *Domain) Epoch() uint64 { return d.epoch.Load() }
