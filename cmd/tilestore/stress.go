package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/eak1mov/go-tilestore/metrics"
	"github.com/eak1mov/go-tilestore/tile"
	"github.com/eak1mov/go-tilestore/tilestore"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

type stressCmd struct {
	app         *app
	duration    time.Duration
	workers     int
	window      int
	cloneEvery  time.Duration
	metricsAddr string
}

func (c *stressCmd) Name() string     { return "stress" }
func (c *stressCmd) Synopsis() string { return "run concurrent churn against an in-memory store" }
func (c *stressCmd) Usage() string {
	return "tilestore stress [-d <duration> -w <workers> -window <n> -clone <interval> -metrics <addr>]\n"
}
func (c *stressCmd) SetFlags(f *flag.FlagSet) {
	cfg := c.app.cfg
	f.DurationVar(&c.duration, "d", cfg.Stress.Duration, "Run duration")
	f.IntVar(&c.workers, "w", cfg.Stress.Workers, "Number of worker goroutines")
	f.IntVar(&c.window, "window", cfg.Stress.Window, "Coordinates are drawn from [-window, window]")
	f.DurationVar(&c.cloneEvery, "clone", 100*time.Millisecond, "Interval between snapshot clones, 0 disables them")
	f.StringVar(&c.metricsAddr, "metrics", cfg.Metrics.Addr, "Serve Prometheus metrics on this address")
}

type stressParams struct {
	Duration   time.Duration
	Workers    int
	Window     int32
	CloneEvery time.Duration
}

type stressResult struct {
	Ops     int64
	Created int64
	Deleted int64
	Clones  int64
}

func (c *stressCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := c.app.logger
	if c.window <= 0 || c.window >= tile.MaxCoord {
		logger.Error("invalid window", "window", c.window)
		return subcommands.ExitUsageError
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s := c.app.newStore()

	if c.metricsAddr != "" {
		srv, err := serveMetrics(c.metricsAddr, s)
		if err != nil {
			logger.Error("metrics server failed", "addr", c.metricsAddr, "error", err)
			return subcommands.ExitFailure
		}
		defer srv.Close()
		logger.Info("serving metrics", "addr", c.metricsAddr)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("ops"),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount())

	params := stressParams{
		Duration:   c.duration,
		Workers:    c.workers,
		Window:     int32(c.window),
		CloneEvery: c.cloneEvery,
	}
	res, err := runStress(ctx, s, params, func(n int) { bar.Add(n) })
	bar.Finish()
	fmt.Println()

	s.DebugLog()
	s.Close()
	st := s.Stats()

	logger.Info("stress done",
		"ops", res.Ops,
		"created", res.Created,
		"deleted", res.Deleted,
		"clones", res.Clones,
		"reclaimed", st.Reclaimed,
		"migrations", st.Map.Migrations)

	if err != nil {
		logger.Error("stress failed", "error", err)
		return subcommands.ExitFailure
	}
	if st.ReclaimPending != 0 {
		logger.Error("reclamation backlog after close", "pending", st.ReclaimPending)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func serveMetrics(addr string, s *tilestore.Store) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if err := metrics.Register(reg, "stress", s); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return nil, err
	case <-time.After(100 * time.Millisecond):
		return srv, nil
	}
}

// runStress runs random store operations from p.Workers goroutines until
// p.Duration elapses or ctx is done. A separate goroutine clones the store
// every p.CloneEvery and checks the clone is consistent.
func runStress(ctx context.Context, s *tilestore.Store, p stressParams, progress func(int)) (stressResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Duration)
	defer cancel()

	var ops, created, deleted, clones atomic.Int64
	g, ctx := errgroup.WithContext(ctx)

	for w := range p.Workers {
		g.Go(func() error {
			rnd := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
			span := 2*p.Window + 1
			const batch = 256
			for i := 1; ctx.Err() == nil; i++ {
				id := tile.ID{Col: rnd.Int32N(span) - p.Window, Row: rnd.Int32N(span) - p.Window}
				if err := stressOp(s, id, rnd.IntN(10), &created, &deleted); err != nil {
					return err
				}
				if i%batch == 0 {
					ops.Add(batch)
					progress(batch)
				}
			}
			return nil
		})
	}

	if p.CloneEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(p.CloneEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
				if err := checkClone(s); err != nil {
					return err
				}
				clones.Add(1)
			}
		})
	}

	err := g.Wait()
	res := stressResult{
		Ops:     ops.Load(),
		Created: created.Load(),
		Deleted: deleted.Load(),
		Clones:  clones.Load(),
	}
	return res, err
}

func stressOp(s *tilestore.Store, id tile.ID, op int, created, deleted *atomic.Int64) error {
	switch op {
	case 0, 1, 2:
		t, isNew := s.GetOrCreateTile(id)
		t.Write(func(pixels []byte) {
			if len(pixels) > 0 {
				pixels[0]++
			}
		})
		t.Release()
		if isNew {
			created.Add(1)
		}
	case 3, 4:
		if t := s.GetExistingTile(id); t != nil {
			if t.Freed() {
				return fmt.Errorf("lookup of %v returned a freed tile", id)
			}
			t.Read(func([]byte) {})
			t.Release()
		}
	case 5:
		if s.DeleteTile(id) {
			deleted.Add(1)
		}
	case 6:
		t := s.NewTile(id, nil)
		s.AddTile(t)
		t.Release()
	case 7:
		t, _ := s.GetReadOnlyTile(id)
		t.Read(func([]byte) {})
		t.Release()
	case 8:
		s.TileExists(id)
	case 9:
		if t := s.GetExistingTile(id); t != nil {
			if s.DeleteTileObject(t) {
				deleted.Add(1)
			}
			t.Release()
		}
	}
	return nil
}

func checkClone(s *tilestore.Store) error {
	c := s.Clone()
	defer c.Close()

	visited := 0
	err := c.VisitTiles(func(t *tile.Tile) error {
		if t.Freed() {
			return fmt.Errorf("clone holds freed tile %v", t.ID())
		}
		visited++
		return nil
	})
	if err != nil {
		return err
	}
	if n := c.NumTiles(); n != visited {
		return fmt.Errorf("clone reports %d tiles, visited %d", n, visited)
	}
	return nil
}
