package tilestore

import (
	"log/slog"

	"github.com/eak1mov/go-tilestore/tile"
)

type config struct {
	Logger      *slog.Logger
	Factory     tile.Factory
	Tracker     tile.Tracker
	Shards      int
	Capacity    int
	DefaultData *tile.Data
	HighWater   int
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithFactory sets the constructor of new tiles. The default is tile.New.
func WithFactory(f tile.Factory) Option {
	return func(c *config) { c.Factory = f }
}

// WithTracker sets the tracker handed to every tile the store creates.
func WithTracker(tr tile.Tracker) Option {
	return func(c *config) { c.Tracker = tr }
}

// WithShards sets the number of map shards.
func WithShards(n int) Option {
	return func(c *config) { c.Shards = n }
}

// WithCapacity presizes the map for n tiles.
func WithCapacity(n int) Option {
	return func(c *config) { c.Capacity = n }
}

// WithDefaultData sets the initial default data.
func WithDefaultData(d *tile.Data) Option {
	return func(c *config) { c.DefaultData = d }
}

// WithReclaimHighWater sets the reclamation backlog above which writers
// wait for the reclamation queue instead of skipping the cleanup.
func WithReclaimHighWater(n int) Option {
	return func(c *config) { c.HighWater = n }
}
