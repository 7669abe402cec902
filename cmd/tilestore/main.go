package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/eak1mov/go-tilestore/tile"
	"github.com/eak1mov/go-tilestore/tilestore"
	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"
)

// app carries what every command shares.
type app struct {
	cfg    *Config
	logger *ZapLogger
}

func (a *app) newStore(opts ...tilestore.Option) *tilestore.Store {
	base := []tilestore.Option{
		tilestore.WithLogger(a.logger.Slog()),
		tilestore.WithShards(a.cfg.Store.Shards),
		tilestore.WithReclaimHighWater(a.cfg.Store.ReclaimHighWater),
		tilestore.WithDefaultData(tile.NewData(make([]byte, a.cfg.Store.TileSize))),
	}
	return tilestore.New(append(base, opts...)...)
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := NewZapLogger(cfg.Logger)
	defer logger.Sync()

	a := &app{cfg: cfg, logger: logger}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(&stressCmd{app: a}, "")
	subcommands.Register(&exportCmd{app: a}, "")
	subcommands.Register(&importCmd{app: a}, "")
	subcommands.Register(&exportDirCmd{app: a}, "")
	subcommands.Register(&importDirCmd{app: a}, "")
	subcommands.Register(&infoCmd{app: a}, "")

	flag.Parse()
	status := subcommands.Execute(context.Background())
	logger.Sync()
	os.Exit(int(status))
}
