package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"slices"

	"github.com/eak1mov/go-tilestore/archive"
	"github.com/google/subcommands"
)

type infoCmd struct {
	app       *app
	inputPath string
}

func (c *infoCmd) Name() string     { return "info" }
func (c *infoCmd) Synopsis() string { return "print archive metadata and store statistics" }
func (c *infoCmd) Usage() string {
	return "tilestore info -i <path>\n"
}
func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input archive path")
}

func (c *infoCmd) info() error {
	r, err := archive.NewReader(c.inputPath)
	if err != nil {
		return err
	}
	metadata, err := r.ReadMetadata()
	r.Close()
	if err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(metadata)) {
		fmt.Printf("%s: %s\n", k, metadata[k])
	}

	s := c.app.newStore()
	defer s.Close()
	if _, err := archive.Load(c.inputPath, s); err != nil {
		return err
	}

	st := s.Stats()
	fmt.Printf("tiles: %d\n", st.Tiles)
	fmt.Printf("map capacity: %d (%d shards)\n", st.Map.Capacity, st.Map.Shards)
	fmt.Printf("map probe length: %d..%d\n", st.Map.MinProbe, st.Map.MaxProbe)
	fmt.Printf("map migrations: %d\n", st.Map.Migrations)
	return nil
}

func (c *infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" {
		c.app.logger.Error("missing required flags", "usage", c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.info(); err != nil {
		c.app.logger.Error("info failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
