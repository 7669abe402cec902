package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/eak1mov/go-tilestore/archive"
	"github.com/eak1mov/go-tilestore/index"
	"github.com/eak1mov/go-tilestore/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type exportCmd struct {
	app             *app
	inputPath       string
	outputIndexPath string
	outputTilesPath string
}

func (c *exportCmd) Name() string     { return "export_index" }
func (c *exportCmd) Synopsis() string { return "export tile index and data from an archive" }
func (c *exportCmd) Usage() string {
	return "tilestore export_index -i <path> -o <path> -t <path>\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input archive path")
	f.StringVar(&c.outputIndexPath, "o", "", "Output index file path")
	f.StringVar(&c.outputTilesPath, "t", "", "Output tiles file path")
}

// progressVisitor advances a progress bar for every visited tile.
type progressVisitor struct {
	tile.Visitor
	bar *progressbar.ProgressBar
}

func (v progressVisitor) VisitTiles(visitor func(*tile.Tile) error) error {
	return v.Visitor.VisitTiles(func(t *tile.Tile) error {
		v.bar.Add(1)
		return visitor(t)
	})
}

func (c *exportCmd) export() error {
	s := c.app.newStore()
	defer s.Close()

	n, err := archive.Load(c.inputPath, s)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.inputPath, err)
	}
	c.app.logger.Info("archive loaded", "path", c.inputPath, "tiles", n)

	tilesFile, err := os.Create(c.outputTilesPath)
	if err != nil {
		return err
	}
	defer tilesFile.Close()
	tilesWriter := bufio.NewWriter(tilesFile)

	bar := progressbar.NewOptions(s.NumTiles(), progressbar.OptionShowIts(), progressbar.OptionShowCount())
	items, err := index.Build(progressVisitor{Visitor: s, bar: bar}, tilesWriter)
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}
	if err := tilesWriter.Flush(); err != nil {
		return err
	}

	indexFile, err := os.Create(c.outputIndexPath)
	if err != nil {
		return err
	}
	defer indexFile.Close()
	indexWriter := bufio.NewWriter(indexFile)
	if err := index.WriteAll(items, indexWriter); err != nil {
		return err
	}
	return indexWriter.Flush()
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputIndexPath == "" || c.outputTilesPath == "" {
		c.app.logger.Error("missing required flags", "usage", c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.export(); err != nil {
		c.app.logger.Error("export failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
