package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/eak1mov/go-tilestore/archive"
	"github.com/eak1mov/go-tilestore/index"
	"github.com/eak1mov/go-tilestore/tile"
	"github.com/eak1mov/go-tilestore/tilestore"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type importCmd struct {
	app            *app
	inputIndexPath string
	inputTilesPath string
	outputPath     string
}

func (c *importCmd) Name() string     { return "import_index" }
func (c *importCmd) Synopsis() string { return "create an archive from exported tile index and data" }
func (c *importCmd) Usage() string {
	return "tilestore import_index -i <path> -t <path> -o <path>\n"
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputIndexPath, "i", "", "Input index file path")
	f.StringVar(&c.inputTilesPath, "t", "", "Input tiles file path")
	f.StringVar(&c.outputPath, "o", "", "Output archive path")
}

func (c *importCmd) importIndex() error {
	indexData, err := os.ReadFile(c.inputIndexPath)
	if err != nil {
		return err
	}

	indexItems, err := index.ReadAll(indexData)
	if err != nil {
		return err
	}

	tilesFile, err := os.Open(c.inputTilesPath)
	if err != nil {
		return err
	}
	defer tilesFile.Close()

	s := c.app.newStore(tilestore.WithCapacity(len(indexItems)))
	defer s.Close()

	slices.SortFunc(indexItems, func(a, b index.Item) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	bar := progressbar.New(len(indexItems))

	for _, item := range indexItems {
		id := item.TileID()
		if !id.Valid() {
			return fmt.Errorf("index item with invalid tile %v", id)
		}
		tileData := make([]byte, item.Length)
		if _, err := tilesFile.ReadAt(tileData, int64(item.Offset)); err != nil {
			return fmt.Errorf("tile %v: %w", id, err)
		}
		t := s.NewTile(id, tile.NewData(tileData))
		s.AddTile(t)
		t.Release()
		bar.Add(1)
	}

	bar.Finish()
	fmt.Println()

	return archive.Save(s, c.outputPath, archive.WithLogger(c.app.logger.Slog()))
}

func (c *importCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputIndexPath == "" || c.inputTilesPath == "" || c.outputPath == "" {
		c.app.logger.Error("missing required flags", "usage", c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.importIndex(); err != nil {
		c.app.logger.Error("import failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
