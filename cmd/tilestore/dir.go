package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/eak1mov/go-tilestore/archive"
	"github.com/eak1mov/go-tilestore/tile"
	"github.com/eak1mov/go-tilestore/tiledir"
	"github.com/google/subcommands"
)

type exportDirCmd struct {
	app         *app
	inputPath   string
	filePattern string
}

func (c *exportDirCmd) Name() string     { return "export_dir" }
func (c *exportDirCmd) Synopsis() string { return "write archive tiles as individual files" }
func (c *exportDirCmd) Usage() string {
	return "tilestore export_dir -i <path> -o <dir>/{row}/{col}.bin\n"
}
func (c *exportDirCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input archive path")
	f.StringVar(&c.filePattern, "o", "", "Output file pattern with {col} and {row} placeholders")
}

func (c *exportDirCmd) exportDir() error {
	writer, err := tiledir.NewWriter(c.filePattern)
	if err != nil {
		return err
	}

	s := c.app.newStore()
	defer s.Close()
	if _, err := archive.Load(c.inputPath, s); err != nil {
		return fmt.Errorf("load %s: %w", c.inputPath, err)
	}

	n, err := writer.WriteAll(s)
	c.app.logger.Info("tiles written", "pattern", c.filePattern, "tiles", n)
	return err
}

func (c *exportDirCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.filePattern == "" {
		c.app.logger.Error("missing required flags", "usage", c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.exportDir(); err != nil {
		c.app.logger.Error("export failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type importDirCmd struct {
	app         *app
	filePattern string
	outputPath  string
}

func (c *importDirCmd) Name() string     { return "import_dir" }
func (c *importDirCmd) Synopsis() string { return "create an archive from individual tile files" }
func (c *importDirCmd) Usage() string {
	return "tilestore import_dir -i <dir>/{row}/{col}.bin -o <path>\n"
}
func (c *importDirCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.filePattern, "i", "", "Input file pattern with {col} and {row} placeholders")
	f.StringVar(&c.outputPath, "o", "", "Output archive path")
}

func (c *importDirCmd) importDir() error {
	reader, err := tiledir.NewReader(c.filePattern)
	if err != nil {
		return err
	}

	s := c.app.newStore()
	defer s.Close()
	err = reader.VisitTiles(func(id tile.ID, tileData []byte) error {
		t := s.NewTile(id, tile.NewData(tileData))
		s.AddTile(t)
		t.Release()
		return nil
	})
	if err != nil {
		return err
	}
	c.app.logger.Info("tiles read", "pattern", c.filePattern, "tiles", s.NumTiles())

	return archive.Save(s, c.outputPath, archive.WithLogger(c.app.logger.Slog()))
}

func (c *importDirCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.filePattern == "" || c.outputPath == "" {
		c.app.logger.Error("missing required flags", "usage", c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.importDir(); err != nil {
		c.app.logger.Error("import failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
