package tiledir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilestore/tile"
)

type Writer struct {
	filePattern string
}

// NewWriter creates a new Writer for the given file pattern
// (e.g. "/home/user/tiles/{row}/{col}.bin").
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern}, nil
}

func (w *Writer) WriteTile(id tile.ID, tileData []byte) error {
	if !id.Valid() {
		return fmt.Errorf("tiledir: invalid tile %v", id)
	}
	filePath := formatPattern(w.filePattern, id)

	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, tileData, 0644)
}

// WriteAll writes every tile of v.
func (w *Writer) WriteAll(v tile.Visitor) (n int, err error) {
	err = v.VisitTiles(func(t *tile.Tile) error {
		if err := w.WriteTile(t.ID(), t.Bytes()); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
