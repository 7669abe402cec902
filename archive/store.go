package archive

import (
	"errors"

	"github.com/eak1mov/go-tilestore/tile"
	"github.com/eak1mov/go-tilestore/tilestore"
)

// Save writes the default data and every tile of s to a new archive at
// filePath. The store is held exclusively while its tiles are written.
func Save(s *tilestore.Store, filePath string, opts ...WriterOption) (err error) {
	w, err := NewWriter(filePath, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	if d := s.DefaultData(); d != nil {
		err := w.WriteDefaultData(d.Bytes())
		d.Release()
		if err != nil {
			return err
		}
	}

	err = s.VisitTiles(func(t *tile.Tile) error {
		return w.WriteTile(t.ID(), t.Bytes())
	})
	if err != nil {
		return err
	}

	return w.Finalize()
}

// Load adds the tiles of the archive at filePath to s, replacing tiles at
// the same coordinates, and sets the default data if the archive has one.
// It returns the number of tiles loaded.
func Load(filePath string, s *tilestore.Store) (n int, err error) {
	r, err := NewReader(filePath)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, r.Close())
	}()

	data, ok, err := r.ReadDefaultData()
	if err != nil {
		return 0, err
	}
	if ok {
		s.SetDefaultData(tile.NewData(data))
	}

	err = r.VisitTiles(func(id tile.ID, tileData []byte) error {
		t := s.NewTile(id, tile.NewData(tileData))
		s.AddTile(t)
		t.Release()
		n++
		return nil
	})
	return n, err
}
