package archive_test

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"testing"

	"github.com/eak1mov/go-tilestore/archive"
	"github.com/eak1mov/go-tilestore/internal"
	"github.com/eak1mov/go-tilestore/tile"
	"github.com/eak1mov/go-tilestore/tilestore"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

const tileSize = 32

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")
	defaults := internal.Payload(tile.ID{Col: 9, Row: 9}, tileSize)

	src := tilestore.New(tilestore.WithDefaultData(tile.NewData(defaults)))
	defer src.Close()
	ids := slices.Collect(internal.Grid(4))
	for _, id := range ids {
		tl, _ := src.GetOrCreateTile(id)
		tl.Write(func(pixels []byte) { copy(pixels, internal.Payload(id, tileSize)) })
		tl.Release()
	}

	if err := archive.Save(src, path, archive.WithMetadata(map[string]string{"name": "test"})); err != nil {
		t.Fatal(err)
	}

	dst := tilestore.New()
	defer dst.Close()
	n, err := archive.Load(path, dst)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n, len(ids); got != want {
		t.Errorf("Load() = %v tiles, want = %v", got, want)
	}
	if got, want := dst.NumTiles(), len(ids); got != want {
		t.Errorf("NumTiles() = %v, want = %v", got, want)
	}
	for _, id := range ids {
		tl := dst.GetExistingTile(id)
		if tl == nil {
			t.Errorf("GetExistingTile(%v) = nil after Load", id)
			continue
		}
		if diff := cmp.Diff(internal.Payload(id, tileSize), tl.Bytes()); diff != "" {
			t.Errorf("tile %v mismatch (-want+got):\n%v", id, diff)
		}
		tl.Release()
	}

	d := dst.DefaultData()
	if d == nil {
		t.Fatalf("DefaultData() = nil after Load")
	}
	if diff := cmp.Diff(defaults, d.Bytes()); diff != "" {
		t.Errorf("default data mismatch (-want+got):\n%v", diff)
	}
	d.Release()
}

func TestReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")

	w, err := archive.NewWriter(path, archive.WithMetadata(map[string]string{"name": "test", "format": "raw"}))
	if err != nil {
		t.Fatal(err)
	}
	id := tile.ID{Col: -100, Row: 200}
	if err := w.WriteTile(id, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTile(tile.NoID, []byte{1}); err == nil {
		t.Errorf("WriteTile(NoID) succeeded")
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := archive.NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	metadata, err := r.ReadMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"name": "test", "format": "raw"}, metadata); diff != "" {
		t.Errorf("ReadMetadata() mismatch (-want+got):\n%v", diff)
	}

	data, err := r.ReadTile(id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, data); diff != "" {
		t.Errorf("ReadTile(%v) mismatch (-want+got):\n%v", id, diff)
	}

	data, err = r.ReadTile(tile.ID{Col: 0, Row: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("ReadTile() of missing tile = %v, want empty", data)
	}

	if _, ok, err := r.ReadDefaultData(); err != nil || ok {
		t.Errorf("ReadDefaultData() = %v, %v, want none", ok, err)
	}
}

func TestUnfinalizedWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")

	w, err := archive.NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTile(tile.ID{Col: 1, Row: 1}, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	s := tilestore.New()
	defer s.Close()
	n, err := archive.Load(path, s)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || !s.IsEmpty() {
		t.Errorf("Load() of unfinalized archive = %v tiles, want = 0", n)
	}
}

func TestConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			w, err := archive.NewWriter(filepath.Join(dir, fmt.Sprintf("tiles%d.db", i)))
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.WriteTile(tile.ID{Col: int32(i), Row: 0}, []byte{byte(i)}); err != nil {
				return err
			}
			return w.Finalize()
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for i := range 8 {
		r, err := archive.NewReader(filepath.Join(dir, fmt.Sprintf("tiles%d.db", i)))
		if err != nil {
			t.Fatal(err)
		}
		data, err := r.ReadTile(tile.ID{Col: int32(i), Row: 0})
		r.Close()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte{byte(i)}, data); diff != "" {
			t.Errorf("archive %d tile mismatch (-want+got):\n%v", i, diff)
		}
	}
}

func TestDuplicateTiles(t *testing.T) {
	w, err := archive.NewWriter(filepath.Join(t.TempDir(), "tiles.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for range 2 {
		if err := w.WriteTile(tile.ID{Col: 3, Row: 3}, []byte{3}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Finalize(); err == nil {
		t.Errorf("Finalize() with duplicate tiles succeeded")
	}
}

func TestExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")
	w, err := archive.NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	if _, err := archive.NewWriter(path); !errors.Is(err, fs.ErrExist) {
		t.Errorf("NewWriter() on existing file error = %v, want = %v", err, fs.ErrExist)
	}
}

func TestNotArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE things (name TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := archive.NewReader(path); !errors.Is(err, archive.ErrNotArchive) {
		t.Errorf("NewReader() error = %v, want = %v", err, archive.ErrNotArchive)
	}
}
