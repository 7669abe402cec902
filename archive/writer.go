package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/eak1mov/go-tilestore/tile"
)

// Writer writes tiles into a new archive file. Tiles become visible to
// readers once Finalize succeeds.
type Writer struct {
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	logger    *slog.Logger
	tiles     int
	finalized bool
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates the archive file at filePath, which must not exist.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	if _, err := os.Stat(filePath); err == nil {
		return nil, fmt.Errorf("archive: %s: %w", filePath, fs.ErrExist)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if err = runMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("archive: migrate %s: %w", filePath, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for k, v := range config.Metadata {
		_, err = tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	stmt, err := tx.Prepare("INSERT INTO tiles (tile_column, tile_row, tile_data) VALUES (?, ?, ?)")
	if err != nil {
		return nil, err
	}

	return &Writer{db: db, tx: tx, stmt: stmt, logger: config.Logger}, nil
}

// Close releases the database. Tiles written after the last Finalize are
// discarded.
func (w *Writer) Close() error {
	var rollbackErr error
	if !w.finalized {
		rollbackErr = w.tx.Rollback()
	}
	return errors.Join(w.stmt.Close(), rollbackErr, w.db.Close())
}

func (w *Writer) WriteTile(id tile.ID, tileData []byte) error {
	if !id.Valid() {
		return fmt.Errorf("archive: invalid tile %v", id)
	}
	_, err := w.stmt.Exec(id.Col, id.Row, tileData)
	if err == nil {
		w.tiles++
	}
	return err
}

// WriteDefaultData stores the payload tiles are created from when loading.
func (w *Writer) WriteDefaultData(data []byte) error {
	if _, err := w.tx.Exec("DELETE FROM default_data"); err != nil {
		return err
	}
	_, err := w.tx.Exec("INSERT INTO default_data (data) VALUES (?)", data)
	return err
}

// Finalize commits the written tiles and indexes them. Duplicate tile
// coordinates make it fail.
func (w *Writer) Finalize() error {
	if w.finalized {
		panic("archive: finalize called twice")
	}
	w.finalized = true

	w.logger.Debug("archive: commit", "tiles", w.tiles)
	if err := w.tx.Commit(); err != nil {
		return err
	}

	w.logger.Debug("archive: creating index")
	_, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (tile_column, tile_row)")

	w.logger.Debug("archive: done")
	return err
}
