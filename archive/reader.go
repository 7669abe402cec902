// Package archive stores tiles and their default data in SQLite files.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package archive

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eak1mov/go-tilestore/tile"
)

type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader opens the archive at filePath read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	if err := checkSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

// ReadDefaultData returns the stored default payload, or nil and false
// when the archive has none.
func (r *Reader) ReadDefaultData() ([]byte, bool, error) {
	var data []byte
	if err := r.db.QueryRow("SELECT data FROM default_data").Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// ReadTile returns the payload of the tile at id, or an empty slice if
// there is none.
func (r *Reader) ReadTile(id tile.ID) ([]byte, error) {
	var tileData []byte
	if err := r.stmt.QueryRow(id.Col, id.Row).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}

	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id tile.ID
		var tileData []byte

		if err := rows.Scan(&id.Col, &id.Row, &tileData); err != nil {
			return err
		}
		if !id.Valid() {
			return fmt.Errorf("archive: invalid tile %v", id)
		}

		if err := visitor(id, tileData); err != nil {
			return err
		}
	}

	return rows.Err()
}
