package archive

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotArchive is returned when opening a file that lacks the archive schema.
var ErrNotArchive = errors.New("archive: not a tile archive")

func runMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)
	return err
}

func checkSchema(db *sql.DB) error {
	var n int
	err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('tiles', 'metadata', 'default_data')").Scan(&n)
	if err != nil {
		return err
	}
	if n != 3 {
		return ErrNotArchive
	}
	return nil
}
