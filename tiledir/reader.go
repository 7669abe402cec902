package tiledir

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/eak1mov/go-tilestore/tile"
)

type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
}

// NewReader creates a new Reader for the given file pattern
// (e.g. "/home/user/tiles/{row}/{col}.bin").
func NewReader(filePattern string) (*Reader, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}

	pathRegexp, err := compilePattern(filePattern)
	if err != nil {
		return nil, err
	}

	path0 := formatPattern(filePattern, tile.ID{Col: 0, Row: 0})
	path1 := formatPattern(filePattern, tile.ID{Col: 1, Row: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}

	return &Reader{filePattern, path0, pathRegexp}, nil
}

// ReadTile returns the payload of the tile at id, or an empty slice if
// there is no file for it.
func (r *Reader) ReadTile(id tile.ID) ([]byte, error) {
	tileData, err := os.ReadFile(formatPattern(r.filePattern, id))
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// VisitTiles calls visitor for every file matching the pattern. Files that
// do not match are skipped.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}

		col, errCol := strconv.ParseInt(matches[r.pathRegexp.SubexpIndex("col")], 10, 32)
		row, errRow := strconv.ParseInt(matches[r.pathRegexp.SubexpIndex("row")], 10, 32)
		id := tile.ID{Col: int32(col), Row: int32(row)}
		if errCol != nil || errRow != nil || !id.Valid() {
			return fmt.Errorf("tiledir: %s: coordinates out of range", filePath)
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}

		return visitor(id, tileData)
	})
}
