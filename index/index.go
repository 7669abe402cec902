// Package index provides a flat binary index of tile payloads stored back to
// back in a blob.
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/eak1mov/go-tilestore/tile"
)

// Item represents a single record in the index, mapping tile coordinates
// (Col, Row) to the location (Offset, Length) of its payload in the blob.
// It is designed to be easily portable to other languages and utilities.
type Item struct {
	Col    int32
	Row    int32
	Length uint32
	Offset uint64
}

var ErrTruncated = errors.New("index: truncated data")

func (i Item) TileID() tile.ID {
	return tile.ID{Col: i.Col, Row: i.Row}
}

// Payload returns the bytes of the item within blob.
func (i Item) Payload(blob []byte) ([]byte, error) {
	end := i.Offset + uint64(i.Length)
	if end > uint64(len(blob)) {
		return nil, fmt.Errorf("tile %v ends at %d past blob size %d: %w", i.TileID(), end, len(blob), ErrTruncated)
	}
	return blob[i.Offset:end], nil
}

func WriteAll(items []Item, writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, items)
}

func ReadAll(indexData []byte) ([]Item, error) {
	size := binary.Size(Item{})
	if len(indexData)%size != 0 {
		return nil, fmt.Errorf("index of %d bytes, item size %d: %w", len(indexData), size, ErrTruncated)
	}
	items := make([]Item, len(indexData)/size)

	err := binary.Read(bytes.NewReader(indexData), binary.LittleEndian, items)
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Build writes the payload of every tile of v to writer and returns the
// index of what was written, ordered along the Hilbert curve.
func Build(v tile.Visitor, writer io.Writer) ([]Item, error) {
	var items []Item
	var offset uint64
	err := v.VisitTiles(func(t *tile.Tile) error {
		data := t.Bytes()
		if _, err := writer.Write(data); err != nil {
			return err
		}
		id := t.ID()
		items = append(items, Item{Col: id.Col, Row: id.Row, Length: uint32(len(data)), Offset: offset})
		offset += uint64(len(data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortHilbert(items)
	return items, nil
}
