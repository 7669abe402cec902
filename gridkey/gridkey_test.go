package gridkey_test

import (
	"testing"

	"github.com/eak1mov/go-tilestore/gridkey"
)

// The key is the concatenation of two 16-bit halves, so it is unique over the
// grid iff each half is unique over its axis and the halves compose.
func TestHashUnique(t *testing.T) {
	const lo, hi = -gridkey.Limit + 1, gridkey.Limit - 1

	cols := make(map[uint32]int32)
	rows := make(map[uint32]int32)
	for v := int32(lo); v <= hi; v++ {
		colHalf := gridkey.Hash(v, 1) & 0xFFFF
		if prev, ok := cols[colHalf]; ok {
			t.Fatalf("columns %d and %d share key half %#x", prev, v, colHalf)
		}
		cols[colHalf] = v

		rowHalf := gridkey.Hash(1, v) >> 16
		if prev, ok := rows[rowHalf]; ok {
			t.Fatalf("rows %d and %d share key half %#x", prev, v, rowHalf)
		}
		rows[rowHalf] = v
	}

	for col := int32(lo); col <= hi; col += 97 {
		for row := int32(lo); row <= hi; row += 89 {
			if col == 0 && row == 0 {
				continue
			}
			key := gridkey.Hash(col, row)
			if key == 0 {
				t.Fatalf("Hash(%d, %d) = 0, reserved", col, row)
			}
			want := gridkey.Hash(1, row)&0xFFFF0000 | gridkey.Hash(col, 1)&0xFFFF
			if key != want {
				t.Fatalf("Hash(%d, %d) = %#x, want = %#x", col, row, key, want)
			}
		}
	}
}

func TestOrigin(t *testing.T) {
	if got, want := gridkey.Hash(0, 0), gridkey.Origin; got != want {
		t.Errorf("Hash(0, 0) = %#x, want = %#x", got, want)
	}
	if gridkey.Origin == 0 {
		t.Errorf("Origin must differ from the empty key")
	}
	for _, tc := range []struct{ col, row int32 }{
		{gridkey.Limit - 1, gridkey.Limit - 1},
		{-1, -1},
		{0, 1},
		{1, 0},
	} {
		if gridkey.Hash(tc.col, tc.row) == gridkey.Origin {
			t.Errorf("Hash(%d, %d) collides with Origin", tc.col, tc.row)
		}
	}
}

func TestCoords(t *testing.T) {
	for _, tc := range []struct{ col, row int32 }{
		{0, 0},
		{1, 0},
		{0, 1},
		{-1, -1},
		{100, 100},
		{-5, -5},
		{gridkey.Limit - 1, -(gridkey.Limit - 1)},
		{-(gridkey.Limit - 1), gridkey.Limit - 1},
	} {
		col, row := gridkey.Coords(gridkey.Hash(tc.col, tc.row))
		if col != tc.col || row != tc.row {
			t.Errorf("Coords(Hash(%d, %d)) = (%d, %d)", tc.col, tc.row, col, row)
		}
	}
}

func TestHashOutOfRange(t *testing.T) {
	for _, tc := range []struct{ col, row int32 }{
		{gridkey.Limit, 0},
		{0, gridkey.Limit},
		{-gridkey.Limit, 0},
		{0, -gridkey.Limit},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Hash(%d, %d) did not panic", tc.col, tc.row)
				}
			}()
			gridkey.Hash(tc.col, tc.row)
		}()
	}
}
