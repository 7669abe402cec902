// Package tiledir reads and writes tiles as individual files with paths like
// "/dir/{row}/{col}.bin".
package tiledir

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilestore/tile"
)

var ErrInvalidPattern = errors.New("tiledir: invalid file pattern")

func validatePattern(pattern string) error {
	for _, p := range []string{"{col}", "{row}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, id tile.ID) string {
	result := pattern
	result = strings.ReplaceAll(result, "{col}", strconv.Itoa(int(id.Col)))
	result = strings.ReplaceAll(result, "{row}", strconv.Itoa(int(id.Row)))
	return result
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	regexPattern := regexp.QuoteMeta(pattern)
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{col}"), `(?P<col>-?\d+)`)
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{row}"), `(?P<row>-?\d+)`)
	pathRegexp, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return pathRegexp, nil
}
