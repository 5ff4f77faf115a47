// Package dataset loads the offline playtime dataset and the critic-score
// vendor index from CSV exports and answers lookups by normalized title.
//
// Lookups never fail: a miss is reported as ok=false. Entries are grouped by
// title key; when several entries share a key, an optional platform narrows
// the candidates before the best one is chosen.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type columnIndex map[string]int

func readHeader(cr *csv.Reader) (columnIndex, error) {
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(columnIndex, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}
	return cols, nil
}

func (c columnIndex) require(names ...string) error {
	for _, name := range names {
		if _, ok := c[name]; !ok {
			return fmt.Errorf("missing required column %q", name)
		}
	}
	return nil
}

func (c columnIndex) get(rec []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func eachRecord(r io.Reader, required []string, fn func(cols columnIndex, rec []string)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	cols, err := readHeader(cr)
	if err != nil {
		return err
	}
	if err := cols.require(required...); err != nil {
		return err
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		fn(cols, rec)
	}
}

func openFile(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return file, nil
}

func splitPlatforms(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
