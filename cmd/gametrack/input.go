package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gametrack/internal/api"
	"gametrack/internal/enrich"
)

// readRows loads row inputs from path, or stdin when path is "-". JSON input is
// either an array of rows or a start request object; anything else is parsed
// as CSV with a header row.
func readRows(path string, stdin io.Reader) ([]enrich.RowInput, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("read rows: input is empty")
	}
	isJSON := trimmed[0] == '[' || trimmed[0] == '{' || strings.EqualFold(filepath.Ext(path), ".json")
	if isJSON {
		return parseJSONRows(trimmed)
	}
	return parseCSVRows(bytes.NewReader(trimmed))
}

func parseJSONRows(data []byte) ([]enrich.RowInput, error) {
	if data[0] == '[' {
		var rows []enrich.RowInput
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parse rows json: %w", err)
		}
		return rows, nil
	}
	var req api.StartRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse rows json: %w", err)
	}
	return req.Rows, nil
}

var csvColumns = map[string]string{
	"id":          "id",
	"row_id":      "id",
	"identity_id": "identity",
	"identityid":  "identity",
	"title":       "title",
	"name":        "title",
	"appid":       "appid",
	"app_id":      "appid",
	"steam_appid": "appid",
	"platform":    "platform",
}

func parseCSVRows(r io.Reader) ([]enrich.RowInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := csvColumns[key]; ok {
			if _, seen := index[field]; !seen {
				index[field] = i
			}
		}
	}
	if _, ok := index["title"]; !ok {
		if _, ok := index["appid"]; !ok {
			return nil, errors.New("csv needs a title or appid column")
		}
	}

	get := func(rec []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []enrich.RowInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := enrich.RowInput{
			ID:         get(rec, "id"),
			IdentityID: get(rec, "identity"),
			Title:      get(rec, "title"),
			Platform:   get(rec, "platform"),
		}
		if raw := get(rec, "appid"); raw != "" {
			appID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: invalid appid %q", line, raw)
			}
			row.AppID = &appID
		}
		if row.ID == "" {
			row.ID = "row-" + strconv.Itoa(line-1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
