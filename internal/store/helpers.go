package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

type scanner interface {
	Scan(dest ...any) error
}

// nullString stores the empty string as NULL.
func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// nullTime stores the zero time as NULL.
func nullTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(timeLayout)
}

// nullPtr stores a nil pointer as NULL and otherwise the pointed-to value.
func nullPtr[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}

func sqlBool(value bool) int {
	if value {
		return 1
	}
	return 0
}

// ptrOf is the inverse of nullPtr for scanned columns.
func ptrOf[T any](value sql.Null[T]) *T {
	if !value.Valid {
		return nil
	}
	v := value.V
	return &v
}

// parseTime reads a stored timestamp. NULL or unparseable values yield the
// zero time.
func parseTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	return string(data), err
}

func decodeJSON(raw sql.NullString, dest any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dest)
}
