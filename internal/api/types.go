package api

import (
	"time"

	"gametrack/internal/enrich"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// StartRequest submits rows for enrichment.
type StartRequest struct {
	Rows   []enrich.RowInput `json:"rows"`
	Region string            `json:"region,omitempty"`
}

// ResultRow is one library entry's resolved metadata.
type ResultRow struct {
	RowID        string   `json:"rowId"`
	IdentityID   string   `json:"identityId,omitempty"`
	Title        string   `json:"title"`
	AppID        *int64   `json:"appid,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	CurrencyCode string   `json:"currencyCode,omitempty"`
	TTB          *float64 `json:"ttb,omitempty"`
	TTBSource    string   `json:"ttbSource,omitempty"`
	CriticScore  *int     `json:"criticScore,omitempty"`
	CriticSource string   `json:"criticSource,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// ResultsResponse wraps resolved metadata rows.
type ResultsResponse struct {
	Items []ResultRow `json:"items"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool           `json:"running"`
	PID             int            `json:"pid"`
	DatabasePath    string         `json:"databasePath"`
	LockFilePath    string         `json:"lockFilePath"`
	BridgeAvailable bool           `json:"bridgeAvailable"`
	Phase           enrich.Phase   `json:"phase"`
	SessionID       string         `json:"sessionId,omitempty"`
	Counts          map[string]int `json:"counts"`
}

// LogEvent is a structured log line for live tailing.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	RowID     string            `json:"rowId,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse is a page of log events and the cursor for the next call.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
