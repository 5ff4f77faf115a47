package api

import (
	"gametrack/internal/enrich"
	"gametrack/internal/logging"
	"gametrack/internal/store"
)

// FromResolved converts a stored metadata record to its API representation.
func FromResolved(meta store.ResolvedMetadata) ResultRow {
	dto := ResultRow{
		RowID:        meta.RowID,
		IdentityID:   meta.IdentityID,
		Title:        meta.Title,
		AppID:        meta.AppID,
		Price:        meta.Price,
		CurrencyCode: meta.CurrencyCode,
		TTB:          meta.TTB,
		TTBSource:    meta.TTBSource,
		CriticScore:  meta.CriticScore,
		CriticSource: meta.CriticSource,
	}
	if !meta.UpdatedAt.IsZero() {
		dto.UpdatedAt = meta.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromResolvedSlice converts stored metadata records, preserving order.
func FromResolvedSlice(items []store.ResolvedMetadata) []ResultRow {
	out := make([]ResultRow, 0, len(items))
	for _, item := range items {
		out = append(out, FromResolved(item))
	}
	return out
}

// StatusCounts tallies a snapshot's rows per status, including zero entries
// for every known status.
func StatusCounts(snap enrich.Snapshot) map[string]int {
	counts := make(map[string]int, len(enrich.AllStatuses()))
	for _, status := range enrich.AllStatuses() {
		counts[string(status)] = 0
	}
	for status, n := range snap.Counts() {
		counts[string(status)] = n
	}
	return counts
}

// FromLogEvents converts hub events to API log events.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: evt.Timestamp,
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			SessionID: evt.SessionID,
			RowID:     evt.RowID,
			Stage:     evt.Stage,
			Fields:    evt.Fields,
		})
	}
	return out
}
