package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gametrack/internal/enrich"
)

// ResolvedMetadata is the latest enrichment answer recorded for one library row.
type ResolvedMetadata struct {
	RowID        string    `json:"rowId"`
	IdentityID   string    `json:"identityId,omitempty"`
	Title        string    `json:"title"`
	AppID        *int64    `json:"appid,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	CurrencyCode string    `json:"currencyCode,omitempty"`
	TTB          *float64  `json:"ttb,omitempty"`
	TTBSource    string    `json:"ttbSource,omitempty"`
	CriticScore  *int      `json:"criticScore,omitempty"`
	CriticSource string    `json:"criticSource,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const metadataIdentity = `INSERT INTO resolved_metadata (row_id, identity_id, title, app_id, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(row_id) DO UPDATE SET
	identity_id = excluded.identity_id,
	title = excluded.title,
	app_id = excluded.app_id,
	updated_at = excluded.updated_at`

// ApplyPrice records the row's resolved price.
func (s *Store) ApplyPrice(ctx context.Context, row enrich.Row) error {
	return s.applyMetadata(ctx, row, "price",
		"UPDATE resolved_metadata SET price = ?, currency_code = ? WHERE row_id = ?",
		nullPtr(row.Price), nullString(row.CurrencyCode), row.ID)
}

// ApplyPlaytime records the row's resolved time-to-beat.
func (s *Store) ApplyPlaytime(ctx context.Context, row enrich.Row) error {
	return s.applyMetadata(ctx, row, "playtime",
		"UPDATE resolved_metadata SET ttb = ?, ttb_source = ? WHERE row_id = ?",
		nullPtr(row.TTB), nullString(row.TTBSource), row.ID)
}

// ApplyCriticScore records the row's resolved critic score.
func (s *Store) ApplyCriticScore(ctx context.Context, row enrich.Row) error {
	return s.applyMetadata(ctx, row, "critic score",
		"UPDATE resolved_metadata SET critic_score = ?, critic_source = ? WHERE row_id = ?",
		nullPtr(row.CriticScore), nullString(row.CriticSource), row.ID)
}

func (s *Store) applyMetadata(ctx context.Context, row enrich.Row, field, update string, args ...any) error {
	if row.ID == "" {
		return fmt.Errorf("apply %s: row id is required", field)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, metadataIdentity,
			row.ID,
			nullString(row.IdentityID),
			row.Title,
			nullPtr(row.AppID),
			s.timestamp(),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, update, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("apply %s for %s: %w", field, row.ID, err)
	}
	return nil
}

// GetResolved returns the recorded metadata for rowID, or nil when none exists.
func (s *Store) GetResolved(ctx context.Context, rowID string) (*ResolvedMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+resolvedColumns+" FROM resolved_metadata WHERE row_id = ?", rowID)
	meta, err := scanResolved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resolved %s: %w", rowID, err)
	}
	return &meta, nil
}

// ListResolved returns recorded metadata, most recently updated first. A
// non-positive limit returns every record.
func (s *Store) ListResolved(ctx context.Context, limit int) ([]ResolvedMetadata, error) {
	query := "SELECT " + resolvedColumns + " FROM resolved_metadata ORDER BY updated_at DESC, row_id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resolved: %w", err)
	}
	defer rows.Close()

	var out []ResolvedMetadata
	for rows.Next() {
		meta, err := scanResolved(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resolved: %w", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolved: %w", err)
	}
	return out, nil
}

const resolvedColumns = "row_id, identity_id, title, app_id, price, currency_code, ttb, ttb_source, critic_score, critic_source, updated_at"

func scanResolved(sc scanner) (ResolvedMetadata, error) {
	var (
		meta         ResolvedMetadata
		identityID   sql.NullString
		appID        sql.Null[int64]
		price        sql.Null[float64]
		currency     sql.NullString
		ttb          sql.Null[float64]
		ttbSource    sql.NullString
		criticScore  sql.Null[int]
		criticSource sql.NullString
		updatedAt    sql.NullString
	)
	if err := sc.Scan(&meta.RowID, &identityID, &meta.Title, &appID, &price, &currency, &ttb, &ttbSource, &criticScore, &criticSource, &updatedAt); err != nil {
		return ResolvedMetadata{}, err
	}
	meta.IdentityID = identityID.String
	meta.AppID = ptrOf(appID)
	meta.Price = ptrOf(price)
	meta.CurrencyCode = currency.String
	meta.TTB = ptrOf(ttb)
	meta.TTBSource = ttbSource.String
	meta.CriticScore = ptrOf(criticScore)
	meta.CriticSource = criticSource.String
	meta.UpdatedAt = parseTime(updatedAt)
	return meta, nil
}

// LatestForIdentity returns the most recently updated record of identityID, or
// nil when the identity has never been resolved.
func (s *Store) LatestForIdentity(ctx context.Context, identityID string) (*ResolvedMetadata, error) {
	if identityID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+resolvedColumns+" FROM resolved_metadata WHERE identity_id = ? ORDER BY updated_at DESC LIMIT 1", identityID)
	meta, err := scanResolved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest for identity %s: %w", identityID, err)
	}
	return &meta, nil
}
