package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gametrack/internal/enrich"
)

const sessionRef = 1

const rowColumns = "row_id, identity_id, title, app_id, platform, status, stage, price, currency_code, ttb, ttb_source, critic_score, critic_source, message, attempts_json, checked_json, updated_at"

const recentColumns = "row_id, title, finished_at, price, currency_code, ttb, ttb_source, critic_score, critic_source"

// Save replaces the stored session with session.
func (s *Store) Save(ctx context.Context, session enrich.Session) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
			return fmt.Errorf("delete previous session: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, session_id, started_at, last_updated, paused, total_rows, completed_count, region, phase)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionRef,
			session.SessionID,
			nullTime(session.StartedAt),
			nullTime(session.LastUpdated),
			sqlBool(session.Paused),
			session.TotalRows,
			session.CompletedCount,
			nullString(session.Region),
			string(session.Phase),
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		for i, row := range session.Queue {
			if err := insertRow(ctx, tx, i, row); err != nil {
				return fmt.Errorf("insert row %s: %w", row.ID, err)
			}
		}
		for i, summary := range session.Recent {
			if err := insertRecent(ctx, tx, i, summary); err != nil {
				return fmt.Errorf("insert recent %s: %w", summary.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, position int, row enrich.Row) error {
	attempts, err := encodeJSON(row.Attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}
	checked, err := encodeJSON(row.Checked)
	if err != nil {
		return fmt.Errorf("encode checks: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO session_rows (session_ref, position, "+rowColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		sessionRef,
		position,
		row.ID,
		nullString(row.IdentityID),
		nullString(row.Title),
		nullPtr(row.AppID),
		nullString(row.Platform),
		string(row.Status),
		string(row.Stage),
		nullPtr(row.Price),
		nullString(row.CurrencyCode),
		nullPtr(row.TTB),
		nullString(row.TTBSource),
		nullPtr(row.CriticScore),
		nullString(row.CriticSource),
		nullString(row.Message),
		attempts,
		checked,
		nullTime(row.UpdatedAt),
	)
	return err
}

func insertRecent(ctx context.Context, tx *sql.Tx, position int, summary enrich.RowSummary) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO session_recent (session_ref, position, "+recentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		sessionRef,
		position,
		summary.ID,
		nullString(summary.Title),
		nullTime(summary.FinishedAt),
		nullPtr(summary.Price),
		nullString(summary.CurrencyCode),
		nullPtr(summary.TTB),
		nullString(summary.TTBSource),
		nullPtr(summary.CriticScore),
		nullString(summary.CriticSource),
	)
	return err
}

// Load returns the stored session, or nil when none is stored.
func (s *Store) Load(ctx context.Context) (*enrich.Session, error) {
	var (
		session     enrich.Session
		startedAt   sql.NullString
		lastUpdated sql.NullString
		paused      int
		region      sql.NullString
		phase       string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, started_at, last_updated, paused, total_rows, completed_count, region, phase
		 FROM sessions WHERE id = ?`, sessionRef,
	).Scan(&session.SessionID, &startedAt, &lastUpdated, &paused, &session.TotalRows, &session.CompletedCount, &region, &phase)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	session.StartedAt = parseTime(startedAt)
	session.LastUpdated = parseTime(lastUpdated)
	session.Paused = paused != 0
	session.Region = region.String
	session.Phase = enrich.Phase(phase)

	if session.Queue, err = s.loadRows(ctx); err != nil {
		return nil, err
	}
	if session.Recent, err = s.loadRecent(ctx); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) loadRows(ctx context.Context) ([]enrich.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+rowColumns+" FROM session_rows WHERE session_ref = ? ORDER BY position", sessionRef)
	if err != nil {
		return nil, fmt.Errorf("query session rows: %w", err)
	}
	defer rows.Close()

	var out []enrich.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func scanRow(sc scanner) (enrich.Row, error) {
	var (
		row          enrich.Row
		identityID   sql.NullString
		title        sql.NullString
		appID        sql.Null[int64]
		platform     sql.NullString
		status       string
		stage        string
		price        sql.Null[float64]
		currency     sql.NullString
		ttb          sql.Null[float64]
		ttbSource    sql.NullString
		criticScore  sql.Null[int]
		criticSource sql.NullString
		message      sql.NullString
		attempts     sql.NullString
		checked      sql.NullString
		updatedAt    sql.NullString
	)
	if err := sc.Scan(
		&row.ID,
		&identityID,
		&title,
		&appID,
		&platform,
		&status,
		&stage,
		&price,
		&currency,
		&ttb,
		&ttbSource,
		&criticScore,
		&criticSource,
		&message,
		&attempts,
		&checked,
		&updatedAt,
	); err != nil {
		return enrich.Row{}, err
	}
	row.IdentityID = identityID.String
	row.Title = title.String
	row.AppID = ptrOf(appID)
	row.Platform = platform.String
	row.Status = enrich.RowStatus(status)
	row.Stage = enrich.Stage(stage)
	row.Price = ptrOf(price)
	row.CurrencyCode = currency.String
	row.TTB = ptrOf(ttb)
	row.TTBSource = ttbSource.String
	row.CriticScore = ptrOf(criticScore)
	row.CriticSource = criticSource.String
	row.Message = message.String
	row.UpdatedAt = parseTime(updatedAt)
	if err := decodeJSON(attempts, &row.Attempts); err != nil {
		return enrich.Row{}, fmt.Errorf("decode attempts: %w", err)
	}
	if err := decodeJSON(checked, &row.Checked); err != nil {
		return enrich.Row{}, fmt.Errorf("decode checks: %w", err)
	}
	return row, nil
}

func (s *Store) loadRecent(ctx context.Context) ([]enrich.RowSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recentColumns+" FROM session_recent WHERE session_ref = ? ORDER BY position", sessionRef)
	if err != nil {
		return nil, fmt.Errorf("query recent rows: %w", err)
	}
	defer rows.Close()

	var out []enrich.RowSummary
	for rows.Next() {
		var (
			summary      enrich.RowSummary
			title        sql.NullString
			finishedAt   sql.NullString
			price        sql.Null[float64]
			currency     sql.NullString
			ttb          sql.Null[float64]
			ttbSource    sql.NullString
			criticScore  sql.Null[int]
			criticSource sql.NullString
		)
		if err := rows.Scan(&summary.ID, &title, &finishedAt, &price, &currency, &ttb, &ttbSource, &criticScore, &criticSource); err != nil {
			return nil, fmt.Errorf("scan recent row: %w", err)
		}
		summary.Title = title.String
		summary.FinishedAt = parseTime(finishedAt)
		summary.Price = ptrOf(price)
		summary.CurrencyCode = currency.String
		summary.TTB = ptrOf(ttb)
		summary.TTBSource = ttbSource.String
		summary.CriticScore = ptrOf(criticScore)
		summary.CriticSource = criticSource.String
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent rows: %w", err)
	}
	return out, nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.exec(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
