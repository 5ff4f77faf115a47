package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	sqliteBusy     = 5
	sqliteLocked   = 6
	busyAttempts   = 5
	busyFirstDelay = 10 * time.Millisecond
	busyDelayCeil  = 200 * time.Millisecond
)

// busy reports whether err is SQLite lock contention that is worth retrying.
func busy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		// Extended result codes keep the primary code in the low byte.
		switch coded.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// withBusyRetry runs op until it succeeds, fails for a reason other than lock
// contention, or the attempt budget is spent. The delay doubles up to
// busyDelayCeil.
func withBusyRetry(ctx context.Context, op func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyFirstDelay
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if !busy(err) || attempt == busyAttempts {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, busyDelayCeil)
	}
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withBusyRetry(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// inTx runs fn in a transaction. The whole transaction is retried on lock
// contention, so fn must not have side effects outside tx.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return withBusyRetry(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}
