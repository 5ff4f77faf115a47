package store

import (
	"context"
	"errors"
	"testing"
)

type codedErr int

func (e codedErr) Error() string { return "sqlite error" }
func (e codedErr) Code() int     { return int(e) }

func TestWithBusyRetryRetriesContention(t *testing.T) {
	calls := 0
	err := withBusyRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			// SQLITE_BUSY_SNAPSHOT carries the primary code in its low byte.
			return codedErr(517)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on the third call, got err=%v calls=%d", err, calls)
	}
}

func TestWithBusyRetryGivesUp(t *testing.T) {
	calls := 0
	err := withBusyRetry(context.Background(), func(context.Context) error {
		calls++
		return codedErr(sqliteBusy)
	})
	if !busy(err) || calls != busyAttempts {
		t.Fatalf("expected busy error after %d calls, got err=%v calls=%d", busyAttempts, err, calls)
	}
}

func TestWithBusyRetryStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("constraint failed")
	calls := 0
	err := withBusyRetry(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected one call returning the error, got err=%v calls=%d", err, calls)
	}
	if busy(codedErr(19)) {
		t.Fatal("constraint code must not count as contention")
	}
}
