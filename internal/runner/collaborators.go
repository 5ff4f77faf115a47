package runner

import (
	"context"

	"gametrack/internal/enrich"
	"gametrack/internal/provider"
)

// Identity is the latest known description of a library identity.
type Identity struct {
	Title    string
	AppID    *int64
	Platform string
}

// IdentityResolver looks up the current identity behind a row. A nil
// Identity with a nil error means the identity is unknown.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, identityID string) (*Identity, error)
}

// LibrarySink receives resolved fields as soon as they are committed to a row.
// Failures are logged and otherwise ignored.
type LibrarySink interface {
	ApplyPrice(ctx context.Context, row enrich.Row) error
	ApplyPlaytime(ctx context.Context, row enrich.Row) error
	ApplyCriticScore(ctx context.Context, row enrich.Row) error
}

// Metrics records runner activity.
type Metrics interface {
	ProviderAttempt(class provider.Class)
	ProviderOutcome(class provider.Class, outcome string)
	RowFinished(status enrich.RowStatus)
	RowDemoted()
	ActiveRows(n int)
}

type nopMetrics struct{}

func (nopMetrics) ProviderAttempt(provider.Class)         {}
func (nopMetrics) ProviderOutcome(provider.Class, string) {}
func (nopMetrics) RowFinished(enrich.RowStatus)           {}
func (nopMetrics) RowDemoted()                            {}
func (nopMetrics) ActiveRows(int)                         {}
