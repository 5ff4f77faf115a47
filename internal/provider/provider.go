package provider

import (
	"context"
	"strings"
)

// Class groups providers that share a rate-limit budget.
type Class string

const (
	ClassPrice    Class = "price"
	ClassPlaytime Class = "playtime"
	ClassCritic   Class = "critic"
	ClassCatalog  Class = "catalog"
)

// Classes lists every provider class.
func Classes() []Class {
	return []Class{ClassPrice, ClassPlaytime, ClassCritic, ClassCatalog}
}

// Label is the human-readable provider name used in row messages.
func (c Class) Label() string {
	switch c {
	case ClassPrice:
		return "Steam price"
	case ClassPlaytime:
		return "HowLongToBeat"
	case ClassCritic:
		return "OpenCritic"
	case ClassCatalog:
		return "RAWG estimate"
	default:
		return strings.TrimSpace(string(c))
	}
}

// PriceQuote is a store price in the quote's currency.
type PriceQuote struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Playtime is a time-to-beat answer in hours.
type Playtime struct {
	Hours  float64 `json:"hours"`
	Source string  `json:"source"`
}

// CriticScore is a 0-100 critic aggregate.
type CriticScore struct {
	Score  int    `json:"score"`
	Source string `json:"source"`
}

// Remote fetchers return (nil, nil) when the provider answered without data.
// Failures are tagged with ErrTransient or ErrUnavailable.

// PriceFetcher looks up a store price for an app id in a region.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, appID int64, region string) (*PriceQuote, error)
}

// PlaytimeFetcher looks up time-to-beat from a live source.
type PlaytimeFetcher interface {
	FetchPlaytime(ctx context.Context, title string) (*Playtime, error)
}

// CriticFetcher looks up a critic score from a live source.
type CriticFetcher interface {
	FetchCriticScore(ctx context.Context, title string) (*CriticScore, error)
}

// Estimator derives playtime and critic score from an alternate catalog.
type Estimator interface {
	EstimatePlaytime(ctx context.Context, title string) (*Playtime, error)
	EstimateCriticScore(ctx context.Context, title string) (*CriticScore, error)
}

// PlaytimeIndex is an offline playtime lookup. A miss is not an error.
type PlaytimeIndex interface {
	LookupPlaytime(title, platform string) (float64, bool)
}

// CriticIndex is an offline critic-score lookup. A miss is not an error.
type CriticIndex interface {
	LookupCriticScore(title, platform string) (int, bool)
}

// Environment reports whether live providers can run at all.
type Environment interface {
	Available() bool
}

// Set bundles the providers the runner drives. Any field may be nil; the
// runner degrades by skipping the corresponding step.
type Set struct {
	Price          PriceFetcher
	LocalPlaytime  PlaytimeIndex
	RemotePlaytime PlaytimeFetcher
	CriticIndex    CriticIndex
	RemoteCritic   CriticFetcher
	Estimator      Estimator

	// Environment gates the whole engine. Nil means always available.
	Environment Environment
}

// Available reports whether the environment can run providers.
func (s Set) Available() bool {
	if s.Environment == nil {
		return true
	}
	return s.Environment.Available()
}

// StaticEnvironment is a fixed capability answer.
type StaticEnvironment bool

// Available implements Environment.
func (e StaticEnvironment) Available() bool { return bool(e) }
