package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gametrack/internal/config"
	"gametrack/internal/provider"
)

const (
	defaultHTTPTimeout = 20 * time.Second
	maxErrorBody       = 512

	sourcePlaytime = "hltb"
	sourceCritic   = "opencritic"
	sourceCatalog  = "rawg"
)

// HTTPDoer describes the HTTP client used by the bridge.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the desktop bridge. Every live provider is reached through
// it; an empty base URL means the capability is unavailable.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a bridge client for baseURL.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewConfiguredClient builds the client from the [bridge] config section.
func NewConfiguredClient(cfg *config.Config) *Client {
	if cfg == nil {
		return NewClient("", "", 0)
	}
	return NewClient(cfg.Bridge.URL, cfg.Bridge.Token, cfg.BridgeTimeout())
}

// Available implements provider.Environment.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

type priceResponse struct {
	Price    *float64 `json:"price"`
	Currency string   `json:"currency"`
}

// FetchPrice implements provider.PriceFetcher.
func (c *Client) FetchPrice(ctx context.Context, appID int64, region string) (*provider.PriceQuote, error) {
	query := url.Values{}
	query.Set("appid", strconv.FormatInt(appID, 10))
	if region = strings.TrimSpace(region); region != "" {
		query.Set("region", region)
	}
	var resp priceResponse
	found, err := c.get(ctx, "steam", "/v1/price", query, &resp)
	if err != nil || !found || resp.Price == nil {
		return nil, err
	}
	return &provider.PriceQuote{Price: *resp.Price, Currency: strings.ToUpper(strings.TrimSpace(resp.Currency))}, nil
}

type playtimeResponse struct {
	Hours  *float64 `json:"hours"`
	Source string   `json:"source"`
}

// FetchPlaytime implements provider.PlaytimeFetcher.
func (c *Client) FetchPlaytime(ctx context.Context, title string) (*provider.Playtime, error) {
	var resp playtimeResponse
	found, err := c.get(ctx, sourcePlaytime, "/v1/playtime", titleQuery(title), &resp)
	if err != nil || !found || resp.Hours == nil || *resp.Hours <= 0 {
		return nil, err
	}
	return &provider.Playtime{Hours: roundHours(*resp.Hours), Source: sourceOr(resp.Source, sourcePlaytime)}, nil
}

type criticResponse struct {
	Score  *float64 `json:"score"`
	Source string   `json:"source"`
}

// FetchCriticScore implements provider.CriticFetcher.
func (c *Client) FetchCriticScore(ctx context.Context, title string) (*provider.CriticScore, error) {
	var resp criticResponse
	found, err := c.get(ctx, sourceCritic, "/v1/critic", titleQuery(title), &resp)
	if err != nil || !found || resp.Score == nil || *resp.Score <= 0 {
		return nil, err
	}
	return &provider.CriticScore{Score: clampScore(*resp.Score), Source: sourceOr(resp.Source, sourceCritic)}, nil
}

// CatalogEntry is the alternate catalog's detail for one title.
type CatalogEntry struct {
	Playtime   float64 `json:"playtime"`
	Metacritic *int    `json:"metacritic"`
	Rating     float64 `json:"rating"`
	RatingTop  float64 `json:"rating_top"`
	Source     string  `json:"source"`
}

// AggregatedScore prefers the catalog's metacritic value and otherwise scales
// the user rating to 0-100.
func (e CatalogEntry) AggregatedScore() (int, bool) {
	if e.Metacritic != nil && *e.Metacritic > 0 {
		return *e.Metacritic, true
	}
	if e.Rating > 0 && e.RatingTop > 0 {
		return clampScore(e.Rating / e.RatingTop * 100), true
	}
	return 0, false
}

// Catalog looks up title in the alternate catalog.
func (c *Client) Catalog(ctx context.Context, title string) (*CatalogEntry, error) {
	var entry CatalogEntry
	found, err := c.get(ctx, sourceCatalog, "/v1/catalog", titleQuery(title), &entry)
	if err != nil || !found {
		return nil, err
	}
	entry.Source = sourceOr(entry.Source, sourceCatalog)
	return &entry, nil
}

// EstimatePlaytime implements provider.Estimator from the catalog playtime.
func (c *Client) EstimatePlaytime(ctx context.Context, title string) (*provider.Playtime, error) {
	entry, err := c.Catalog(ctx, title)
	if err != nil || entry == nil || entry.Playtime <= 0 {
		return nil, err
	}
	return &provider.Playtime{Hours: roundHours(entry.Playtime), Source: entry.Source}, nil
}

// EstimateCriticScore implements provider.Estimator from the catalog ratings.
func (c *Client) EstimateCriticScore(ctx context.Context, title string) (*provider.CriticScore, error) {
	entry, err := c.Catalog(ctx, title)
	if err != nil || entry == nil {
		return nil, err
	}
	score, ok := entry.AggregatedScore()
	if !ok {
		return nil, nil
	}
	return &provider.CriticScore{Score: score, Source: entry.Source}, nil
}

// get issues a GET against the bridge and decodes a JSON body into dest. It
// reports found=false for 404 and 204 answers.
func (c *Client) get(ctx context.Context, name, path string, query url.Values, dest any) (bool, error) {
	if !c.Available() {
		return false, provider.Wrap(provider.ErrUnavailable, name, path, "bridge not configured", nil)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, provider.Wrap(provider.ErrTransient, name, path, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusNotImplemented:
		return false, provider.Wrap(provider.ErrUnavailable, name, path, statusDetail(resp), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return false, provider.Wrap(provider.ErrTransient, name, path, statusDetail(resp), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, provider.Wrap(provider.ErrTransient, name, path, "decode response", err)
	}
	return true, nil
}

func statusDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := fmt.Sprintf("http %d", resp.StatusCode)
	if text := strings.TrimSpace(string(body)); text != "" {
		detail += ": " + text
	}
	return detail
}

func titleQuery(title string) url.Values {
	query := url.Values{}
	query.Set("title", strings.TrimSpace(title))
	return query
}

func sourceOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func roundHours(hours float64) float64 {
	return math.Round(hours*10) / 10
}

func clampScore(score float64) int {
	rounded := int(math.Round(score))
	switch {
	case rounded < 0:
		return 0
	case rounded > 100:
		return 100
	default:
		return rounded
	}
}
