package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/provider"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestCollectorExposesRunnerActivity(t *testing.T) {
	c := New()
	c.ProviderAttempt(provider.ClassPlaytime)
	c.ProviderAttempt(provider.ClassPlaytime)
	c.ProviderOutcome(provider.ClassPlaytime, "ok")
	c.RowFinished(enrich.StatusDone)
	c.RowDemoted()
	c.ActiveRows(2)
	c.ObserveWait(provider.ClassCritic, time.Second)

	body := scrape(t, c)
	for _, want := range []string{
		`gametrack_provider_attempts_total{provider="playtime"} 2`,
		`gametrack_provider_outcomes_total{outcome="ok",provider="playtime"} 1`,
		`gametrack_rows_finished_total{status="done"} 1`,
		"gametrack_rows_demoted_total 1",
		"gametrack_active_rows 2",
		`gametrack_rate_limit_wait_seconds_count{provider="critic"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestIndependentCollectors(t *testing.T) {
	a := New()
	b := New()
	a.RowDemoted()
	if strings.Contains(scrape(t, b), "gametrack_rows_demoted_total 1") {
		t.Fatal("collectors must not share state")
	}
}
