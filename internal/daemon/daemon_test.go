package daemon_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"gametrack/internal/daemon"
	"gametrack/internal/enrich"
	"gametrack/internal/provider"
	"gametrack/internal/runner"
	"gametrack/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	r := runner.New(provider.Set{Environment: provider.StaticEnvironment(true)}, runner.WithStore(st))
	d, err := daemon.New(cfg, nil, daemon.Dependencies{Store: st, Runner: r})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() || status.DatabasePath != st.Path() {
		t.Fatalf("unexpected paths: %#v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := daemon.New(cfg, nil, daemon.Dependencies{Store: st, Runner: runner.New(provider.Set{})})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention, got %v", err)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected restart after stop to fail")
	}
}

func TestDaemonNewValidatesDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, daemon.Dependencies{}); err == nil {
		t.Fatal("expected error without store and runner")
	}
}

func TestDaemonStartRestoresPersistedSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := st.Save(ctx, enrich.Session{
		SessionID:   "persisted",
		StartedAt:   now,
		LastUpdated: now,
		TotalRows:   1,
		Phase:       enrich.PhaseActive,
		Queue: []enrich.Row{
			{ID: "r1", Title: "Hades", Status: enrich.StatusFetching, Stage: enrich.StageVendor, UpdatedAt: now},
		},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := runner.New(provider.Set{Environment: provider.StaticEnvironment(true)}, runner.WithStore(st))
	d, err := daemon.New(cfg, nil, daemon.Dependencies{Store: st, Runner: r})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := d.Status(ctx).Session
	if snap.SessionID != "persisted" || !snap.Paused || snap.Phase != enrich.PhasePaused {
		t.Fatalf("expected restored paused session, got %#v", snap)
	}
	row, ok := snap.Row("r1")
	if !ok || row.Status != enrich.StatusPaused {
		t.Fatalf("expected interrupted row to come back paused, got %#v", row)
	}
}
