package store_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"gametrack/internal/enrich"
	"gametrack/internal/store"
	"gametrack/internal/testsupport"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }
func ptrInt64(v int64) *int64     { return &v }

func sampleSession() enrich.Session {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := started.Add(42*time.Second + 125*time.Millisecond)
	return enrich.Session{
		SessionID:      "sess-1",
		StartedAt:      started,
		LastUpdated:    updated,
		Paused:         true,
		TotalRows:      3,
		CompletedCount: 1,
		Region:         "gb",
		Phase:          enrich.PhasePaused,
		Queue: []enrich.Row{
			{
				ID:           "r1",
				IdentityID:   "ident-1",
				Title:        "Hades",
				AppID:        ptrInt64(1145360),
				Platform:     "PC",
				Status:       enrich.StatusDone,
				Stage:        enrich.StageVendor,
				Price:        ptrFloat(24.99),
				CurrencyCode: "GBP",
				TTB:          ptrFloat(22.5),
				TTBSource:    "hltb-dataset",
				CriticScore:  ptrInt(93),
				CriticSource: "critic-index",
				Attempts:     enrich.Attempts{Price: 1},
				Checked:      enrich.Checks{Price: true, LocalPlaytime: true, CriticIndex: true},
				UpdatedAt:    updated,
			},
			{
				ID:        "r2",
				Title:     "Obscure Indie",
				Status:    enrich.StatusPaused,
				Stage:     enrich.StageFallback,
				Message:   "Queued for fallback sources.",
				Attempts:  enrich.Attempts{Playtime: 2, Catalog: 1},
				Checked:   enrich.Checks{Price: true, LocalPlaytime: true, CriticIndex: true, RemotePlaytime: true},
				UpdatedAt: started.Add(time.Second),
			},
			{
				ID:      "r3",
				Status:  enrich.StatusSkipped,
				Stage:   enrich.StageVendor,
				Message: "Skipped: missing title.",
			},
		},
		Recent: []enrich.RowSummary{
			{
				ID:           "r1",
				Title:        "Hades",
				FinishedAt:   updated,
				Price:        ptrFloat(24.99),
				CurrencyCode: "GBP",
				TTB:          ptrFloat(22.5),
				TTBSource:    "hltb-dataset",
				CriticScore:  ptrInt(93),
				CriticSource: "critic-index",
			},
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	in := sampleSession()
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out == nil {
		t.Fatal("expected stored session")
	}
	if !reflect.DeepEqual(*out, in) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", *out, in)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	next := enrich.Session{
		SessionID:   "sess-2",
		StartedAt:   time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		LastUpdated: time.Date(2026, 3, 2, 8, 0, 1, 0, time.UTC),
		TotalRows:   1,
		Phase:       enrich.PhaseActive,
		Queue:       []enrich.Row{{ID: "only", Title: "Celeste", Status: enrich.StatusPending, Stage: enrich.StageVendor}},
	}
	if err := st.Save(ctx, next); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil || out == nil {
		t.Fatalf("Load: %v %v", out, err)
	}
	if out.SessionID != "sess-2" || len(out.Queue) != 1 || out.Recent != nil {
		t.Fatalf("expected only the second session, got %#v", out)
	}
}

func TestClearRemovesSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear on empty store: %v", err)
	}
	if err := st.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out != nil {
		t.Fatalf("expected no session after clear, got %#v", out)
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	out, err := reopened.Load(ctx)
	if err != nil || out == nil {
		t.Fatalf("Load after reopen: %v %v", out, err)
	}
	if out.SessionID != "sess-1" || len(out.Queue) != 3 {
		t.Fatalf("unexpected session after reopen: %#v", out)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	path := st.Path()
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := store.OpenPath(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestResolvedMetadataMergesFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	row := enrich.Row{ID: "r1", IdentityID: "ident-1", Title: "Hades", AppID: ptrInt64(1145360)}
	row.Price = ptrFloat(24.99)
	row.CurrencyCode = "USD"
	if err := st.ApplyPrice(ctx, row); err != nil {
		t.Fatalf("ApplyPrice: %v", err)
	}
	row.TTB = ptrFloat(22.5)
	row.TTBSource = "hltb-dataset"
	if err := st.ApplyPlaytime(ctx, row); err != nil {
		t.Fatalf("ApplyPlaytime: %v", err)
	}
	row.CriticScore = ptrInt(93)
	row.CriticSource = "opencritic"
	if err := st.ApplyCriticScore(ctx, row); err != nil {
		t.Fatalf("ApplyCriticScore: %v", err)
	}

	meta, err := st.GetResolved(ctx, "r1")
	if err != nil || meta == nil {
		t.Fatalf("GetResolved: %v %v", meta, err)
	}
	if meta.Price == nil || *meta.Price != 24.99 || meta.CurrencyCode != "USD" {
		t.Fatalf("unexpected price: %#v", meta)
	}
	if meta.TTB == nil || *meta.TTB != 22.5 || meta.TTBSource != "hltb-dataset" {
		t.Fatalf("unexpected playtime: %#v", meta)
	}
	if meta.CriticScore == nil || *meta.CriticScore != 93 || meta.CriticSource != "opencritic" {
		t.Fatalf("unexpected critic score: %#v", meta)
	}
	if meta.AppID == nil || *meta.AppID != 1145360 || meta.IdentityID != "ident-1" {
		t.Fatalf("unexpected identity: %#v", meta)
	}
	if meta.UpdatedAt.IsZero() {
		t.Fatal("expected updated timestamp")
	}

	latest, err := st.LatestForIdentity(ctx, "ident-1")
	if err != nil || latest == nil || latest.RowID != "r1" {
		t.Fatalf("LatestForIdentity: %#v %v", latest, err)
	}
	if none, err := st.LatestForIdentity(ctx, "ident-unknown"); err != nil || none != nil {
		t.Fatalf("expected nil for unknown identity, got %#v %v", none, err)
	}

	missing, err := st.GetResolved(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown row, got %#v %v", missing, err)
	}
	if err := st.ApplyPrice(ctx, enrich.Row{}); err == nil {
		t.Fatal("expected error for row without id")
	}
}

func TestListResolvedOrdersAndLimits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		row := enrich.Row{ID: id, Title: "Game " + id, Price: ptrFloat(1)}
		if err := st.ApplyPrice(ctx, row); err != nil {
			t.Fatalf("ApplyPrice %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := st.ListResolved(ctx, 0)
	if err != nil {
		t.Fatalf("ListResolved: %v", err)
	}
	if len(all) != 3 || all[0].RowID != "c" || all[2].RowID != "a" {
		t.Fatalf("expected newest first, got %#v", all)
	}
	limited, err := st.ListResolved(ctx, 2)
	if err != nil {
		t.Fatalf("ListResolved limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(limited))
	}
}

func TestProviderCacheHonoursAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, ok, err := st.CacheGet(ctx, "hltb", "hades", time.Hour); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}
	if err := st.CachePut(ctx, "hltb", " Hades ", []byte(`{"hours":22.5}`)); err != nil {
		t.Fatalf("CachePut: %v", err)
	}
	payload, ok, err := st.CacheGet(ctx, "hltb", "hades", time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(payload) != `{"hours":22.5}` {
		t.Fatalf("unexpected payload %q", payload)
	}
	if _, ok, _ := st.CacheGet(ctx, "opencritic", "hades", time.Hour); ok {
		t.Fatal("cache must be scoped per provider")
	}

	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := st.CacheGet(ctx, "hltb", "hades", time.Millisecond); ok {
		t.Fatal("expected stale entry to miss")
	}

	removed, err := st.PurgeCache(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeCache: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged entry, got %d", removed)
	}
	if _, ok, _ := st.CacheGet(ctx, "hltb", "hades", 0); ok {
		t.Fatal("expected purged entry to be gone")
	}
}
