package db

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

func TestWithDefaultsKeepsCallerParams(t *testing.T) {
	dsn, err := withDefaults("data/app.db?_fk=0")
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	path, rawQuery, _ := strings.Cut(dsn, "?")
	if path != "data/app.db" {
		t.Fatalf("path changed: %q", path)
	}
	params, _ := url.ParseQuery(rawQuery)
	if params.Get("_fk") != "0" {
		t.Fatalf("caller _fk overridden: %q", dsn)
	}
	if params.Get("_busy_timeout") != "5000" || params.Get("_journal_mode") != "WAL" {
		t.Fatalf("defaults missing: %q", dsn)
	}

	mem, err := withDefaults(":memory:")
	if err != nil {
		t.Fatalf("withDefaults memory: %v", err)
	}
	if strings.Contains(mem, "_journal_mode") {
		t.Fatalf("in-memory dsn should not request WAL: %q", mem)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()
	ctx := context.Background()

	boom := errors.New("boom")
	err = database.RunInTx(ctx, func(tx *DB) error {
		if _, err := tx.Queries.CreateTeam(ctx, dbgen.CreateTeamParams{ID: "t1", Name: "Falcons", Slug: "falcons"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, err := database.Queries.GetTeam(ctx, "t1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected rolled back team, got %v", err)
	}

	if err := database.RunInTx(ctx, func(tx *DB) error {
		_, err := tx.Queries.CreateTeam(ctx, dbgen.CreateTeamParams{ID: "t2", Name: "Owls", Slug: "owls"})
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := database.Queries.GetTeam(ctx, "t2"); err != nil {
		t.Fatalf("committed team missing: %v", err)
	}
}
