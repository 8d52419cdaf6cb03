package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rosterforge/rosterforge/internal/db"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedTeam inserts a team whose slug equals its id.
func SeedTeam(t *testing.T, database *db.DB, id, name string) dbgen.Team {
	t.Helper()

	team, err := database.Queries.CreateTeam(context.Background(), dbgen.CreateTeamParams{
		ID:   id,
		Name: name,
		Slug: id,
	})
	if err != nil {
		t.Fatalf("seed team %s: %v", id, err)
	}
	return team
}

// SeedPlayer inserts a player on the given team.
func SeedPlayer(t *testing.T, database *db.DB, teamID, id, name string) dbgen.Player {
	t.Helper()

	player, err := database.Queries.CreatePlayer(context.Background(), dbgen.CreatePlayerParams{
		ID:     id,
		TeamID: teamID,
		Name:   name,
	})
	if err != nil {
		t.Fatalf("seed player %s: %v", id, err)
	}
	return player
}

// SeedUser inserts a user with a precomputed password hash. Empty team or player ids are stored as NULL.
func SeedUser(t *testing.T, database *db.DB, params dbgen.CreateUserParams) dbgen.User {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), params)
	if err != nil {
		t.Fatalf("seed user %s: %v", params.Username, err)
	}
	return user
}

// NullString wraps s, treating the empty string as NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
