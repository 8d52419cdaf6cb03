package authz

import (
	"context"
	"errors"
	"testing"
)

func TestRequireTeamAccessUnauthenticated(t *testing.T) {
	err := RequireTeamAccess(context.Background(), "team-a")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireTeamAccessOtherTeamForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID:     "u1",
		Role:   RoleManager,
		TeamID: "team-b",
	})

	err := RequireTeamAccess(ctx, "team-a")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireTeamAccessNoTeamForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: "u1", Role: RolePlayer})

	err := RequireTeamAccess(ctx, "team-a")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireTeamAccessAdminAllowed(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: "u1", Role: RoleAdmin})

	if err := RequireTeamAccess(ctx, "team-a"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequireTeamWritePlayerForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID:     "u1",
		Role:   RolePlayer,
		TeamID: "team-a",
	})

	if err := RequireTeamAccess(ctx, "team-a"); err != nil {
		t.Fatalf("player read: expected nil, got %v", err)
	}
	err := RequireTeamWrite(ctx, "team-a")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("player write: expected ErrForbidden, got %v", err)
	}
}

func TestRequireTeamWriteManagerOwnTeam(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID:     "u1",
		Role:   RoleManager,
		TeamID: "team-a",
	})

	if err := RequireTeamWrite(ctx, "team-a"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := RequireTeamWrite(ctx, "team-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequirePlayerWrite(t *testing.T) {
	player := ContextWithUser(context.Background(), &AuthUser{
		ID:       "u1",
		Role:     RolePlayer,
		TeamID:   "team-a",
		PlayerID: "p1",
	})
	if err := RequirePlayerWrite(player, "team-a", "p1"); err != nil {
		t.Fatalf("own record: %v", err)
	}
	if err := RequirePlayerWrite(player, "team-a", "p2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("teammate record: expected ErrForbidden, got %v", err)
	}

	manager := ContextWithUser(context.Background(), &AuthUser{ID: "u2", Role: RoleManager, TeamID: "team-a"})
	if err := RequirePlayerWrite(manager, "team-a", "p2"); err != nil {
		t.Fatalf("manager: %v", err)
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Manager ")
	if !ok || role != RoleManager {
		t.Fatalf("expected manager, got %q %v", role, ok)
	}
	if _, ok := ParseRole("coach"); ok {
		t.Fatalf("expected unknown role to fail")
	}
}
