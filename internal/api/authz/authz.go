package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RolePlayer  Role = "player"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleManager:
		return RoleManager, true
	case RolePlayer:
		return RolePlayer, true
	default:
		return "", false
	}
}

const (
	SessionTypeCookie = "cookie"
	SessionTypeToken  = "token"
)

type AuthUser struct {
	ID          string
	Username    string
	Role        Role
	TeamID      string
	PlayerID    string
	SessionType string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

func IsAdmin(user *AuthUser) bool {
	return user != nil && user.Role == RoleAdmin
}

// CanEditTeam reports whether user may change the schedule of teamID.
func CanEditTeam(user *AuthUser, teamID string) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return user.TeamID != "" && user.TeamID == teamID
	default:
		return false
	}
}

// RequireTeamAccess allows admins everywhere and everyone else on their own team only.
func RequireTeamAccess(ctx context.Context, teamID string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if user.Role == RoleAdmin {
		return nil
	}
	if user.TeamID == "" || user.TeamID != teamID {
		return ErrForbidden
	}
	return nil
}

// RequireTeamWrite is RequireTeamAccess restricted to admins and managers.
func RequireTeamWrite(ctx context.Context, teamID string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if !CanEditTeam(user, teamID) {
		return ErrForbidden
	}
	return nil
}

// RequirePlayerWrite checks who may submit availability for a player on teamID.
// Players may only write their own record.
func RequirePlayerWrite(ctx context.Context, teamID, playerID string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if user.Role == RolePlayer {
		if user.PlayerID == "" || user.PlayerID != playerID {
			return ErrForbidden
		}
		return nil
	}
	if !CanEditTeam(user, teamID) {
		return ErrForbidden
	}
	return nil
}

func RequireRole(ctx context.Context, roles ...Role) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
