package apiutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/authz"
)

// maxBodyBytes caps JSON request bodies. Bulk creates of a full week fit well under it.
const maxBodyBytes = 1 << 20

// FieldError names the request field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Reason
}

// HandlerError carries the status and client-facing message for a failure. Err stays server-side.
type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string { return e.Message }

func (e HandlerError) Unwrap() error { return e.Err }

// DecodeJSON reads exactly one JSON value into dst. Unknown fields and trailing data are errors.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("missing request body")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("missing request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// WriteJSON encodes payload before touching the response so an encoding failure can still become a 500.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(body, '\n'))
	return err
}

// RequireTeamAccess writes 401/403 and returns false unless the caller may read teamID.
func RequireTeamAccess(w http.ResponseWriter, r *http.Request, teamID string) bool {
	return checkAccess(w, r, teamID, "Team access", authz.RequireTeamAccess(r.Context(), teamID))
}

// RequireTeamWrite writes 401/403 and returns false unless the caller may edit teamID.
func RequireTeamWrite(w http.ResponseWriter, r *http.Request, teamID string) bool {
	return checkAccess(w, r, teamID, "Team write", authz.RequireTeamWrite(r.Context(), teamID))
}

// RequirePlayerWrite writes 401/403 and returns false unless the caller may edit the player's availability.
func RequirePlayerWrite(w http.ResponseWriter, r *http.Request, teamID, playerID string) bool {
	return checkAccess(w, r, teamID, "Availability write", authz.RequirePlayerWrite(r.Context(), teamID, playerID))
}

func checkAccess(w http.ResponseWriter, r *http.Request, teamID, what string, err error) bool {
	if err == nil {
		return true
	}
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		logger.Warn().Str("team_id", teamID).Msg(what + " denied: unauthenticated")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, authz.ErrForbidden):
		logEvent := logger.Warn().Str("team_id", teamID)
		if user != nil {
			logEvent = logEvent.Str("user_id", user.ID)
		}
		logEvent.Msg(what + " denied: forbidden")
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		logger.Error().Err(err).Str("team_id", teamID).Msg(what + " denied: error")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
	}
	return false
}
