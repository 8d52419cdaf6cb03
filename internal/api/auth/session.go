package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rosterforge/rosterforge/internal/api/authz"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

const (
	SessionCookieName = "rosterforge_session"
	defaultSessionTTL = 8 * time.Hour
	sessionTokenBytes = 32
	sessionPruneEvery = 15 * time.Minute
)

// sessionStore holds browser sessions in memory. A restart logs everyone out of the board,
// while bearer tokens keep working.
type sessionStore struct {
	mu        sync.RWMutex
	byToken   map[string]session
	now       func() time.Time
	pruneOnce sync.Once
}

type session struct {
	userID    string
	expiresAt time.Time
}

var sessions = newSessionStore(time.Now)

func newSessionStore(now func() time.Time) *sessionStore {
	return &sessionStore{byToken: make(map[string]session), now: now}
}

// open starts a session for userID, ending any the user already had.
func (s *sessionStore) open(userID string, ttl time.Duration) (string, time.Time, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	expiresAt := s.now().Add(ttl)

	s.mu.Lock()
	for existing, sess := range s.byToken {
		if sess.userID == userID {
			delete(s.byToken, existing)
		}
	}
	s.byToken[token] = session{userID: userID, expiresAt: expiresAt}
	s.mu.Unlock()

	s.startPruning()
	return token, expiresAt, nil
}

// lookup returns the live session for token. Expired sessions are dropped on sight.
func (s *sessionStore) lookup(token string) (session, bool) {
	s.mu.RLock()
	sess, ok := s.byToken[token]
	s.mu.RUnlock()
	if !ok {
		return session{}, false
	}
	if !s.now().Before(sess.expiresAt) {
		s.close(token)
		return session{}, false
	}
	return sess, true
}

func (s *sessionStore) close(token string) {
	s.mu.Lock()
	delete(s.byToken, token)
	s.mu.Unlock()
}

func (s *sessionStore) prune() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, sess := range s.byToken {
		if !now.Before(sess.expiresAt) {
			delete(s.byToken, token)
			removed++
		}
	}
	return removed
}

func (s *sessionStore) startPruning() {
	s.pruneOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(sessionPruneEvery)
			defer ticker.Stop()
			for range ticker.C {
				s.prune()
			}
		}()
	})
}

func sessionTTL() time.Duration {
	if appConfig == nil || appConfig.Auth.SessionTTL <= 0 {
		return defaultSessionTTL
	}
	return appConfig.Auth.SessionTTL
}

func setSessionCookie(w http.ResponseWriter, value string, expires time.Time, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   appConfig != nil && appConfig.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
		MaxAge:   maxAge,
	})
}

// CreateSession logs userID in on this browser.
func CreateSession(w http.ResponseWriter, userID string) error {
	if w == nil {
		return errors.New("session requires response writer")
	}
	ttl := sessionTTL()
	token, expiresAt, err := sessions.open(userID, ttl)
	if err != nil {
		return err
	}
	setSessionCookie(w, token, expiresAt, int(ttl.Seconds()))
	return nil
}

// ClearSession ends the request's session and expires the cookie.
func ClearSession(w http.ResponseWriter, r *http.Request) {
	if key := SessionKey(r); key != "" {
		sessions.close(key)
	}
	ClearSessionCookie(w)
}

func ClearSessionCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}
	setSessionCookie(w, "", time.Unix(0, 0), -1)
}

// SessionKey returns the raw session token from the request, or "" without one.
// Board state is keyed by it.
func SessionKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// UserFromRequest resolves a bearer token first and falls back to the session cookie.
// A request with neither yields a nil user and nil error.
func UserFromRequest(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, error) {
	if r == nil {
		return nil, nil
	}
	if token, ok := bearerToken(r); ok {
		if tokens == nil {
			return nil, errors.New("token service not initialized")
		}
		return tokens.ValidateToken(token)
	}
	return userFromCookie(w, r)
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func userFromCookie(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, error) {
	key := SessionKey(r)
	if key == "" {
		return nil, nil
	}
	sess, ok := sessions.lookup(key)
	if !ok {
		ClearSessionCookie(w)
		return nil, nil
	}
	if queries == nil {
		ClearSessionCookie(w)
		return nil, errors.New("auth queries not initialized")
	}

	row, err := queries.GetUserByID(r.Context(), sess.userID)
	if err != nil {
		// The account is gone or unreadable; make the browser sign in again.
		sessions.close(key)
		ClearSessionCookie(w)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	user := authUserFromRow(row)
	user.SessionType = authz.SessionTypeCookie
	return user, nil
}

func authUserFromRow(user dbgen.User) *authz.AuthUser {
	role, ok := authz.ParseRole(user.Role)
	if !ok {
		role = authz.RolePlayer
	}
	return &authz.AuthUser{
		ID:       user.ID,
		Username: user.Username,
		Role:     role,
		TeamID:   user.TeamID.String,
		PlayerID: user.PlayerID.String,
	}
}
