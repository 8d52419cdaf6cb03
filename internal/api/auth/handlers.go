package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/apiutil"
	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/config"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
	"github.com/rosterforge/rosterforge/internal/ratelimit"
	authtempl "github.com/rosterforge/rosterforge/internal/templates/components/auth"
	"github.com/rosterforge/rosterforge/internal/templates/layouts"
)

const (
	devSecretKey     = "rosterforge-development-secret"
	authQueryTimeout = 5 * time.Second
)

var errInvalidCredentials = errors.New("invalid username or password")

var (
	queries   *dbgen.Queries
	appConfig *config.Config
	tokens    *TokenService
	limiter   *ratelimit.Limiter
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *dbgen.Queries, cfg *config.Config, lim *ratelimit.Limiter) {
	queries = q
	appConfig = cfg
	limiter = lim

	secret := ""
	issuer := "rosterforge"
	ttl := 24 * time.Hour
	if cfg != nil {
		secret = cfg.App.SecretKey
		if cfg.Auth.TokenIssuer != "" {
			issuer = cfg.Auth.TokenIssuer
		}
		ttl = cfg.Auth.TokenTTL
	}
	if secret == "" {
		log.Warn().Msg("APP_SECRET_KEY not set, using development signing key")
		secret = devSecretKey
	}
	tokens = NewTokenService(secret, issuer, ttl)
}

// Tokens exposes the token service to the server wiring and tests.
func Tokens() *TokenService {
	return tokens
}

// HomePath is where a user lands after signing in.
func HomePath(user *authz.AuthUser) string {
	if user == nil {
		return "/login"
	}
	if user.Role != authz.RoleAdmin && user.TeamID != "" {
		return "/teams/" + user.TeamID + "/schedule"
	}
	return "/"
}

// GET /login
func HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if user := authz.UserFromContext(r.Context()); user != nil {
		http.Redirect(w, r, HomePath(user), http.StatusSeeOther)
		return
	}
	renderLogin(w, r, http.StatusOK, authtempl.LoginForm{Next: r.URL.Query().Get("next")})
}

// POST /login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	form := authtempl.LoginForm{Username: username, Next: r.FormValue("next")}

	if username == "" || password == "" {
		form.Error = "Username and password are required"
		renderLogin(w, r, http.StatusBadRequest, form)
		return
	}

	user, err := authenticate(r, username, password)
	if err != nil {
		var herr apiutil.HandlerError
		if errors.As(err, &herr) {
			if herr.Status == http.StatusTooManyRequests {
				form.Error = "Too many attempts, try again later"
			} else {
				form.Error = herr.Message
			}
			renderLogin(w, r, herr.Status, form)
			return
		}
		logger.Error().Err(err).Msg("Failed to authenticate user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := CreateSession(w, user.ID); err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User signed in")
	target := HomePath(user)
	if next := safeNext(form.Next); next != "" {
		target = next
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// POST /logout
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSession(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	TeamID   string `json:"team_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      tokenUser `json:"user"`
}

// POST /api/auth/token
func HandleToken(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tokens == nil {
		logger.Error().Msg("Token service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req tokenRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := authenticate(r, req.Username, req.Password)
	if err != nil {
		var herr apiutil.HandlerError
		if errors.As(err, &herr) {
			http.Error(w, herr.Message, herr.Status)
			return
		}
		logger.Error().Err(err).Msg("Failed to authenticate user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := tokens.GenerateToken(user)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to sign token")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("API token issued")
	if err := apiutil.WriteJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		User: tokenUser{
			ID:       user.ID,
			Username: user.Username,
			Role:     string(user.Role),
			TeamID:   user.TeamID,
			PlayerID: user.PlayerID,
		},
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write token response")
	}
}

// authenticate checks credentials behind the login rate limiter. Expected failures come
// back as apiutil.HandlerError.
func authenticate(r *http.Request, username, password string) (*authz.AuthUser, error) {
	if queries == nil {
		return nil, errors.New("auth queries not initialized")
	}

	ip := ratelimit.GetClientIP(r, false)
	if limiter != nil {
		if result := limiter.CheckLogin(username, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(username, ip, result.Reason)
			return nil, apiutil.HandlerError{
				Status:  http.StatusTooManyRequests,
				Message: "Too many login attempts, retry in " + strconv.Itoa(int(result.RetryAfter.Seconds())+1) + "s",
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	row, err := queries.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil || !VerifyPassword(row.PasswordHash, password) {
		if limiter != nil {
			if limiter.RecordFailure(username, ip) {
				log.Ctx(r.Context()).Warn().
					Str("username", ratelimit.SanitizeUsername(username)).
					Str("ip", ip).
					Msg("Login locked after repeated failures")
			}
		}
		return nil, apiutil.HandlerError{
			Status:  http.StatusUnauthorized,
			Message: "Invalid username or password",
			Err:     errInvalidCredentials,
		}
	}

	if limiter != nil {
		limiter.RecordSuccess(username, ip)
	}
	return authUserFromRow(row), nil
}

func renderLogin(w http.ResponseWriter, r *http.Request, status int, form authtempl.LoginForm) {
	form.CSRFToken = csrf.Token(r)
	page := layouts.Base(layouts.Page{Title: "Sign in", CSRFToken: form.CSRFToken}, authtempl.Login(form))
	apiutil.RenderHTML(w, r, status, page, "Failed to render login page")
}

// safeNext only allows local absolute paths.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}
