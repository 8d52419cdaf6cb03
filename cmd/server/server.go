// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api"
	"github.com/rosterforge/rosterforge/internal/api/auth"
	"github.com/rosterforge/rosterforge/internal/api/availability"
	"github.com/rosterforge/rosterforge/internal/api/boardpage"
	scheduleapi "github.com/rosterforge/rosterforge/internal/api/schedule"
	"github.com/rosterforge/rosterforge/internal/config"
	"github.com/rosterforge/rosterforge/internal/db"
	"github.com/rosterforge/rosterforge/internal/email"
	"github.com/rosterforge/rosterforge/internal/ratelimit"
	"github.com/rosterforge/rosterforge/internal/schedule"
	"github.com/rosterforge/rosterforge/internal/scheduler"
)

type app struct {
	db       *db.DB
	limiter  *ratelimit.Limiter
	hub      *scheduleapi.Hub
	registry *boardpage.Registry
	jobs     *scheduler.Service
	server   *http.Server
}

func newApp(cfg *config.Config) (*app, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The registry is built after the store it reads from, so the store publishes to it
	// through a closure.
	hub := scheduleapi.NewHub()
	var registry *boardpage.Registry
	store := schedule.NewStore(database, schedule.Publishers{
		hub,
		schedule.PublisherFunc(func(evt schedule.Event) {
			if registry != nil {
				registry.Publish(evt)
			}
		}),
	})
	registry = boardpage.NewRegistry(store, cfg.Board)

	limiter := ratelimit.New(&ratelimit.Config{
		MaxAttempts: cfg.Auth.LoginAttempts,
		Lockout:     cfg.Auth.LoginWindow,
	})

	origins := allowedOrigins(cfg.App.BaseURL)
	auth.InitHandlers(database.Queries, cfg, limiter)
	scheduleapi.InitHandlers(store, hub, origins)
	availability.InitHandlers(store)
	boardpage.InitHandlers(store, registry)

	sender, err := email.NewFromConfig(cfg.Email)
	if err != nil {
		limiter.Close()
		database.Close()
		return nil, fmt.Errorf("configure email: %w", err)
	}
	jobs, err := scheduler.New()
	if err != nil {
		limiter.Close()
		database.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if err := (scheduler.Jobs{Store: store, Sender: sender}).Register(jobs, cfg.Jobs); err != nil {
		limiter.Close()
		database.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	return &app{
		db:       database,
		limiter:  limiter,
		hub:      hub,
		registry: registry,
		jobs:     jobs,
		server:   newServer(cfg, origins),
	}, nil
}

func (a *app) Close() {
	a.limiter.Close()
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

func newServer(cfg *config.Config, origins []string) *http.Server {
	router := http.NewServeMux()
	registerRoutes(router, cfg.App.StaticDir)

	csrfSecret := cfg.App.SecretKey
	if csrfSecret == "" {
		csrfSecret = uuid.NewString()
	}
	trusted := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			trusted = append(trusted, u.Host)
		}
	}

	// Innermost first: the last middleware listed sees the request first.
	handler := api.ChainMiddleware(
		router,
		api.WithCSRF(csrfSecret, cfg.Auth.SecureCookies, trusted),
		api.WithAuth,
		api.WithContentType,
		api.WithSecurityHeaders,
		api.WithRecovery,
		api.WithLogging,
		api.WithRequestID,
	)

	// WriteTimeout stays zero so websocket connections and exports are not cut off.
	return &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, staticDir string) {
	mux.HandleFunc("GET /{$}", boardpage.HandleHome)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("GET /login", auth.HandleLoginPage)
	mux.HandleFunc("POST /login", auth.HandleLogin)
	mux.HandleFunc("POST /logout", boardpage.ForgetOnLogout(auth.HandleLogout))
	mux.HandleFunc("POST /api/auth/token", auth.HandleToken)

	// Schedule API
	mux.HandleFunc("GET /api/schedule", scheduleapi.HandleListActivities)
	mux.HandleFunc("POST /api/schedule", scheduleapi.HandleCreateActivity)
	mux.HandleFunc("GET /api/schedule/export", scheduleapi.HandleExport)
	mux.HandleFunc("GET /api/schedule/live", scheduleapi.HandleLive)
	mux.HandleFunc("PUT /api/schedule/{id}", scheduleapi.HandleUpdateActivity)
	mux.HandleFunc("DELETE /api/schedule/{id}", scheduleapi.HandleDeleteActivity)

	// Player availability
	mux.HandleFunc("GET /api/player-availability", availability.HandleList)
	mux.HandleFunc("PUT /api/player-availability", availability.HandleSave)

	// Board pages
	mux.HandleFunc("GET /teams/{team_id}/schedule", boardpage.HandleBoardPage)
	mux.HandleFunc("POST /teams/{team_id}/schedule/board/{action}", boardpage.HandleBoardAction)

	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Ctx(r.Context()).Debug().
			Str("path", r.URL.Path).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}

func allowedOrigins(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return []string{u.Scheme + "://" + u.Host}
}
