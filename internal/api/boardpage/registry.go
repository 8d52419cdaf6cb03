package boardpage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/board"
	"github.com/rosterforge/rosterforge/internal/config"
	"github.com/rosterforge/rosterforge/internal/grid"
	sched "github.com/rosterforge/rosterforge/internal/schedule"
)

const (
	defaultIdleTimeout = 2 * time.Hour
	minSweepInterval   = time.Minute
	refreshTimeout     = 5 * time.Second
)

type entry struct {
	board    *board.Board
	role     authz.Role
	lastUsed time.Time
}

// Registry holds one board per signed-in browser session. Boards hold the drag state
// between HTMX requests and are dropped after sitting idle.
type Registry struct {
	mu          sync.Mutex
	boards      map[string]*entry
	backend     board.Backend
	maxInFlight int
	idleTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(backend board.Backend, cfg config.BoardConfig) *Registry {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Registry{
		boards:      make(map[string]*entry),
		backend:     backend,
		maxInFlight: cfg.MaxInFlight,
		idleTimeout: idle,
		now:         time.Now,
	}
}

// PermissionFor maps a user's role on teamID to a board variant.
func PermissionFor(user *authz.AuthUser, teamID string) board.Permission {
	switch {
	case authz.IsAdmin(user):
		return board.PermissionAdmin
	case authz.CanEditTeam(user, teamID):
		return board.PermissionManager
	default:
		return board.PermissionViewer
	}
}

// Acquire returns the session's board showing teamID, creating and loading it on first use.
// An admin board that is showing another team is switched rather than replaced.
func (r *Registry) Acquire(ctx context.Context, key string, user *authz.AuthUser, teamID string) (*board.Board, error) {
	r.mu.Lock()
	e, ok := r.boards[key]
	if ok && e.role != user.Role {
		delete(r.boards, key)
		ok = false
	}
	if ok {
		e.lastUsed = r.now()
	}
	r.mu.Unlock()

	if ok {
		if e.board.TeamID() == teamID {
			return e.board, nil
		}
		if e.board.Snapshot().Permission == board.PermissionAdmin {
			if err := e.board.SetTeam(ctx, teamID); err != nil {
				return nil, err
			}
			return e.board, nil
		}
	}

	b, err := board.New(r.backend, board.Config{
		TeamID:      teamID,
		Permission:  PermissionFor(user, teamID),
		WeekStart:   grid.WeekStart(r.now()),
		MaxInFlight: r.maxInFlight,
		Now:         r.now,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.boards[key] = &entry{board: b, role: user.Role, lastUsed: r.now()}
	r.mu.Unlock()
	return b, nil
}

// Forget drops the session's board, e.g. on sign out.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, key)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Publish merges a committed change into every open board showing that team.
func (r *Registry) Publish(evt sched.Event) {
	r.mu.Lock()
	boards := make([]*board.Board, 0, len(r.boards))
	for _, e := range r.boards {
		boards = append(boards, e.board)
	}
	r.mu.Unlock()

	for _, b := range boards {
		if b.TeamID() != evt.TeamID {
			continue
		}
		switch evt.Kind {
		case sched.EventCreated, sched.EventUpdated:
			b.Apply(evt.Activity, false)
		case sched.EventDeleted:
			b.Apply(evt.Activity, true)
		case sched.EventAvailability:
			go func(b *board.Board) {
				ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
				defer cancel()
				if err := b.RefreshAvailability(ctx); err != nil {
					log.Warn().Err(err).Str("team_id", evt.TeamID).Msg("Failed to refresh board availability")
				}
			}(b)
		}
	}
}

// Sweep drops boards idle longer than the idle timeout and reports how many went.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTimeout)
	removed := 0
	for key, e := range r.boards {
		if e.lastUsed.Before(cutoff) {
			delete(r.boards, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle boards until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTimeout / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("Swept idle boards")
			}
		}
	}
}
