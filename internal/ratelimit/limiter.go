// Package ratelimit throttles password logins per username and per client IP.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ipWindow     = time.Hour
	sweepEvery   = 5 * time.Minute
	reasonLocked = "lockout"
	reasonIP     = "ip_hourly_limit"
)

// Clock lets tests drive time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration. Zero fields take the defaults.
type Config struct {
	MaxAttempts  int           // failed logins per username before lockout
	Lockout      time.Duration // how long a locked username stays locked
	MaxIPPerHour int           // login attempts per IP per hour

	Clock Clock
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  5,
		Lockout:      15 * time.Minute,
		MaxIPPerHour: 60,
	}
}

// LimitResult is the verdict for one login attempt.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

// window counts events since start. locked is set once the count crossed the limit.
type window struct {
	count  int
	start  time.Time
	last   time.Time
	locked time.Time
}

// windows is keyed by a hashed identifier so raw usernames and addresses never sit in memory.
type windows map[string]*window

func (ws windows) hit(key string, now time.Time, expired func(*window) bool) *window {
	w := ws[key]
	if w == nil || expired(w) {
		w = &window{start: now}
		ws[key] = w
	}
	w.count++
	w.last = now
	return w
}

func (ws windows) evict(now time.Time, maxIdle time.Duration) {
	for key, w := range ws {
		if now.Sub(w.last) > maxIdle {
			delete(ws, key)
		}
	}
}

// Limiter tracks failed logins. Use New; the zero value is not usable.
type Limiter struct {
	cfg   Config
	clock Clock

	mu    sync.RWMutex
	users windows
	ips   windows

	sweepOnce sync.Once
	stop      context.CancelFunc
	stopCtx   context.Context
	sweeping  sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	defaults := DefaultConfig()
	merged := *defaults
	if cfg != nil {
		if cfg.MaxAttempts > 0 {
			merged.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.Lockout > 0 {
			merged.Lockout = cfg.Lockout
		}
		if cfg.MaxIPPerHour > 0 {
			merged.MaxIPPerHour = cfg.MaxIPPerHour
		}
		merged.Clock = cfg.Clock
	}
	clock := merged.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		cfg:     merged,
		clock:   clock,
		users:   windows{},
		ips:     windows{},
		stop:    cancel,
		stopCtx: ctx,
	}
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.stop()
	l.sweeping.Wait()
}

// CheckLogin reports whether a login attempt may proceed. It records nothing.
func (l *Limiter) CheckLogin(username, ip string) LimitResult {
	l.startSweep()
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	if w := l.users[userKey(username)]; w != nil && !w.locked.IsZero() {
		if left := l.cfg.Lockout - now.Sub(w.locked); left > 0 {
			return LimitResult{RetryAfter: left, Reason: reasonLocked}
		}
	}
	if w := l.ips[ipKey(ip)]; w != nil && w.count >= l.cfg.MaxIPPerHour {
		if left := ipWindow - now.Sub(w.start); left > 0 {
			return LimitResult{RetryAfter: left, Reason: reasonIP}
		}
	}
	return LimitResult{Allowed: true}
}

// RecordFailure counts a failed login and reports whether this failure locked the username.
func (l *Limiter) RecordFailure(username, ip string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.users.hit(userKey(username), now, func(w *window) bool {
		return !w.locked.IsZero() && now.Sub(w.locked) >= l.cfg.Lockout
	})
	lockedNow := false
	if w.count >= l.cfg.MaxAttempts && w.locked.IsZero() {
		w.locked = now
		lockedNow = true
	}
	l.hitIPLocked(ip, now)
	return lockedNow
}

// RecordSuccess forgets the username's failures. The attempt still counts against the IP.
func (l *Limiter) RecordSuccess(username, ip string) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.users, userKey(username))
	l.hitIPLocked(ip, now)
}

func (l *Limiter) hitIPLocked(ip string, now time.Time) {
	l.ips.hit(ipKey(ip), now, func(w *window) bool {
		return now.Sub(w.start) >= ipWindow
	})
}

func (l *Limiter) startSweep() {
	l.sweepOnce.Do(func() {
		l.sweeping.Add(1)
		go func() {
			defer l.sweeping.Done()
			ticker := time.NewTicker(sweepEvery)
			defer ticker.Stop()
			for {
				select {
				case <-l.stopCtx.Done():
					return
				case <-ticker.C:
					l.sweep()
				}
			}
		}()
	})
}

func (l *Limiter) sweep() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users.evict(now, l.cfg.Lockout+ipWindow)
	l.ips.evict(now, ipWindow)
}

func userKey(username string) string {
	return hashKey("user:", normalizeUsername(username))
}

func ipKey(ip string) string {
	return hashKey("ip:", ip)
}

func hashKey(prefix, value string) string {
	sum := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(sum[:8])
}

// normalizeUsername folds case so "Coach" and "coach" share a counter.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SanitizeUsername masks a username for logging.
func SanitizeUsername(username string) string {
	username = normalizeUsername(username)
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// LogRateLimitExceeded logs a blocked attempt with a masked username.
func LogRateLimitExceeded(username, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Login rate limit exceeded")
}
