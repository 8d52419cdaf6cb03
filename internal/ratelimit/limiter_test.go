package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *stepClock) step(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, cfg Config) (*Limiter, *stepClock) {
	t.Helper()
	clock := &stepClock{at: time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)}
	cfg.Clock = clock
	l := New(&cfg)
	t.Cleanup(l.Close)
	return l, clock
}

func TestUsernameLocksAfterMaxFailures(t *testing.T) {
	l, clock := newLimiter(t, Config{MaxAttempts: 3, Lockout: 10 * time.Minute, MaxIPPerHour: 100})
	const ip = "203.0.113.9"

	for n := 1; n <= 2; n++ {
		if l.RecordFailure("coach", ip) {
			t.Fatalf("locked after %d failures", n)
		}
		if res := l.CheckLogin("coach", ip); !res.Allowed {
			t.Fatalf("blocked after %d failures: %s", n, res.Reason)
		}
	}
	if !l.RecordFailure("coach", ip) {
		t.Fatal("third failure should lock")
	}

	// Case and address do not matter to the username counter.
	res := l.CheckLogin("COACH", "198.51.100.7")
	if res.Allowed || res.Reason != "lockout" || res.RetryAfter != 10*time.Minute {
		t.Fatalf("got %+v", res)
	}

	clock.step(11 * time.Minute)
	if res := l.CheckLogin("coach", ip); !res.Allowed {
		t.Fatalf("lockout outlived its duration: %s", res.Reason)
	}
	if l.RecordFailure("coach", ip) {
		t.Fatal("expired lockout kept its count")
	}
}

func TestSuccessResetsUsernameButCountsForIP(t *testing.T) {
	l, _ := newLimiter(t, Config{MaxAttempts: 2, MaxIPPerHour: 2})
	const ip = "203.0.113.20"

	l.RecordFailure("keeper", ip)
	l.RecordSuccess("keeper", ip)
	if _, ok := l.users[userKey("keeper")]; ok {
		t.Fatal("username window survived a successful login")
	}
	if res := l.CheckLogin("keeper", ip); res.Allowed || res.Reason != "ip_hourly_limit" {
		t.Fatalf("expected the ip to be spent, got %+v", res)
	}
}

func TestIPWindowRollsOver(t *testing.T) {
	l, clock := newLimiter(t, Config{MaxAttempts: 100, MaxIPPerHour: 3})
	const ip = "203.0.113.50"

	for _, user := range []string{"a", "b", "c"} {
		l.RecordFailure(user, ip)
	}
	if res := l.CheckLogin("d", ip); res.Allowed || res.Reason != "ip_hourly_limit" {
		t.Fatalf("got %+v", res)
	}
	if res := l.CheckLogin("d", "203.0.113.51"); !res.Allowed {
		t.Fatal("limit leaked to another address")
	}

	clock.step(time.Hour)
	if res := l.CheckLogin("d", ip); !res.Allowed {
		t.Fatalf("window did not roll over: %s", res.Reason)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	l := New(&Config{})
	defer l.Close()
	if l.cfg.MaxAttempts != 5 || l.cfg.Lockout != 15*time.Minute || l.cfg.MaxIPPerHour != 60 {
		t.Fatalf("defaults not applied: %+v", l.cfg)
	}
	if _, ok := l.clock.(realClock); !ok {
		t.Fatalf("expected wall clock, got %T", l.clock)
	}
}

func TestSweepEvictsIdleWindows(t *testing.T) {
	l, clock := newLimiter(t, Config{MaxAttempts: 10, Lockout: time.Minute})

	l.RecordFailure("coach", "203.0.113.9")
	clock.step(2 * time.Hour)
	l.RecordFailure("keeper", "198.51.100.7")
	l.sweep()

	if len(l.users) != 1 || len(l.ips) != 1 {
		t.Fatalf("users=%d ips=%d after sweep", len(l.users), len(l.ips))
	}
}

func TestGetClientIP(t *testing.T) {
	cases := map[string]struct {
		remote, xff, realIP string
		trust               bool
		want                string
	}{
		"rightmost public hop":   {remote: "10.0.0.1:1234", xff: "203.0.113.50, 10.0.0.1", trust: true, want: "203.0.113.50"},
		"all internal hops":      {remote: "10.0.0.1:1234", xff: "192.168.1.1, 10.0.0.1", trust: true, want: "10.0.0.1"},
		"mapped private skipped": {remote: "10.0.0.1:1234", xff: "198.51.100.4, ::ffff:10.1.1.1", trust: true, want: "198.51.100.4"},
		"real ip header":         {remote: "10.0.0.1:1234", realIP: "203.0.113.51", trust: true, want: "203.0.113.51"},
		"headers ignored":        {remote: "192.168.1.100:5432", xff: "203.0.113.50", want: "192.168.1.100"},
		"remote without port":    {remote: "192.168.1.100", want: "192.168.1.100"},
		"ipv6 remote with port":  {remote: "[2001:db8::7]:443", want: "2001:db8::7"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/login", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := GetClientIP(r, tc.trust); got != tc.want {
				t.Fatalf("GetClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	for in, want := range map[string]string{"CoachRiley": "co***", "  ab  ": "***", "": "***"} {
		if got := SanitizeUsername(in); got != want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}
