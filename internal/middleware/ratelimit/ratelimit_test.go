package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLimiterWindow(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := newLimiter(Config{RequestsPerMinute: 2}, c.now)

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request in the window should be refused")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own window")
	}
	if got := rl.RetryAfter("1.2.3.4"); got != 60 {
		t.Fatalf("RetryAfter = %d, want 60", got)
	}

	c.t = c.t.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window should reset after a minute")
	}
	if rl.Rejected() != 1 {
		t.Fatalf("Rejected = %d", rl.Rejected())
	}
}

func TestLimiterCleanup(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := newLimiter(Config{}, c.now)
	rl.Allow("a")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("b")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d", rl.ActiveClients())
	}
}

func TestLimiterMiddleware(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)}
	rl := newLimiter(Config{RequestsPerMinute: 1}, c.now)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", second.Header().Get("Retry-After"))
	}
}
