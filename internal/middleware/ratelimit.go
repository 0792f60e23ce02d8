package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxAuthPeek bounds how much of an auth request body is read to find the
// username.
const maxAuthPeek = 4 << 10

// RealIP returns the client address, preferring CF-Connecting-IP, then the
// first X-Forwarded-For hop, then RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuthAttemptKey identifies a register or login attempt by route, client IP
// and family username. The body is restored for the handler.
func AuthAttemptKey(r *http.Request) string {
	var creds struct {
		Username string `json:"username"`
	}
	if r.Body != nil {
		peek, _ := io.ReadAll(io.LimitReader(r.Body, maxAuthPeek))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(peek), r.Body), r.Body}
		// A body that is not JSON, or too large to peek, keys on the IP alone.
		_ = json.Unmarshal(peek, &creds)
	}
	return r.URL.Path + "|" + RealIP(r) + "|" + strings.TrimSpace(creds.Username)
}

type attempts struct {
	count   int
	resetAt time.Time
}

// Throttle allows each key a fixed number of attempts per window.
type Throttle struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	keys   map[string]*attempts
}

func NewThrottle(limit int, window time.Duration) *Throttle {
	return &Throttle{
		limit:  limit,
		window: window,
		now:    time.Now,
		keys:   make(map[string]*attempts),
	}
}

// Allow records an attempt for key. Over the limit it returns false and the
// time left until the key's window resets.
func (t *Throttle) Allow(key string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	a, ok := t.keys[key]
	if !ok || !now.Before(a.resetAt) {
		t.keys[key] = &attempts{count: 1, resetAt: now.Add(t.window)}
		return true, 0
	}
	a.count++
	if a.count > t.limit {
		return false, a.resetAt.Sub(now)
	}
	return true, 0
}

// Prune drops keys whose window has ended and returns how many remain.
func (t *Throttle) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, a := range t.keys {
		if !now.Before(a.resetAt) {
			delete(t.keys, key)
		}
	}
	return len(t.keys)
}

// Throttled rejects requests whose key is over the throttle's limit with 429
// and a Retry-After in whole seconds.
func Throttled(t *Throttle, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := t.Allow(keyFunc(r))
			if !ok {
				secs := int((wait + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
