package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orcidhub/orcidhub/internal/cachemanager"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Severity Severity
	Message  string
}

// SessionCookie names the cookie holding the browser's flash session id.
const SessionCookie = "orcidhub_session"

// SessionKey addresses one browser's pending flashes.
type SessionKey string

// FlashStore keeps pending flashes per browser session in a TTL cache.
type FlashStore struct {
	mu    sync.Mutex
	cache cachemanager.CacheManager[SessionKey, []Flash]
	ttl   time.Duration
}

// NewFlashStore keeps undelivered flashes for ttl.
func NewFlashStore(cache cachemanager.CacheManager[SessionKey, []Flash], ttl time.Duration) *FlashStore {
	return &FlashStore{cache: cache, ttl: ttl}
}

// Add queues a flash for the request's session, starting a session when
// the browser has none.
func (s *FlashStore) Add(w http.ResponseWriter, r *http.Request, sev Severity, msg string) {
	key := s.session(w, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	pending, _ := s.cache.Get(r.Context(), key)
	pending = append(pending, Flash{Severity: sev, Message: msg})
	s.cache.Set(r.Context(), key, pending, s.ttl)
}

// Take returns and forgets the session's pending flashes.
func (s *FlashStore) Take(r *http.Request) []Flash {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes, _ := s.cache.Take(r.Context(), SessionKey(c.Value))
	return flashes
}

// Len reports how many sessions have pending flashes.
func (s *FlashStore) Len() int {
	return s.cache.Len()
}

// Flush drops every pending flash.
func (s *FlashStore) Flush(ctx context.Context) error {
	return s.cache.Flush(ctx)
}

func (s *FlashStore) session(w http.ResponseWriter, r *http.Request) SessionKey {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return SessionKey(c.Value)
	}
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, c)
	// Later calls within this request reuse the new session
	r.AddCookie(c)
	return SessionKey(c.Value)
}
