// Package auth tracks live user sessions. A session is started on login,
// ended on logout, and expires together with its JWT. The registry is the
// session provider the ledger engine consults before any mutation.
package auth

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Session records one authenticated login.
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Registry holds at most one live session per user.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
	log      *logrus.Logger
	now      func() time.Time
}

// NewRegistry creates an empty session registry.
func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		log:      log,
		now:      time.Now,
	}
}

// Start registers a session for the user, replacing any previous one.
func (r *Registry) Start(userID, tokenID string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[userID] = Session{UserID: userID, TokenID: tokenID, ExpiresAt: expiresAt}
}

// End removes the user's session, if any.
func (r *Registry) End(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
}

// CurrentUserID reports the session owner for the given token ID. It lets
// boundary code resolve the implicit "current user" from a presented token.
func (r *Registry) CurrentUserID(tokenID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.TokenID == tokenID && r.now().Before(s.ExpiresAt) {
			return s.UserID, true
		}
	}
	return "", false
}

// IsAuthenticated reports whether the user holds an unexpired session.
func (r *Registry) IsAuthenticated(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	return ok && r.now().Before(s.ExpiresAt)
}

// PruneExpired drops all expired sessions and returns how many were removed.
// Called periodically from the scheduler.
func (r *Registry) PruneExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for userID, s := range r.sessions {
		if !r.now().Before(s.ExpiresAt) {
			delete(r.sessions, userID)
			n++
		}
	}
	if n > 0 {
		r.log.Debugf("Removed %d expired sessions", n)
	}
	return n
}
