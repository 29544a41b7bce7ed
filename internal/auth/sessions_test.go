package auth

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestRegistry() *Registry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewRegistry(log)
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRegistry()

	if r.IsAuthenticated("u1") {
		t.Error("fresh registry should have no sessions")
	}

	r.Start("u1", "token-1", time.Now().Add(time.Hour))
	if !r.IsAuthenticated("u1") {
		t.Error("user should be authenticated after Start")
	}

	userID, ok := r.CurrentUserID("token-1")
	if !ok || userID != "u1" {
		t.Errorf("CurrentUserID() = %q, %v", userID, ok)
	}
	if _, ok := r.CurrentUserID("unknown-token"); ok {
		t.Error("unknown token must not resolve")
	}

	r.End("u1")
	if r.IsAuthenticated("u1") {
		t.Error("user should not be authenticated after End")
	}
}

func TestExpiredSessionsRejected(t *testing.T) {
	r := newTestRegistry()
	r.Start("u1", "token-1", time.Now().Add(time.Hour))
	r.Start("u2", "token-2", time.Now().Add(time.Hour))

	// Move the clock past every expiry.
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if r.IsAuthenticated("u1") {
		t.Error("expired session must not authenticate")
	}
	if _, ok := r.CurrentUserID("token-2"); ok {
		t.Error("expired token must not resolve")
	}

	if n := r.PruneExpired(); n != 2 {
		t.Errorf("PruneExpired() = %d, want 2", n)
	}
	if n := r.PruneExpired(); n != 0 {
		t.Errorf("second PruneExpired() = %d, want 0", n)
	}
}

func TestStartReplacesSession(t *testing.T) {
	r := newTestRegistry()
	r.Start("u1", "token-1", time.Now().Add(time.Hour))
	r.Start("u1", "token-2", time.Now().Add(time.Hour))

	if _, ok := r.CurrentUserID("token-1"); ok {
		t.Error("old token should be invalid after a second login")
	}
	if userID, ok := r.CurrentUserID("token-2"); !ok || userID != "u1" {
		t.Errorf("CurrentUserID(token-2) = %q, %v", userID, ok)
	}
}
