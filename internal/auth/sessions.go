package auth

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/jotter/internal/store"
	"github.com/2beens/jotter/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

// SessionTTL is both the cookie lifetime and the TTL on the server-side
// session record.
const SessionTTL = 15 * 24 * time.Hour

// Session holds the two cookie values a logged-in client carries: the plain
// username and the plain session token. Only the token's hash is ever stored
// server-side.
type Session struct {
	Username string
	Token    string
}

// SessionManager issues, verifies and revokes session tokens against the
// credentials namespace.
type SessionManager struct {
	store   *store.Store
	ttl     time.Duration
	metrics *metrics.Manager
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func() (string, error)
}

func NewSessionManager(ttl time.Duration, s *store.Store, m *metrics.Manager) *SessionManager {
	return &SessionManager{
		store:          s,
		ttl:            ttl,
		metrics:        m,
		RandStringFunc: GenerateToken,
	}
}

// Issue generates a fresh token for the username, stores hash(token) -> username
// and returns both cookie values. A user may hold multiple active sessions, one
// per login.
func (sm *SessionManager) Issue(ctx context.Context, username string) (Session, error) {
	token, err := sm.RandStringFunc()
	if err != nil {
		return Session{}, err
	}

	if err := sm.store.PutSession(ctx, HashToken(token), username, sm.ttl); err != nil {
		return Session{}, err
	}

	return Session{Username: username, Token: token}, nil
}

// Verify checks the cookie pair against the stored session record.
//
//   - either value empty: ErrNoSession
//   - hash(token) not found: ErrInvalidSession
//   - found, usernames match: ok
//   - found, usernames differ: someone is presenting a forged pair; the stale
//     record is deleted before failing with ErrInvalidSession, which revokes
//     that session for everyone
//
// On any failure the caller is responsible for clearing both client cookies.
func (sm *SessionManager) Verify(ctx context.Context, cookieUsername, cookieToken string) (string, error) {
	if cookieUsername == "" || cookieToken == "" {
		return "", ErrNoSession
	}

	tokenHash := HashToken(cookieToken)
	storedUsername, err := sm.store.GetSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}

	if storedUsername != cookieUsername {
		log.Warnf("session forgery signal: cookie user [%s], stored user differs; revoking session", cookieUsername)
		sm.metrics.CounterForgedSessions.Inc()
		if _, err := sm.store.DeleteSession(ctx, tokenHash); err != nil {
			return "", err
		}
		return "", ErrInvalidSession
	}

	return storedUsername, nil
}

// Revoke deletes the session record for the token. The returned bool tells
// whether a record was actually removed, i.e. whether this was a real session.
func (sm *SessionManager) Revoke(ctx context.Context, cookieToken string) (bool, error) {
	return sm.store.DeleteSession(ctx, HashToken(cookieToken))
}
