package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/jotter/internal/store"
	"github.com/2beens/jotter/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	minUsernameLen = 6
	minPasswordLen = 8
)

// Service orchestrates signup, login, privileged-action re-verification and
// the cross-namespace account/notes deletion sequences.
type Service struct {
	store    *store.Store
	sessions *SessionManager
}

func NewService(s *store.Store, sessions *SessionManager) *Service {
	return &Service{
		store:    s,
		sessions: sessions,
	}
}

func isAlphanumeric(s string) bool {
	for _, ch := range s {
		isDigit := ch >= '0' && ch <= '9'
		isLetter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
		if !isDigit && !isLetter {
			return false
		}
	}
	return true
}

// Signup validates the form data (fail fast, first violation wins), creates
// the credential record with set-if-absent semantics and issues a session.
// The empty note list needs no explicit initialization: a missing notes key
// reads as an empty list. If session issuance fails after the credential
// record was created, the record is not rolled back; the user can still log
// in normally afterwards.
func (s *Service) Signup(ctx context.Context, username, password, confirmPassword string) (Session, error) {
	if len(username) < minUsernameLen {
		return Session{}, ErrUsernameTooShort
	}
	if !isAlphanumeric(username) {
		return Session{}, ErrUsernameInvalidChars
	}
	if password != confirmPassword {
		return Session{}, ErrPasswordMismatch
	}
	if len(password) < minPasswordLen {
		return Session{}, ErrPasswordTooShort
	}

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, username, passwordHash)
	if err != nil {
		return Session{}, err
	}
	if !created {
		return Session{}, ErrUsernameTaken
	}

	log.Infof("new user [%s] created", username)
	return s.sessions.Issue(ctx, username)
}

// Login verifies the credentials and issues a session. Unknown username and
// wrong password both come back as ErrWrongCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	passwordHash, err := s.store.GetPasswordHash(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrWrongCredentials
		}
		return Session{}, err
	}

	if !pkg.CheckPasswordHash(password, passwordHash) {
		log.Tracef("failed login attempt for user: %s", username)
		return Session{}, ErrWrongCredentials
	}

	return s.sessions.Issue(ctx, username)
}

// VerifyPrivileged gates destructive operations: it requires a valid session
// and a re-entered password matching the stored credential record. A missing
// record and a wrong password are indistinguishable to the caller.
func (s *Service) VerifyPrivileged(ctx context.Context, cookieUsername, cookieToken, submittedPassword string) (string, error) {
	username, err := s.sessions.Verify(ctx, cookieUsername, cookieToken)
	if err != nil {
		return "", err
	}

	passwordHash, err := s.store.GetPasswordHash(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrPrivilegedVerification
		}
		return "", err
	}

	if !pkg.CheckPasswordHash(submittedPassword, passwordHash) {
		return "", ErrPrivilegedVerification
	}

	return username, nil
}

// DeleteNotes clears the user's note list.
func (s *Service) DeleteNotes(ctx context.Context, username string) error {
	return s.store.ClearNotes(ctx, username)
}

// DeleteAccount removes the note list first and the credential record second,
// so a half-failed deletion can never leave notes under a username a stranger
// could re-register. The two deletes are independently committed, there is no
// rollback. The caller is expected to revoke the current session and clear
// cookies afterwards.
func (s *Service) DeleteAccount(ctx context.Context, username string) error {
	if err := s.store.ClearNotes(ctx, username); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, username); err != nil {
		return err
	}
	log.Infof("deleted account [%s]", username)
	return nil
}
