package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// key layout:
//	jotter-user||<username>     -> bcrypt password hash
//	jotter-session||<sha256hex> -> username
//	jotter-notes||<username>    -> list of serialized notes, oldest first
const (
	userKeyPrefix    = "jotter-user||"
	sessionKeyPrefix = "jotter-session||"
	notesKeyPrefix   = "jotter-notes||"
)

var ErrNotFound = errors.New("not found")

// Store wraps the redis client with the two logical namespaces the app needs:
// credentials (user and session records) and notes (per-user ordered list).
// All operations are single-key, there are no multi-key transactions.
type Store struct {
	redisClient *redis.Client
}

func New(redisClient *redis.Client) *Store {
	return &Store{
		redisClient: redisClient,
	}
}

// CreateUser stores the password hash for the given username, with set-if-absent
// semantics. Returns false if the username is already taken.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (bool, error) {
	cmd := s.redisClient.SetNX(ctx, userKeyPrefix+username, passwordHash, 0)
	if err := cmd.Err(); err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	return cmd.Val(), nil
}

func (s *Store) GetPasswordHash(ctx context.Context, username string) (string, error) {
	cmd := s.redisClient.Get(ctx, userKeyPrefix+username)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return cmd.Val(), nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if err := s.redisClient.Del(ctx, userKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *Store) PutSession(ctx context.Context, tokenHash, username string, ttl time.Duration) error {
	if err := s.redisClient.Set(ctx, sessionKeyPrefix+tokenHash, username, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (string, error) {
	cmd := s.redisClient.Get(ctx, sessionKeyPrefix+tokenHash)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	return cmd.Val(), nil
}

// DeleteSession removes the session record and reports whether a record was
// actually there, so callers can tell a real revocation from a no-op.
func (s *Store) DeleteSession(ctx context.Context, tokenHash string) (bool, error) {
	cmd := s.redisClient.Del(ctx, sessionKeyPrefix+tokenHash)
	if err := cmd.Err(); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return cmd.Val() > 0, nil
}

func (s *Store) AppendNote(ctx context.Context, username, serialized string) error {
	if err := s.redisClient.RPush(ctx, notesKeyPrefix+username, serialized).Err(); err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	return nil
}

// ListNotes returns all serialized notes for the user, oldest first. A missing
// key reads as an empty list.
func (s *Store) ListNotes(ctx context.Context, username string) ([]string, error) {
	cmd := s.redisClient.LRange(ctx, notesKeyPrefix+username, 0, -1)
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return cmd.Val(), nil
}

func (s *Store) CountNotes(ctx context.Context, username string) (int64, error) {
	cmd := s.redisClient.LLen(ctx, notesKeyPrefix+username)
	if err := cmd.Err(); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return cmd.Val(), nil
}

// ClearNotes empties the user's note list. Redis drops empty lists, so the key
// is simply deleted; a deleted key is indistinguishable from an empty list
// through every other note operation.
func (s *Store) ClearNotes(ctx context.Context, username string) error {
	if err := s.redisClient.Del(ctx, notesKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	return nil
}
