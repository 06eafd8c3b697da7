package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestStore_CreateUser(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	s := New(db)
	ctx := context.Background()

	mock.ExpectSetNX("jotter-user||serj", "pass-hash", 0).SetVal(true)
	created, err := s.CreateUser(ctx, "serj", "pass-hash")
	require.NoError(t, err)
	assert.True(t, created)

	// second create for the same username: key exists, SETNX is a no-op
	mock.ExpectSetNX("jotter-user||serj", "other-hash", 0).SetVal(false)
	created, err = s.CreateUser(ctx, "serj", "other-hash")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetPasswordHash(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	s := New(db)
	ctx := context.Background()

	mock.ExpectGet("jotter-user||serj").SetVal("pass-hash")
	hash, err := s.GetPasswordHash(ctx, "serj")
	require.NoError(t, err)
	assert.Equal(t, "pass-hash", hash)

	mock.ExpectGet("jotter-user||nobody").RedisNil()
	_, err = s.GetPasswordHash(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Sessions(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	s := New(db)
	ctx := context.Background()

	tokenHash := "AABBCC"
	ttl := 15 * 24 * time.Hour

	mock.ExpectSet("jotter-session||"+tokenHash, "serj", ttl).SetVal("OK")
	require.NoError(t, s.PutSession(ctx, tokenHash, "serj", ttl))

	mock.ExpectGet("jotter-session||" + tokenHash).SetVal("serj")
	username, err := s.GetSession(ctx, tokenHash)
	require.NoError(t, err)
	assert.Equal(t, "serj", username)

	mock.ExpectGet("jotter-session||unknown").RedisNil()
	_, err = s.GetSession(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectDel("jotter-session||" + tokenHash).SetVal(1)
	deleted, err := s.DeleteSession(ctx, tokenHash)
	require.NoError(t, err)
	assert.True(t, deleted)

	// deleting a session that never existed reports false
	mock.ExpectDel("jotter-session||unknown").SetVal(0)
	deleted, err = s.DeleteSession(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Notes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	s := New(db)
	ctx := context.Background()

	note1 := fmt.Sprintf(`{"date":"d1","body":%q}`, gofakeit.Sentence(5))
	note2 := fmt.Sprintf(`{"date":"d2","body":%q}`, gofakeit.Sentence(5))

	mock.ExpectRPush("jotter-notes||serj", note1).SetVal(1)
	require.NoError(t, s.AppendNote(ctx, "serj", note1))
	mock.ExpectRPush("jotter-notes||serj", note2).SetVal(2)
	require.NoError(t, s.AppendNote(ctx, "serj", note2))

	mock.ExpectLRange("jotter-notes||serj", 0, -1).SetVal([]string{note1, note2})
	notes, err := s.ListNotes(ctx, "serj")
	require.NoError(t, err)
	assert.Equal(t, []string{note1, note2}, notes)

	mock.ExpectLLen("jotter-notes||serj").SetVal(2)
	count, err := s.CountNotes(ctx, "serj")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// a user without notes reads as an empty list
	mock.ExpectLRange("jotter-notes||fresh", 0, -1).SetVal([]string{})
	notes, err = s.ListNotes(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, notes)

	mock.ExpectDel("jotter-notes||serj").SetVal(1)
	require.NoError(t, s.ClearNotes(ctx, "serj"))

	require.NoError(t, mock.ExpectationsWereMet())
}
