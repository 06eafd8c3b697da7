package auth

import (
	"context"
	"testing"

	"github.com/2beens/jotter/internal/store"
	"github.com/2beens/jotter/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
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

func newTestSessionManager(t *testing.T) (*SessionManager, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		_ = db.Close()
	})
	sm := NewSessionManager(SessionTTL, store.New(db), metrics.NewTestManager())
	return sm, mock
}

func TestSessionManager_Issue(t *testing.T) {
	sm, mock := newTestSessionManager(t)
	sm.RandStringFunc = func() (string, error) {
		return "fixed-token", nil
	}

	mock.
		ExpectSet("jotter-session||"+HashToken("fixed-token"), "serjtubin", SessionTTL).
		SetVal("OK")

	session, err := sm.Issue(context.Background(), "serjtubin")
	require.NoError(t, err)
	assert.Equal(t, "serjtubin", session.Username)
	assert.Equal(t, "fixed-token", session.Token)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionManager_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		sm, mock := newTestSessionManager(t)
		mock.ExpectGet("jotter-session||" + HashToken("tok")).SetVal("serjtubin")

		username, err := sm.Verify(ctx, "serjtubin", "tok")
		require.NoError(t, err)
		assert.Equal(t, "serjtubin", username)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing cookies", func(t *testing.T) {
		sm, _ := newTestSessionManager(t)

		_, err := sm.Verify(ctx, "", "tok")
		assert.ErrorIs(t, err, ErrNoSession)
		_, err = sm.Verify(ctx, "serjtubin", "")
		assert.ErrorIs(t, err, ErrNoSession)
		_, err = sm.Verify(ctx, "", "")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("unknown token", func(t *testing.T) {
		sm, mock := newTestSessionManager(t)
		mock.ExpectGet("jotter-session||" + HashToken("stale-tok")).RedisNil()

		_, err := sm.Verify(ctx, "serjtubin", "stale-tok")
		assert.ErrorIs(t, err, ErrInvalidSession)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("username mismatch revokes the session", func(t *testing.T) {
		sm, mock := newTestSessionManager(t)
		tokenHash := HashToken("stolen-tok")
		mock.ExpectGet("jotter-session||" + tokenHash).SetVal("victim")
		mock.ExpectDel("jotter-session||" + tokenHash).SetVal(1)

		_, err := sm.Verify(ctx, "attacker", "stolen-tok")
		assert.ErrorIs(t, err, ErrInvalidSession)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error is passed through", func(t *testing.T) {
		sm, mock := newTestSessionManager(t)
		mock.ExpectGet("jotter-session||" + HashToken("tok")).SetErr(redis.ErrClosed)

		_, err := sm.Verify(ctx, "serjtubin", "tok")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidSession)
		assert.NotErrorIs(t, err, ErrNoSession)
	})
}

func TestSessionManager_Revoke(t *testing.T) {
	ctx := context.Background()

	sm, mock := newTestSessionManager(t)
	mock.ExpectDel("jotter-session||" + HashToken("tok")).SetVal(1)
	revoked, err := sm.Revoke(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectDel("jotter-session||" + HashToken("never-issued")).SetVal(0)
	revoked, err = sm.Revoke(ctx, "never-issued")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, mock.ExpectationsWereMet())
}
