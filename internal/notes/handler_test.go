package notes

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/2beens/jotter/internal/auth"
	"github.com/2beens/jotter/internal/store"
	"github.com/2beens/jotter/internal/telemetry/metrics"
	"github.com/2beens/jotter/internal/web"

	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerTestRouter(t *testing.T) (*mux.Router, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		_ = db.Close()
	})

	kvStore := store.New(db)
	sessions := auth.NewSessionManager(auth.SessionTTL, kvStore, metrics.NewTestManager())

	service := NewService(kvStore)
	service.NowFunc = func() time.Time {
		return time.Date(2022, time.April, 7, 21, 16, 0, 0, time.UTC)
	}

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	handler := NewHandler(service, sessions, renderer, metrics.NewTestManager())
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return router, mock
}

func withSession(req *http.Request, username, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: auth.CookieUsername, Value: username})
	req.AddCookie(&http.Cookie{Name: auth.CookieToken, Value: token})
	return req
}

func TestHandler_Root(t *testing.T) {
	t.Run("no session shows the login page", func(t *testing.T) {
		router, _ := newHandlerTestRouter(t)

		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `action="/login"`)
	})

	t.Run("valid session shows the notes", func(t *testing.T) {
		router, mock := newHandlerTestRouter(t)
		mock.ExpectGet("jotter-session||" + auth.HashToken("tok")).SetVal("serjtubin")
		mock.ExpectLRange("jotter-notes||serjtubin", 0, -1).SetVal([]string{
			`{"date":"April 05, 2022 | 10:00 AM","body":"first *note*"}`,
			`{"date":"April 07, 2022 | 09:16 PM","body":"second note"}`,
		})

		req := withSession(httptest.NewRequest("GET", "/", nil), "serjtubin", "tok")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "serjtubin")
		assert.Contains(t, body, "<em>note</em>")
		// newest note comes first on the page
		assert.Less(t,
			strings.Index(body, "second note"),
			strings.Index(body, "first <em>note</em>"),
		)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale session gets cleared", func(t *testing.T) {
		router, mock := newHandlerTestRouter(t)
		mock.ExpectGet("jotter-session||" + auth.HashToken("stale")).RedisNil()

		req := withSession(httptest.NewRequest("GET", "/", nil), "serjtubin", "stale")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Found invalid or outdated cookies.")
		assert.NotEmpty(t, rr.Result().Cookies())
	})
}

func TestHandler_CreateNote(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		router, mock := newHandlerTestRouter(t)
		mock.ExpectGet("jotter-session||" + auth.HashToken("tok")).SetVal("serjtubin")
		mock.
			ExpectRPush(
				"jotter-notes||serjtubin",
				`{"date":"April 07, 2022 | 09:16 PM","body":"a **new** note"}`,
			).
			SetVal(1)

		form := url.Values{"note": {"a **new** note"}}
		req := httptest.NewRequest("POST", "/create/note", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		withSession(req, "serjtubin", "tok")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "<strong>new</strong>")
		assert.Contains(t, body, "April 07, 2022 | 09:16 PM")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no session", func(t *testing.T) {
		router, _ := newHandlerTestRouter(t)

		form := url.Values{"note": {"a note"}}
		req := httptest.NewRequest("POST", "/create/note", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("forged session pair", func(t *testing.T) {
		router, mock := newHandlerTestRouter(t)
		tokenHash := auth.HashToken("stolen")
		mock.ExpectGet("jotter-session||" + tokenHash).SetVal("victim")
		mock.ExpectDel("jotter-session||" + tokenHash).SetVal(1)

		form := url.Values{"note": {"a note"}}
		req := httptest.NewRequest("POST", "/create/note", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		withSession(req, "attacker", "stolen")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHandler_Static(t *testing.T) {
	router, _ := newHandlerTestRouter(t)

	req := httptest.NewRequest("GET", "/static/css/style.css", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.String())
}
