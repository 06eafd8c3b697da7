package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/jotter/internal/telemetry/metrics"
	"github.com/2beens/jotter/internal/web"
	"github.com/2beens/jotter/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// NoteCounter reports how many notes a user has, for the account summary.
type NoteCounter interface {
	Count(ctx context.Context, username string) (int64, error)
}

type Handler struct {
	service     *Service
	sessions    *SessionManager
	renderer    *web.Renderer
	noteCounter NoteCounter
	metrics     *metrics.Manager

	signupEnabled bool
	secureCookies bool
}

type NewHandlerParams struct {
	Service       *Service
	Sessions      *SessionManager
	Renderer      *web.Renderer
	NoteCounter   NoteCounter
	Metrics       *metrics.Manager
	SignupEnabled bool
	SecureCookies bool
}

func NewHandler(params NewHandlerParams) *Handler {
	return &Handler{
		service:       params.Service,
		sessions:      params.Sessions,
		renderer:      params.Renderer,
		noteCounter:   params.NoteCounter,
		metrics:       params.Metrics,
		signupEnabled: params.SignupEnabled,
		secureCookies: params.SecureCookies,
	}
}

// SetupRoutes registers the auth routes. The rate limiting middleware guards
// the credential-carrying POSTs only.
func (handler *Handler) SetupRoutes(r *mux.Router, rateLimit mux.MiddlewareFunc) {
	r.HandleFunc("/login", handler.handleLoginGet).Methods("GET").Name("login-page")
	r.Handle("/login", rateLimit(http.HandlerFunc(handler.handleLoginPost))).Methods("POST").Name("login")
	if handler.signupEnabled {
		r.HandleFunc("/signup", handler.handleSignupGet).Methods("GET").Name("signup-page")
		r.Handle("/signup", rateLimit(http.HandlerFunc(handler.handleSignupPost))).Methods("POST").Name("signup")
	} else {
		r.HandleFunc("/signup", handler.handleSignupDisabled).Methods("GET", "POST").Name("signup-disabled")
	}
	r.HandleFunc("/logout", handler.handleLogout).Methods("POST").Name("logout")
	r.HandleFunc("/account", handler.handleAccount).Methods("GET").Name("account")
	r.HandleFunc("/delete/account", handler.handleDeleteAccountGet).Methods("GET").Name("delete-account-page")
	r.HandleFunc("/delete/account", handler.handleDeleteAccountPost).Methods("POST").Name("delete-account")
	r.HandleFunc("/delete/notes", handler.handleDeleteNotesGet).Methods("GET").Name("delete-notes-page")
	r.HandleFunc("/delete/notes", handler.handleDeleteNotesPost).Methods("POST").Name("delete-notes")
}

func (handler *Handler) writePage(w http.ResponseWriter, page string, err error, statusCode int) {
	if err != nil {
		handler.internalError(w, err)
		return
	}
	pkg.WriteHTMLResponse(w, page, statusCode)
}

// internalError logs the detail server-side and shows the generic failure
// page; internal error text never reaches the client.
func (handler *Handler) internalError(w http.ResponseWriter, err error) {
	log.Errorf("request failed: %s", err)
	pkg.WriteHTMLResponse(w, handler.renderer.ServerErrorPage(), http.StatusInternalServerError)
}

// authenticate completes a successful credential check: it sets the cookie
// pair for the session the service already issued and renders a redirect-home
// notice. The session record exists exactly once, created at issue time.
func (handler *Handler) authenticate(w http.ResponseWriter, session Session, message string) {
	SetSessionCookies(w, session, handler.secureCookies)
	page, err := handler.renderer.NoticePage(message, true)
	handler.writePage(w, page, err, http.StatusOK)
}

// requireSession verifies the cookie pair and, on failure, writes the
// appropriate page: the login page when no cookies are set, or a clear-cookies
// notice when the pair is stale or forged. Returns the username and whether
// the caller may proceed.
func (handler *Handler) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookieUser, cookieToken := SessionFromRequest(r)
	username, err := handler.sessions.Verify(r.Context(), cookieUser, cookieToken)
	switch {
	case err == nil:
		return username, true
	case errors.Is(err, ErrNoSession):
		page, rErr := handler.renderer.LoginPage(false)
		handler.writePage(w, page, rErr, http.StatusOK)
	case errors.Is(err, ErrInvalidSession):
		ClearSessionCookies(w)
		page, rErr := handler.renderer.NoticePage("Found invalid or outdated cookies.", true)
		handler.writePage(w, page, rErr, http.StatusUnauthorized)
	default:
		handler.internalError(w, err)
	}
	return "", false
}

// redirectHomeIfCookieSet covers the GET login/signup pages: someone with
// session cookies set still ended up here, send them to / to resolve the
// session state instead.
func (handler *Handler) redirectHomeIfCookieSet(w http.ResponseWriter, r *http.Request, page string, pageErr error) {
	cookieUser, cookieToken := SessionFromRequest(r)
	if cookieUser != "" || cookieToken != "" {
		notice, err := handler.renderer.NoticePage("Redirecting ...", true)
		handler.writePage(w, notice, err, http.StatusOK)
		return
	}
	handler.writePage(w, page, pageErr, http.StatusOK)
}

func (handler *Handler) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	page, err := handler.renderer.LoginPage(false)
	handler.redirectHomeIfCookieSet(w, r, page, err)
}

func (handler *Handler) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("login failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")

	session, err := handler.service.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			page, rErr := handler.renderer.LoginPage(true)
			handler.writePage(w, page, rErr, http.StatusUnauthorized)
			return
		}
		handler.internalError(w, err)
		return
	}

	handler.metrics.CounterLogins.Inc()
	log.Tracef("user [%s] logged in", username)
	handler.authenticate(w, session, "Logged in successfully.")
}

func (handler *Handler) handleSignupGet(w http.ResponseWriter, r *http.Request) {
	page, err := handler.renderer.SignupPage("")
	handler.redirectHomeIfCookieSet(w, r, page, err)
}

func (handler *Handler) handleSignupPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("signup failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")
	vpassword := r.Form.Get("vpassword")

	session, err := handler.service.Signup(r.Context(), username, password, vpassword)
	switch {
	case err == nil:
		handler.metrics.CounterSignups.Inc()
		handler.authenticate(w, session, "Account created, logged in.")
	case errors.Is(err, ErrUsernameTooShort),
		errors.Is(err, ErrUsernameInvalidChars),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordTooShort):
		page, rErr := handler.renderer.SignupPage(err.Error())
		handler.writePage(w, page, rErr, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrUsernameTaken):
		page, rErr := handler.renderer.SignupPage("Sorry, that username is taken")
		handler.writePage(w, page, rErr, http.StatusConflict)
	default:
		handler.internalError(w, err)
	}
}

func (handler *Handler) handleSignupDisabled(w http.ResponseWriter, _ *http.Request) {
	page, err := handler.renderer.NoticePage("Signups are currently disabled on this instance", false)
	handler.writePage(w, page, err, http.StatusBadRequest)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	handler.logout(w, r, "Logged out successfully.")
}

// logout revokes the session named by the token cookie and clears whatever
// session cookies the client carries. A single stray cookie is just cleared;
// a cookieless POST here is not acceptable.
func (handler *Handler) logout(w http.ResponseWriter, r *http.Request, message string) {
	cookieUser, cookieToken := SessionFromRequest(r)
	switch {
	case cookieUser != "" && cookieToken != "":
		revoked, err := handler.sessions.Revoke(r.Context(), cookieToken)
		if err != nil {
			handler.internalError(w, err)
			return
		}
		if !revoked {
			log.Tracef("logout: no session record for presented token")
		}
		ClearSessionCookies(w)
		page, err := handler.renderer.NoticePage(message, true)
		handler.writePage(w, page, err, http.StatusOK)
	case cookieUser != "" || cookieToken != "":
		ClearSessionCookies(w)
		page, err := handler.renderer.NoticePage("Invalid cookies detected and removed.", true)
		handler.writePage(w, page, err, http.StatusOK)
	default:
		page, err := handler.renderer.NoticePage("Unexpected request to /logout", true)
		handler.writePage(w, page, err, http.StatusNotAcceptable)
	}
}

func (handler *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := handler.requireSession(w, r)
	if !ok {
		return
	}

	count, err := handler.noteCounter.Count(r.Context(), username)
	if err != nil {
		handler.internalError(w, err)
		return
	}

	page, err := handler.renderer.AccountPage(username, count)
	handler.writePage(w, page, err, http.StatusOK)
}

func (handler *Handler) handleDeleteAccountGet(w http.ResponseWriter, r *http.Request) {
	username, ok := handler.requireSession(w, r)
	if !ok {
		return
	}
	page, err := handler.renderer.DeletePage(
		"your account", "account", username, "your account and all your notes",
	)
	handler.writePage(w, page, err, http.StatusOK)
}

func (handler *Handler) handleDeleteNotesGet(w http.ResponseWriter, r *http.Request) {
	username, ok := handler.requireSession(w, r)
	if !ok {
		return
	}
	page, err := handler.renderer.DeletePage(
		"all your notes", "notes", username, "all your existing notes",
	)
	handler.writePage(w, page, err, http.StatusOK)
}

// verifyPrivileged checks the session and the re-entered password from the
// deletion form. On failure it writes the response itself.
func (handler *Handler) verifyPrivileged(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("privileged action, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return "", false
	}

	cookieUser, cookieToken := SessionFromRequest(r)
	username, err := handler.service.VerifyPrivileged(
		r.Context(), cookieUser, cookieToken, r.Form.Get("password"),
	)
	switch {
	case err == nil:
		return username, true
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrInvalidSession):
		ClearSessionCookies(w)
		page, rErr := handler.renderer.NoticePage("Found invalid or outdated cookies.", true)
		handler.writePage(w, page, rErr, http.StatusUnauthorized)
	case errors.Is(err, ErrPrivilegedVerification):
		page, rErr := handler.renderer.NoticePage(ErrPrivilegedVerification.Error(), true)
		handler.writePage(w, page, rErr, http.StatusUnauthorized)
	default:
		handler.internalError(w, err)
	}
	return "", false
}

func (handler *Handler) handleDeleteAccountPost(w http.ResponseWriter, r *http.Request) {
	username, ok := handler.verifyPrivileged(w, r)
	if !ok {
		return
	}

	if err := handler.service.DeleteAccount(r.Context(), username); err != nil {
		handler.internalError(w, err)
		return
	}

	handler.metrics.CounterAccountsDeleted.Inc()
	// deletion removed the credential record; the current session record and
	// cookies are still live, end them through the logout flow
	handler.logout(w, r, "Finished deleting account")
}

func (handler *Handler) handleDeleteNotesPost(w http.ResponseWriter, r *http.Request) {
	username, ok := handler.verifyPrivileged(w, r)
	if !ok {
		return
	}

	if err := handler.service.DeleteNotes(r.Context(), username); err != nil {
		handler.internalError(w, err)
		return
	}

	page, err := handler.renderer.NoticePage("Deleted all notes", true)
	handler.writePage(w, page, err, http.StatusOK)
}
