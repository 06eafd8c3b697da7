package notes

import (
	"errors"
	"net/http"

	"github.com/2beens/jotter/internal/auth"
	"github.com/2beens/jotter/internal/telemetry/metrics"
	"github.com/2beens/jotter/internal/web"
	"github.com/2beens/jotter/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service  *Service
	sessions *auth.SessionManager
	renderer *web.Renderer
	metrics  *metrics.Manager
}

func NewHandler(
	service *Service,
	sessions *auth.SessionManager,
	renderer *web.Renderer,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		renderer: renderer,
		metrics:  metricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/", handler.handleRoot).Methods("GET").Name("root")
	r.HandleFunc("/create/note", handler.handleCreateNote).Methods("POST").Name("new-note")
	r.PathPrefix("/static/").Handler(web.StaticHandler()).Methods("GET")
}

func (handler *Handler) internalError(w http.ResponseWriter, err error) {
	log.Errorf("request failed: %s", err)
	pkg.WriteHTMLResponse(w, handler.renderer.ServerErrorPage(), http.StatusInternalServerError)
}

// handleRoot serves the notes app for a valid session and the login page for
// a cookieless visitor. A stale or forged cookie pair gets cleared along with
// a redirect-home notice.
func (handler *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	cookieUser, cookieToken := auth.SessionFromRequest(r)
	username, err := handler.sessions.Verify(r.Context(), cookieUser, cookieToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoSession):
			page, rErr := handler.renderer.LoginPage(false)
			handler.writePage(w, page, rErr, http.StatusOK)
		case errors.Is(err, auth.ErrInvalidSession):
			auth.ClearSessionCookies(w)
			page, rErr := handler.renderer.NoticePage("Found invalid or outdated cookies.", true)
			handler.writePage(w, page, rErr, http.StatusUnauthorized)
		default:
			handler.internalError(w, err)
		}
		return
	}

	noteViews, err := handler.service.List(r.Context(), username)
	if err != nil {
		handler.internalError(w, err)
		return
	}

	page, err := handler.renderer.AppPage(username, noteViews)
	handler.writePage(w, page, err, http.StatusOK)
}

// handleCreateNote appends a note for the session's user and returns the
// rendered note fragment, which the app page prepends client-side.
func (handler *Handler) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	cookieUser, cookieToken := auth.SessionFromRequest(r)
	username, err := handler.sessions.Verify(r.Context(), cookieUser, cookieToken)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) || errors.Is(err, auth.ErrInvalidSession) {
			auth.ClearSessionCookies(w)
			http.Error(w, "invalid session", http.StatusUnauthorized)
			return
		}
		handler.internalError(w, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("create note failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	note, err := handler.service.Append(r.Context(), username, r.Form.Get("note"))
	if err != nil {
		handler.internalError(w, err)
		return
	}

	handler.metrics.CounterNotes.Inc()
	log.Tracef("new note added for user [%s]", username)

	fragment, err := handler.renderer.NoteFragment(handler.service.Render(note))
	handler.writePage(w, fragment, err, http.StatusCreated)
}

func (handler *Handler) writePage(w http.ResponseWriter, page string, err error, statusCode int) {
	if err != nil {
		handler.internalError(w, err)
		return
	}
	pkg.WriteHTMLResponse(w, page, statusCode)
}
