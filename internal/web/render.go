package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// NoteView is a note ready for HTML output: rendered, sanitized body plus its
// display timestamp.
type NoteView struct {
	Date string
	Body template.HTML
}

// Renderer owns the parsed page templates. Pages are rendered to strings so
// handlers stay in charge of status codes and headers.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) LoginPage(loginFailed bool) (string, error) {
	return r.render("login.gohtml", struct{ LoginFailed bool }{loginFailed})
}

func (r *Renderer) SignupPage(errorMessage string) (string, error) {
	return r.render("signup.gohtml", struct{ Error string }{errorMessage})
}

// NoticePage renders a plain message page; with redirectHome the page sends
// the browser back to / after a couple of seconds.
func (r *Renderer) NoticePage(message string, redirectHome bool) (string, error) {
	return r.render("notice.gohtml", struct {
		Message      string
		RedirectHome bool
	}{message, redirectHome})
}

func (r *Renderer) AppPage(username string, notes []NoteView) (string, error) {
	return r.render("app.gohtml", struct {
		Username string
		Notes    []NoteView
	}{username, notes})
}

func (r *Renderer) NoteFragment(note NoteView) (string, error) {
	return r.render("note.gohtml", note)
}

func (r *Renderer) AccountPage(username string, noteCount int64) (string, error) {
	return r.render("account.gohtml", struct {
		Username  string
		NoteCount int64
	}{username, noteCount})
}

// DeletePage renders the confirmation UI for a privileged deletion. The path
// is the suffix under /delete/ the form posts back to.
func (r *Renderer) DeletePage(what, path, username, lose string) (string, error) {
	return r.render("delete.gohtml", struct {
		What     string
		Path     string
		Username string
		Lose     string
	}{what, path, username, lose})
}

// ServerErrorPage is the generic 500 page; store/internal error detail is
// logged server-side, never shown here.
func (r *Renderer) ServerErrorPage() string {
	page, err := r.NoticePage("Something went wrong on our end. Please try again later.", false)
	if err != nil {
		// templates are embedded and parsed at construction, this cannot
		// realistically fail at runtime
		return "Internal server error"
	}
	return page
}

// StaticHandler serves the embedded assets under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
