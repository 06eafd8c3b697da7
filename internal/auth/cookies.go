package auth

import (
	"net/http"
	"time"
)

const (
	CookieUsername = "jotter_user"
	CookieToken    = "jotter_token"
)

func newCookie(name, value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(SessionTTL),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	}
}

// SetSessionCookies sets the username/token cookie pair for a fresh session.
func SetSessionCookies(w http.ResponseWriter, session Session, secure bool) {
	http.SetCookie(w, newCookie(CookieUsername, session.Username, secure))
	http.SetCookie(w, newCookie(CookieToken, session.Token, secure))
}

// ClearSessionCookies expires both session cookies on the client.
func ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, expiredCookie(CookieUsername))
	http.SetCookie(w, expiredCookie(CookieToken))
}

// SessionFromRequest reads the cookie pair off the request. Missing cookies
// come back as empty strings; Verify treats those as ErrNoSession.
func SessionFromRequest(r *http.Request) (username, token string) {
	if c, err := r.Cookie(CookieUsername); err == nil {
		username = c.Value
	}
	if c, err := r.Cookie(CookieToken); err == nil {
		token = c.Value
	}
	return username, token
}
