package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the browser session cookie consulted when a request
// carries no bearer token. Global sign-out expires this exact cookie.
const SessionCookieName = "agencydesk_session"

// SessionCookie returns the token carried by the session cookie, if any.
func SessionCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ExpireSessionCookie overwrites the session cookie with an empty,
// already-expired value so the browser drops it everywhere it was sent.
func ExpireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
