// Package guard is the request-time gate between public and protected
// routes. It checks cookie presence only; token validity is the backend's
// problem, reported back as a 401.
package guard

import (
	"net/http"
	"net/url"
	"strings"
)

type Action int

const (
	ActionNext Action = iota
	ActionRedirect
)

type Decision struct {
	Action   Action
	Location string
}

func next() Decision {
	return Decision{Action: ActionNext}
}

func redirect(location string) Decision {
	return Decision{Action: ActionRedirect, Location: location}
}

// Resolve decides what to do with a request for path given whether the
// session cookie is present. Rules are evaluated in order: static assets
// and auth API pass through; authenticated sessions are bounced off the
// auth pages; everything else but the root marketing page requires a
// cookie, with the original path preserved for post-login return.
func Resolve(path string, hasCookie bool) Decision {
	if isStatic(path) || strings.HasPrefix(path, "/api/auth") {
		return next()
	}

	if path == "/login" || path == "/signup" {
		if hasCookie {
			return redirect("/home")
		}
		return next()
	}

	if !hasCookie && path != "/" {
		return redirect("/login?from=" + url.QueryEscape(path))
	}

	return next()
}

func isStatic(path string) bool {
	return strings.HasPrefix(path, "/_next/") ||
		strings.HasPrefix(path, "/static/") ||
		path == "/favicon.ico"
}

// Middleware applies Resolve to incoming requests using the auth-token
// request cookie, for deployments that front the app with an edge server.
func Middleware(cookieName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasCookie := false
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			hasCookie = true
		}
		decision := Resolve(r.URL.Path, hasCookie)
		if decision.Action == ActionRedirect {
			http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
