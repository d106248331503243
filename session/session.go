// Package session binds the authenticated user to a browser session and
// gates mutations on ownership.
package session

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/filmlog/filmlog-server/database/model"
)

const (
	cookieName = "filmlog-session"

	keyUserID   = "user_id"
	keyUsername = "username"
)

var (
	ErrUnauthenticated = errors.New("not logged in")
	ErrForbidden       = errors.New("not the owner of this film")
)

// Session is the identity bound to a request, nothing else is ever stored.
type Session struct {
	UserID   string
	Username string
}

type Options struct {
	// Secret signs the session cookie.
	Secret []byte
	// Secure marks the cookie https-only.
	Secure bool
}

// Gate issues and checks session cookies.
type Gate struct {
	store *sessions.CookieStore
}

func New(o Options) *Gate {
	store := sessions.NewCookieStore(o.Secret)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Gate{
		store: store,
	}
}

// Login binds the user to the request's session.
func (g *Gate) Login(w http.ResponseWriter, r *http.Request, user *model.User) error {
	// CookieStore returns a usable new session even on a decode error,
	// a tampered cookie simply starts fresh.
	s, _ := g.store.Get(r, cookieName)
	s.Values[keyUserID] = user.ID
	s.Values[keyUsername] = user.Username
	return s.Save(r, w)
}

// Logout clears the entire session, not just the user id.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) error {
	s, _ := g.store.Get(r, cookieName)
	s.Values = make(map[any]any)
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// Current returns the session bound to the request, false when anonymous.
func (g *Gate) Current(r *http.Request) (Session, bool) {
	s, err := g.store.Get(r, cookieName)
	if err != nil {
		return Session{}, false
	}
	userID, ok := s.Values[keyUserID].(string)
	if !ok || userID == "" {
		return Session{}, false
	}
	username, _ := s.Values[keyUsername].(string)
	return Session{UserID: userID, Username: username}, true
}

// RequireAuthenticated returns the session's user id, or ErrUnauthenticated
// for anonymous requests.
func (g *Gate) RequireAuthenticated(r *http.Request) (string, error) {
	current, ok := g.Current(r)
	if !ok {
		return "", ErrUnauthenticated
	}
	return current.UserID, nil
}

// RequireOwnership checks that the request's session user owns the film.
// Evaluated before every film mutation.
func (g *Gate) RequireOwnership(r *http.Request, film *model.Film) error {
	userID, err := g.RequireAuthenticated(r)
	if err != nil {
		return err
	}
	if film.UserID != userID {
		return ErrForbidden
	}
	return nil
}
