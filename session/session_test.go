package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmlog/filmlog-server/database/model"
)

func newTestGate() *Gate {
	return New(Options{Secret: []byte("test-secret")})
}

// loggedInRequest returns a request carrying a fresh session cookie for user.
func loggedInRequest(t *testing.T, g *Gate, user *model.User) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, g.Login(w, httptest.NewRequest("POST", "/api/login", nil), user))

	r := httptest.NewRequest("GET", "/api/user", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestLoginBindsUser(t *testing.T) {
	t.Parallel()
	g := newTestGate()
	user := &model.User{ID: "u1", Username: "alice"}

	r := loggedInRequest(t, g, user)
	current, ok := g.Current(r)
	require.True(t, ok)
	assert.Equal(t, Session{UserID: "u1", Username: "alice"}, current)

	userID, err := g.RequireAuthenticated(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestAnonymousRequest(t *testing.T) {
	t.Parallel()
	g := newTestGate()

	r := httptest.NewRequest("GET", "/api/user", nil)
	_, ok := g.Current(r)
	assert.False(t, ok)

	_, err := g.RequireAuthenticated(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTamperedCookieIsAnonymous(t *testing.T) {
	t.Parallel()
	g := newTestGate()

	r := httptest.NewRequest("GET", "/api/user", nil)
	r.AddCookie(&http.Cookie{Name: "filmlog-session", Value: "garbage"})
	_, ok := g.Current(r)
	assert.False(t, ok)
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()
	g := newTestGate()
	user := &model.User{ID: "u1", Username: "alice"}

	r := loggedInRequest(t, g, user)
	w := httptest.NewRecorder()
	require.NoError(t, g.Logout(w, r))

	// replaying the expired cookie yields an anonymous session
	next := httptest.NewRequest("GET", "/api/user", nil)
	for _, c := range w.Result().Cookies() {
		next.AddCookie(c)
	}
	_, ok := g.Current(next)
	assert.False(t, ok)

	_, err := g.RequireAuthenticated(next)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireOwnership(t *testing.T) {
	t.Parallel()
	g := newTestGate()
	alice := &model.User{ID: "u1", Username: "alice"}
	film := &model.Film{ID: "f1", UserID: "u1", Title: "Dune"}
	foreign := &model.Film{ID: "f2", UserID: "u2", Title: "Heat"}

	r := loggedInRequest(t, g, alice)
	assert.NoError(t, g.RequireOwnership(r, film))
	assert.ErrorIs(t, g.RequireOwnership(r, foreign), ErrForbidden)

	// anonymous requests fail authentication before the ownership check
	anon := httptest.NewRequest("GET", "/api/films/f1", nil)
	assert.ErrorIs(t, g.RequireOwnership(anon, film), ErrUnauthenticated)
}

func TestSessionsAreSignedPerSecret(t *testing.T) {
	t.Parallel()
	g := newTestGate()
	other := New(Options{Secret: []byte("different-secret")})
	user := &model.User{ID: "u1", Username: "alice"}

	r := loggedInRequest(t, g, user)
	_, ok := other.Current(r)
	assert.False(t, ok)
}
