package filmlog

import (
	"encoding/json"
	"net/http"
	"strings"
)

type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Repassword string `json:"repassword"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// POST /api/register
//
// registerHandler creates a new user account.
func (f *Filmlog) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	switch {
	case req.Username == "":
		apierror(w, "username is required", http.StatusBadRequest)
		return
	case req.Password == "" || req.Repassword == "":
		apierror(w, "password is required", http.StatusBadRequest)
		return
	case req.Password != req.Repassword:
		apierror(w, "passwords do not match", http.StatusBadRequest)
		return
	}

	user, err := f.repo.InsertUser(r.Context(), req.Username, req.Password)
	if err != nil {
		replyError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	serveJSON(userResponse{
		ID:       user.ID,
		Username: user.Username,
	}, w)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/login
//
// loginHandler validates credentials and binds the user to the session.
// Unknown username and wrong password produce the same response.
func (f *Filmlog) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		apierror(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := f.repo.ValidateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		replyError(w, err)
		return
	}
	if err := f.sessions.Login(w, r, user); err != nil {
		replyError(w, err)
		return
	}
	serveJSON(userResponse{
		ID:       user.ID,
		Username: user.Username,
	}, w)
}

// POST /api/logout
//
// logoutHandler drops the whole session.
func (f *Filmlog) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := f.sessions.Logout(w, r); err != nil {
		replyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/user
//
// userHandler returns the logged in user. The session's user id is
// re-checked against the store, a stale session for a deleted user reads
// as not found rather than trusted.
func (f *Filmlog) userHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := f.sessions.RequireAuthenticated(r)
	if err != nil {
		replyError(w, err)
		return
	}
	user, err := f.repo.GetUserByID(r.Context(), userID)
	if err != nil {
		replyError(w, err)
		return
	}
	serveJSON(userResponse{
		ID:       user.ID,
		Username: user.Username,
	}, w)
}
