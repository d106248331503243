// Package filmlog is the HTTP surface of the film log: registration,
// sessions, film CRUD, the actor catalog, poster images and search.
package filmlog

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/filmlog/filmlog-server/database"
	"github.com/filmlog/filmlog-server/database/model"
	"github.com/filmlog/filmlog-server/imageresize"
	"github.com/filmlog/filmlog-server/search"
	"github.com/filmlog/filmlog-server/session"
)

type Options struct {
	Repo         *database.Repository
	Sessions     *session.Gate
	Searcher     *search.Search
	Imageresizer *imageresize.Resizer
	// Posterdir stores uploaded poster images.
	Posterdir string
	// SiteName is included in the info response.
	SiteName string
}

type Filmlog struct {
	repo         *database.Repository
	sessions     *session.Gate
	searcher     *search.Search
	imageresizer *imageresize.Resizer
	posterdir    string
	siteName     string
}

func New(o *Options) *Filmlog {
	return &Filmlog{
		repo:         o.Repo,
		sessions:     o.Sessions,
		searcher:     o.Searcher,
		imageresizer: o.Imageresizer,
		posterdir:    o.Posterdir,
		siteName:     o.SiteName,
	}
}

func (f *Filmlog) RegisterHandlers(r *mux.Router) {
	gzip := handlers.CompressHandler

	s := r.PathPrefix("/api/").Subrouter()

	// Endpoints without auth
	s.HandleFunc("/info", f.infoHandler).Methods("GET")
	s.HandleFunc("/register", f.registerHandler).Methods("POST")
	s.HandleFunc("/login", f.loginHandler).Methods("POST")
	s.HandleFunc("/logout", f.logoutHandler).Methods("POST")

	// Endpoints requiring a session
	s.HandleFunc("/user", f.userHandler).Methods("GET")
	s.Handle("/actors", gzip(http.HandlerFunc(f.actorsHandler))).Methods("GET")
	s.Handle("/films", gzip(http.HandlerFunc(f.filmsHandler))).Methods("GET")
	s.HandleFunc("/films", f.filmCreateHandler).Methods("POST")
	s.Handle("/films/search", gzip(http.HandlerFunc(f.filmSearchHandler))).Methods("GET")
	s.HandleFunc("/films/{film}", f.filmHandler).Methods("GET")
	s.HandleFunc("/films/{film}", f.filmUpdateHandler).Methods("PUT")
	s.HandleFunc("/films/{film}", f.filmDeleteHandler).Methods("DELETE")

	r.HandleFunc("/posters/{file}", f.posterHandler).Methods("GET", "HEAD")
}

// infoHandler returns the site name, the one immutable piece of branding
// the presentation layer needs.
func (f *Filmlog) infoHandler(w http.ResponseWriter, r *http.Request) {
	serveJSON(infoResponse{
		SiteName: f.siteName,
	}, w)
}

type infoResponse struct {
	SiteName string `json:"siteName"`
}

func serveJSON(obj any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(obj)
}

// HTTPError represents a structured HTTP error response.
type HTTPError struct {
	Status int    `json:"status"`
	Title  string `json:"title,omitempty"`
}

// apierror writes a structured error response.
func apierror(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPError{
		Status: status,
		Title:  msg,
	})
}

// replyError maps gate and repository errors onto status codes. Store
// failures become a logged, generic 500, partial writes are never visible
// as every mutation is a single transaction.
func replyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		apierror(w, "login required", http.StatusUnauthorized)
	case errors.Is(err, session.ErrForbidden):
		apierror(w, "not the owner of this film", http.StatusForbidden)
	case errors.Is(err, model.ErrInvalidCredentials):
		apierror(w, model.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
	case errors.Is(err, model.ErrDuplicateUsername):
		apierror(w, model.ErrDuplicateUsername.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrTitleRequired):
		apierror(w, model.ErrTitleRequired.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrUnknownActor):
		apierror(w, model.ErrUnknownActor.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		apierror(w, "not found", http.StatusNotFound)
	default:
		log.Printf("filmlog: %s", err)
		apierror(w, "internal error", http.StatusInternalServerError)
	}
}
