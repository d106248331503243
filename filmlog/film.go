package filmlog

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/filmlog/filmlog-server/database/model"
	"github.com/filmlog/filmlog-server/search"
)

type filmResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Title       string          `json:"title"`
	Tagline     string          `json:"tagline,omitempty"`
	Director    string          `json:"director,omitempty"`
	Poster      string          `json:"poster,omitempty"`
	ReleaseYear int             `json:"releaseYear,omitempty"`
	Genre       string          `json:"genre,omitempty"`
	Watched     bool            `json:"watched"`
	Rating      *int            `json:"rating,omitempty"`
	Review      string          `json:"review,omitempty"`
	Actors      []actorResponse `json:"actors,omitempty"`
	ActorIDs    []string        `json:"actorIds,omitempty"`
}

func makeFilmResponse(film *model.Film) filmResponse {
	response := filmResponse{
		ID:          film.ID,
		UserID:      film.UserID,
		Title:       film.Title,
		Tagline:     film.Tagline,
		Director:    film.Director,
		ReleaseYear: film.ReleaseYear,
		Genre:       film.Genre,
		Watched:     film.Watched,
		Rating:      film.Rating,
		Review:      film.Review,
	}
	if film.Poster != "" {
		response.Poster = "/posters/" + film.Poster
	}
	return response
}

func makeFilmDetailsResponse(details *model.FilmDetails) filmResponse {
	response := makeFilmResponse(&details.Film)
	for _, a := range details.Actors {
		response.Actors = append(response.Actors, actorResponse{ID: a.ID, Name: a.Name})
	}
	response.ActorIDs = make([]string, 0, len(details.ActorIDs))
	for id := range details.ActorIDs {
		response.ActorIDs = append(response.ActorIDs, id)
	}
	return response
}

type filmListResponse struct {
	Films            []filmResponse `json:"films"`
	TotalRecordCount int            `json:"totalRecordCount"`
}

// GET /api/films?sort=year_desc&limit=10
//
// filmsHandler lists the session user's films. sort is restricted to the
// enumerated orderings.
func (f *Filmlog) filmsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := f.sessions.RequireAuthenticated(r)
	if err != nil {
		replyError(w, err)
		return
	}

	queryparams := r.URL.Query()
	order, err := model.ParseFilmOrder(queryparams.Get("sort"))
	if err != nil {
		apierror(w, err.Error(), http.StatusBadRequest)
		return
	}
	var limit int
	if l := queryparams.Get("limit"); l != "" {
		if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
			apierror(w, "limit must be a non-negative number", http.StatusBadRequest)
			return
		}
	}

	films, err := f.repo.GetFilms(r.Context(), model.FilmFilter{
		OwnerID: userID,
		Limit:   limit,
		Order:   order,
	})
	if err != nil {
		replyError(w, err)
		return
	}

	response := filmListResponse{
		Films:            make([]filmResponse, 0, len(films)),
		TotalRecordCount: len(films),
	}
	for i := range films {
		response.Films = append(response.Films, makeFilmResponse(&films[i]))
	}
	serveJSON(response, w)
}

// GET /api/films/{film}
//
// filmHandler returns one film with its associated actors and the actor id
// set, for pre-selecting the edit form's multi-select.
func (f *Filmlog) filmHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := f.sessions.RequireAuthenticated(r); err != nil {
		replyError(w, err)
		return
	}

	vars := mux.Vars(r)
	details, err := f.repo.GetFilmDetails(r.Context(), vars["film"])
	if err != nil {
		replyError(w, err)
		return
	}
	serveJSON(makeFilmDetailsResponse(details), w)
}

// POST /api/films
//
// filmCreateHandler creates a film owned by the session user from a
// multipart form, optionally with a poster image.
func (f *Filmlog) filmCreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := f.sessions.RequireAuthenticated(r)
	if err != nil {
		replyError(w, err)
		return
	}

	film := &model.Film{
		UserID: userID,
	}
	actorIDs, posterUpload, err := parseFilmForm(r, film)
	if err != nil {
		apierror(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := f.validateActorIDs(r.Context(), actorIDs); err != nil {
		replyError(w, err)
		return
	}
	if posterUpload != nil {
		// Poster is written to static storage first, the repository only
		// ever sees the resulting filename.
		if film.Poster, err = f.savePoster(posterUpload); err != nil {
			apierror(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	filmID, err := f.repo.InsertFilm(r.Context(), film)
	if err != nil {
		replyError(w, err)
		return
	}
	if err := f.repo.SetFilmActors(r.Context(), filmID, actorIDs); err != nil {
		replyError(w, err)
		return
	}
	f.indexFilm(r.Context(), film)

	details, err := f.repo.GetFilmDetails(r.Context(), filmID)
	if err != nil {
		replyError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	serveJSON(makeFilmDetailsResponse(details), w)
}

// PUT /api/films/{film}
//
// filmUpdateHandler replaces the full mutable attribute set of a film,
// actor associations included. Only the owner may update.
func (f *Filmlog) filmUpdateHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	film, err := f.repo.GetFilm(r.Context(), vars["film"])
	if err != nil {
		replyError(w, err)
		return
	}
	if err := f.sessions.RequireOwnership(r, film); err != nil {
		replyError(w, err)
		return
	}

	previousPoster := film.Poster
	actorIDs, posterUpload, err := parseFilmForm(r, film)
	if err != nil {
		apierror(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := f.validateActorIDs(r.Context(), actorIDs); err != nil {
		replyError(w, err)
		return
	}
	if posterUpload != nil {
		if film.Poster, err = f.savePoster(posterUpload); err != nil {
			apierror(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		// No new upload, keep the stored poster instead of nulling it.
		film.Poster = previousPoster
	}

	if err := f.repo.UpdateFilm(r.Context(), film); err != nil {
		replyError(w, err)
		return
	}
	// Replace, never patch: the submitted set is the association.
	if err := f.repo.SetFilmActors(r.Context(), film.ID, actorIDs); err != nil {
		replyError(w, err)
		return
	}
	f.indexFilm(r.Context(), film)

	details, err := f.repo.GetFilmDetails(r.Context(), film.ID)
	if err != nil {
		replyError(w, err)
		return
	}
	serveJSON(makeFilmDetailsResponse(details), w)
}

// DELETE /api/films/{film}
//
// filmDeleteHandler removes a film and its associations. Only the owner
// may delete.
func (f *Filmlog) filmDeleteHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	film, err := f.repo.GetFilm(r.Context(), vars["film"])
	if err != nil {
		replyError(w, err)
		return
	}
	if err := f.sessions.RequireOwnership(r, film); err != nil {
		replyError(w, err)
		return
	}

	if err := f.repo.DeleteFilm(r.Context(), film.ID); err != nil {
		replyError(w, err)
		return
	}
	if f.searcher != nil {
		_ = f.searcher.Delete(r.Context(), film.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/films/search?q=dune
//
// filmSearchHandler runs a fuzzy search over the session user's films.
func (f *Filmlog) filmSearchHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := f.sessions.RequireAuthenticated(r)
	if err != nil {
		replyError(w, err)
		return
	}
	if f.searcher == nil {
		apierror(w, "search not available", http.StatusServiceUnavailable)
		return
	}

	const maxResults = 25
	foundIDs, err := f.searcher.Search(r.Context(), userID, r.URL.Query().Get("q"), maxResults)
	if err != nil {
		replyError(w, err)
		return
	}

	response := filmListResponse{
		Films: make([]filmResponse, 0, len(foundIDs)),
	}
	for _, id := range foundIDs {
		film, err := f.repo.GetFilm(r.Context(), id)
		if err != nil {
			// Index can trail the store briefly, skip what is gone.
			continue
		}
		response.Films = append(response.Films, makeFilmResponse(film))
	}
	response.TotalRecordCount = len(response.Films)
	serveJSON(response, w)
}

// maxFilmFormBytes caps a film form submission including poster upload.
const maxFilmFormBytes = 20 << 20

// parseFilmForm fills film from the submitted form and returns the
// submitted actor id set plus the poster upload, if any. The film id and
// owner are never taken from the form.
func parseFilmForm(r *http.Request, film *model.Film) ([]string, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxFilmFormBytes); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, errors.New("invalid form submission")
		}
		// plain form post without poster upload
		if err := r.ParseForm(); err != nil {
			return nil, nil, errors.New("invalid form submission")
		}
	}

	film.Title = r.FormValue("title")
	if film.Title == "" {
		return nil, nil, model.ErrTitleRequired
	}
	film.Tagline = r.FormValue("tagline")
	film.Director = r.FormValue("director")
	film.Genre = r.FormValue("genre")
	film.Review = r.FormValue("review")
	film.Watched = r.FormValue("watched") == "true" || r.FormValue("watched") == "on"

	if year := r.FormValue("release_year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return nil, nil, errors.New("release_year must be a number")
		}
		film.ReleaseYear = y
	} else {
		film.ReleaseYear = 0
	}

	film.Rating = nil
	if rating := r.FormValue("rating"); rating != "" {
		n, err := strconv.Atoi(rating)
		if err != nil || n < 1 || n > 10 {
			return nil, nil, errors.New("rating must be a number from 1 to 10")
		}
		film.Rating = &n
	}

	actorIDs := r.Form["actors"]

	var posterUpload *multipart.FileHeader
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["poster"]; len(files) > 0 {
			posterUpload = files[0]
		}
	}
	return actorIDs, posterUpload, nil
}

// validateActorIDs checks submitted actor ids against the catalog before
// anything is written, the foreign key on film_actors is the backstop.
func (f *Filmlog) validateActorIDs(ctx context.Context, actorIDs []string) error {
	if len(actorIDs) == 0 {
		return nil
	}
	catalog, err := f.repo.GetActors(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(catalog))
	for _, a := range catalog {
		known[a.ID] = true
	}
	for _, id := range actorIDs {
		if !known[id] {
			return model.ErrUnknownActor
		}
	}
	return nil
}

// indexFilm refreshes the search document of a film. Index trouble is
// logged by the search layer, never fails the request.
func (f *Filmlog) indexFilm(ctx context.Context, film *model.Film) {
	if f.searcher == nil {
		return
	}
	actors, _, err := f.repo.GetFilmActors(ctx, film.ID)
	if err != nil {
		return
	}
	actorNames := make([]string, 0, len(actors))
	for _, a := range actors {
		actorNames = append(actorNames, a.Name)
	}
	_ = f.searcher.Index(ctx, search.Document{
		ID:       film.ID,
		OwnerID:  film.UserID,
		Title:    film.Title,
		Tagline:  film.Tagline,
		Director: film.Director,
		Genre:    film.Genre,
		Actors:   actorNames,
		Year:     film.ReleaseYear,
	})
}

// ReindexAll rebuilds the search index from the store, called once at
// startup.
func (f *Filmlog) ReindexAll(ctx context.Context) error {
	if f.searcher == nil {
		return nil
	}
	films, err := f.repo.GetFilms(ctx, model.FilmFilter{Order: model.OrderTitleAsc})
	if err != nil {
		return err
	}
	for i := range films {
		f.indexFilm(ctx, &films[i])
	}
	return nil
}
