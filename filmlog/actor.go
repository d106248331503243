package filmlog

import "net/http"

type actorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GET /api/actors
//
// actorsHandler returns the actor catalog sorted by name, for the film
// form's multi-select.
func (f *Filmlog) actorsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := f.sessions.RequireAuthenticated(r); err != nil {
		replyError(w, err)
		return
	}

	actors, err := f.repo.GetActors(r.Context())
	if err != nil {
		replyError(w, err)
		return
	}
	response := make([]actorResponse, 0, len(actors))
	for _, a := range actors {
		response = append(response, actorResponse{ID: a.ID, Name: a.Name})
	}
	serveJSON(response, w)
}
