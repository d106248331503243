package model

import (
	"errors"
	"time"
)

var (
	ErrNoConfiguration    = errors.New("database filename not set")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTitleRequired      = errors.New("film title is required")
	ErrUnknownActor       = errors.New("unknown actor")
)

// User represents a registered user.
type User struct {
	// ID is the unique identifier for the user.
	ID string `db:"id"`
	// Username is the unique login name of the user.
	Username string `db:"username"`
	// Password is the bcrypt hash of the user's password, never plaintext.
	Password string `db:"password"`
	// Created is the time the user registered.
	Created time.Time `db:"created"`
}

// Film represents one watched-film entry, always owned by a single user.
type Film struct {
	// ID is the unique identifier for the film.
	ID string `db:"id"`
	// UserID is the id of the owning user.
	UserID string `db:"user_id"`
	// Title of the film, the only required attribute.
	Title string `db:"title"`
	// Tagline of the film.
	Tagline string `db:"tagline"`
	// Director of the film.
	Director string `db:"director"`
	// Poster is the path of the uploaded poster image, empty if none.
	Poster string `db:"poster"`
	// ReleaseYear the film came out.
	ReleaseYear int `db:"release_year"`
	// Genre of the film.
	Genre string `db:"genre"`
	// Watched indicates the user has seen the film.
	Watched bool `db:"watched"`
	// Rating given by the owner, 1-10, nil when not rated.
	Rating *int `db:"rating"`
	// Review is the owner's free-text review.
	Review string `db:"review"`
}

// Actor represents an entry of the read-only actor catalog.
type Actor struct {
	// ID is the unique identifier for the actor.
	ID string `db:"id"`
	// Name is the actor's name.
	Name string `db:"name"`
}

// FilmDetails is a film together with its associated actors. ActorIDs
// holds the same association as Actors, as a set keyed by actor id.
type FilmDetails struct {
	Film
	Actors   []Actor
	ActorIDs map[string]bool
}

// FilmOrder enumerates the permitted film list orderings. Anything not in
// this set is rejected before it reaches the store, ORDER BY clauses are
// never built from caller-supplied text.
type FilmOrder string

const (
	OrderTitleAsc   FilmOrder = "title"
	OrderTitleDesc  FilmOrder = "title_desc"
	OrderYearAsc    FilmOrder = "year"
	OrderYearDesc   FilmOrder = "year_desc"
	OrderRatingAsc  FilmOrder = "rating"
	OrderRatingDesc FilmOrder = "rating_desc"
)

// ParseFilmOrder validates a caller-supplied ordering name. The empty
// string maps to ordering by title.
func ParseFilmOrder(s string) (FilmOrder, error) {
	switch FilmOrder(s) {
	case "":
		return OrderTitleAsc, nil
	case OrderTitleAsc, OrderTitleDesc, OrderYearAsc, OrderYearDesc,
		OrderRatingAsc, OrderRatingDesc:
		return FilmOrder(s), nil
	}
	return "", errors.New("unknown film ordering: " + s)
}

// FilmFilter restricts and orders a film listing.
type FilmFilter struct {
	// OwnerID limits results to films of this user, empty means all users.
	OwnerID string
	// Limit caps the number of results, 0 means no limit.
	Limit int
	// Order selects one of the enumerated orderings.
	Order FilmOrder
}
