package database

import (
	"context"

	"github.com/filmlog/filmlog-server/database/model"
	"github.com/filmlog/filmlog-server/database/sqlite"
)

type (
	Options struct {
		Filename string
	}

	// Repository bundles all persistence operations the application uses.
	Repository struct {
		UserRepo
		FilmRepo
		ActorRepo
	}

	// UserRepo defines the interface for user database operations
	UserRepo interface {
		// GetUser retrieves a user by username.
		GetUser(ctx context.Context, username string) (*model.User, error)
		// GetUserByID retrieves a user by id, ErrNotFound when absent.
		GetUserByID(ctx context.Context, userID string) (*model.User, error)
		// InsertUser creates a new user, ErrDuplicateUsername when taken.
		InsertUser(ctx context.Context, username, password string) (*model.User, error)
		// ValidateUser checks username and password, ErrInvalidCredentials
		// on unknown user and wrong password alike.
		ValidateUser(ctx context.Context, username, password string) (*model.User, error)
	}

	// FilmRepo defines the interface for film and association operations
	FilmRepo interface {
		GetFilms(ctx context.Context, filter model.FilmFilter) ([]model.Film, error)
		GetFilm(ctx context.Context, filmID string) (*model.Film, error)
		GetFilmDetails(ctx context.Context, filmID string) (*model.FilmDetails, error)
		InsertFilm(ctx context.Context, film *model.Film) (string, error)
		UpdateFilm(ctx context.Context, film *model.Film) error
		DeleteFilm(ctx context.Context, filmID string) error
		SetFilmActors(ctx context.Context, filmID string, actorIDs []string) error
		GetFilmActors(ctx context.Context, filmID string) ([]model.Actor, map[string]bool, error)
		DeleteFilmActors(ctx context.Context, filmID string) error
	}

	// ActorRepo defines the interface for the read-only actor catalog
	ActorRepo interface {
		GetActors(ctx context.Context) ([]model.Actor, error)
	}
)

func New(o *Options) (*Repository, error) {
	if o == nil || o.Filename == "" {
		return nil, model.ErrNoConfiguration
	}
	repo, err := sqlite.New(&sqlite.ConfigFile{
		Filename: o.Filename,
	})
	if err != nil {
		return nil, err
	}
	return &Repository{
		UserRepo:  repo,
		FilmRepo:  repo,
		ActorRepo: repo,
	}, nil
}
