package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/filmlog/filmlog-server/database/model"
	"github.com/filmlog/filmlog-server/idhash"
)

const filmColumns = `id,
	user_id,
	title,
	tagline,
	director,
	poster,
	release_year,
	genre,
	watched,
	rating,
	review`

// orderClauses maps every permitted ordering to its ORDER BY clause.
// Anything outside this map never reaches the query text.
var orderClauses = map[model.FilmOrder]string{
	model.OrderTitleAsc:   ` ORDER BY title COLLATE NOCASE ASC`,
	model.OrderTitleDesc:  ` ORDER BY title COLLATE NOCASE DESC`,
	model.OrderYearAsc:    ` ORDER BY release_year ASC, title COLLATE NOCASE ASC`,
	model.OrderYearDesc:   ` ORDER BY release_year DESC, title COLLATE NOCASE ASC`,
	model.OrderRatingAsc:  ` ORDER BY rating ASC, title COLLATE NOCASE ASC`,
	model.OrderRatingDesc: ` ORDER BY rating DESC, title COLLATE NOCASE ASC`,
}

// GetFilms lists films, optionally restricted to one owner, ordered and
// limited per filter.
func (s *SqliteRepo) GetFilms(ctx context.Context, filter model.FilmFilter) ([]model.Film, error) {
	query := `SELECT ` + filmColumns + ` FROM films`
	args := []any{}
	if filter.OwnerID != "" {
		query += ` WHERE user_id=?`
		args = append(args, filter.OwnerID)
	}

	clause, ok := orderClauses[filter.Order]
	if !ok {
		clause = orderClauses[model.OrderTitleAsc]
	}
	query += clause

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	films := []model.Film{}
	if err := s.dbReadHandle.SelectContext(ctx, &films, query, args...); err != nil {
		return nil, err
	}
	return films, nil
}

// GetFilm retrieves a single film.
func (s *SqliteRepo) GetFilm(ctx context.Context, filmID string) (*model.Film, error) {
	const query = `SELECT ` + filmColumns + ` FROM films WHERE id=? LIMIT 1`

	var film model.Film
	if err := s.dbReadHandle.GetContext(ctx, &film, query, filmID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &film, nil
}

// GetFilmDetails retrieves a film together with its associated actors.
func (s *SqliteRepo) GetFilmDetails(ctx context.Context, filmID string) (*model.FilmDetails, error) {
	film, err := s.GetFilm(ctx, filmID)
	if err != nil {
		return nil, err
	}
	actors, actorIDs, err := s.GetFilmActors(ctx, filmID)
	if err != nil {
		return nil, err
	}
	return &model.FilmDetails{
		Film:     *film,
		Actors:   actors,
		ActorIDs: actorIDs,
	}, nil
}

// InsertFilm creates a new film owned by film.UserID and returns its
// system-assigned id.
func (s *SqliteRepo) InsertFilm(ctx context.Context, film *model.Film) (string, error) {
	if film.Title == "" {
		return "", model.ErrTitleRequired
	}
	film.ID = idhash.NewRandomID()

	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	const query = `INSERT INTO films (id, user_id, title, tagline, director, poster,
		release_year, genre, watched, rating, review)
		VALUES (:id, :user_id, :title, :tagline, :director, :poster,
		:release_year, :genre, :watched, :rating, :review)`
	if _, err := tx.NamedExecContext(ctx, query, film); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return film.ID, nil
}

// UpdateFilm replaces the full mutable attribute set of a film, poster
// included. Callers keeping an existing poster pass the previous value
// through. The owning user never changes.
func (s *SqliteRepo) UpdateFilm(ctx context.Context, film *model.Film) error {
	if film.Title == "" {
		return model.ErrTitleRequired
	}

	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `UPDATE films SET title = :title,
		tagline = :tagline,
		director = :director,
		poster = :poster,
		release_year = :release_year,
		genre = :genre,
		watched = :watched,
		rating = :rating,
		review = :review
		WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, query, film)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

// DeleteFilm removes a film and its actor associations in one transaction.
func (s *SqliteRepo) DeleteFilm(ctx context.Context, filmID string) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM film_actors WHERE film_id=?`, filmID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM films WHERE id=?`, filmID)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

// SetFilmActors replaces the full actor association set of a film. An empty
// set detaches all actors, associations are never patched incrementally.
func (s *SqliteRepo) SetFilmActors(ctx context.Context, filmID string, actorIDs []string) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM film_actors WHERE film_id=?`, filmID); err != nil {
		return err
	}
	for _, actorID := range actorIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO film_actors (film_id, actor_id) VALUES (?, ?)`,
			filmID, actorID); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
				return model.ErrUnknownActor
			}
			return err
		}
	}
	return tx.Commit()
}

// GetFilmActors returns the actors associated with a film, sorted by name,
// plus the association as an id set.
func (s *SqliteRepo) GetFilmActors(ctx context.Context, filmID string) ([]model.Actor, map[string]bool, error) {
	const query = `SELECT a.id, a.name FROM actors a
		JOIN film_actors fa ON fa.actor_id = a.id
		WHERE fa.film_id=? ORDER BY a.name ASC`

	actors := []model.Actor{}
	if err := s.dbReadHandle.SelectContext(ctx, &actors, query, filmID); err != nil {
		return nil, nil, err
	}
	actorIDs := make(map[string]bool, len(actors))
	for _, a := range actors {
		actorIDs[a.ID] = true
	}
	return actors, actorIDs, nil
}

// DeleteFilmActors removes all actor associations of a film.
func (s *SqliteRepo) DeleteFilmActors(ctx context.Context, filmID string) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM film_actors WHERE film_id=?`, filmID); err != nil {
		return err
	}
	return tx.Commit()
}
