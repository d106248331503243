package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmlog/filmlog-server/database/model"
)

func newTestRepo(t *testing.T) *SqliteRepo {
	t.Helper()
	repo, err := New(&ConfigFile{
		Filename: filepath.Join(t.TempDir(), "filmlog-test.db"),
	})
	require.NoError(t, err)
	return repo
}

func TestNewRequiresFilename(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&ConfigFile{})
	assert.Error(t, err)
}

func TestInsertAndGetUser(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.InsertUser(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	// stored as a hash, never plaintext
	assert.NotEqual(t, "pw1", user.Password)

	byName, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.GetUserByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInsertUserDuplicateUsername(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.InsertUser(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = repo.InsertUser(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, model.ErrDuplicateUsername)

	// the existing user's stored hash is untouched
	unchanged, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Password, unchanged.Password)
}

func TestValidateUser(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertUser(ctx, "alice", "pw1")
	require.NoError(t, err)

	user, err := repo.ValidateUser(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// wrong password and unknown username are indistinguishable
	_, badPassword := repo.ValidateUser(ctx, "alice", "wrong")
	_, badUsername := repo.ValidateUser(ctx, "nobody", "pw1")
	assert.ErrorIs(t, badPassword, model.ErrInvalidCredentials)
	assert.ErrorIs(t, badUsername, model.ErrInvalidCredentials)
	assert.Equal(t, badPassword, badUsername)
}

func testUser(t *testing.T, repo *SqliteRepo, username string) *model.User {
	t.Helper()
	user, err := repo.InsertUser(context.Background(), username, "pw")
	require.NoError(t, err)
	return user
}

func TestFilmRoundTrip(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := testUser(t, repo, "alice")

	rating := 9
	film := &model.Film{
		UserID:      owner.ID,
		Title:       "Dune",
		Tagline:     "Fear is the mind-killer",
		Director:    "Denis Villeneuve",
		Poster:      "dune.jpg",
		ReleaseYear: 2021,
		Genre:       "Science Fiction",
		Watched:     true,
		Rating:      &rating,
		Review:      "Sand. Lots of sand.",
	}
	filmID, err := repo.InsertFilm(ctx, film)
	require.NoError(t, err)
	require.NotEmpty(t, filmID)

	got, err := repo.GetFilm(ctx, filmID)
	require.NoError(t, err)
	assert.Equal(t, film, got)
}

func TestInsertFilmRequiresTitle(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	owner := testUser(t, repo, "alice")

	_, err := repo.InsertFilm(context.Background(), &model.Film{UserID: owner.ID})
	assert.ErrorIs(t, err, model.ErrTitleRequired)
}

func TestGetFilmsFilter(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := testUser(t, repo, "alice")
	bob := testUser(t, repo, "bob")

	for _, f := range []model.Film{
		{UserID: alice.ID, Title: "Arrival", ReleaseYear: 2016},
		{UserID: alice.ID, Title: "Blade Runner", ReleaseYear: 1982},
		{UserID: bob.ID, Title: "Casablanca", ReleaseYear: 1942},
	} {
		_, err := repo.InsertFilm(ctx, &f)
		require.NoError(t, err)
	}

	// owner scoping
	films, err := repo.GetFilms(ctx, model.FilmFilter{OwnerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, films, 2)
	assert.Equal(t, "Arrival", films[0].Title)
	assert.Equal(t, "Blade Runner", films[1].Title)

	// ordering
	films, err = repo.GetFilms(ctx, model.FilmFilter{OwnerID: alice.ID, Order: model.OrderYearDesc})
	require.NoError(t, err)
	assert.Equal(t, "Arrival", films[0].Title)

	// limit
	films, err = repo.GetFilms(ctx, model.FilmFilter{Limit: 1, Order: model.OrderTitleAsc})
	require.NoError(t, err)
	require.Len(t, films, 1)
	assert.Equal(t, "Arrival", films[0].Title)

	// no filter returns everything
	films, err = repo.GetFilms(ctx, model.FilmFilter{})
	require.NoError(t, err)
	assert.Len(t, films, 3)
}

func TestUpdateFilmFullReplace(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := testUser(t, repo, "alice")

	rating := 7
	film := &model.Film{
		UserID:  owner.ID,
		Title:   "Alien",
		Genre:   "Horror",
		Poster:  "alien.jpg",
		Rating:  &rating,
		Watched: true,
	}
	_, err := repo.InsertFilm(ctx, film)
	require.NoError(t, err)

	// full replace: cleared attributes stay cleared, poster passed through
	film.Genre = ""
	film.Rating = nil
	film.Title = "Aliens"
	require.NoError(t, repo.UpdateFilm(ctx, film))

	got, err := repo.GetFilm(ctx, film.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aliens", got.Title)
	assert.Empty(t, got.Genre)
	assert.Nil(t, got.Rating)
	assert.Equal(t, "alien.jpg", got.Poster)

	missing := &model.Film{ID: "no-such-id", Title: "Ghost"}
	assert.ErrorIs(t, repo.UpdateFilm(ctx, missing), model.ErrNotFound)
}

func TestDeleteFilm(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := testUser(t, repo, "alice")

	film := &model.Film{UserID: owner.ID, Title: "Heat"}
	filmID, err := repo.InsertFilm(ctx, film)
	require.NoError(t, err)

	actors, err := repo.GetActors(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, actors)
	require.NoError(t, repo.SetFilmActors(ctx, filmID, []string{actors[0].ID}))

	require.NoError(t, repo.DeleteFilm(ctx, filmID))

	_, err = repo.GetFilm(ctx, filmID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// associations went with the film
	gone, _, err := repo.GetFilmActors(ctx, filmID)
	require.NoError(t, err)
	assert.Empty(t, gone)

	assert.ErrorIs(t, repo.DeleteFilm(ctx, filmID), model.ErrNotFound)
}

func TestSetFilmActorsReplaces(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := testUser(t, repo, "alice")

	filmID, err := repo.InsertFilm(ctx, &model.Film{UserID: owner.ID, Title: "Parasite"})
	require.NoError(t, err)

	catalog, err := repo.GetActors(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(catalog), 3)
	a, b, c := catalog[0].ID, catalog[1].ID, catalog[2].ID

	require.NoError(t, repo.SetFilmActors(ctx, filmID, []string{a, b}))
	_, actorIDs, err := repo.GetFilmActors(ctx, filmID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{a: true, b: true}, actorIDs)

	// replace, not patch: no residue of the previous set
	require.NoError(t, repo.SetFilmActors(ctx, filmID, []string{c}))
	_, actorIDs, err = repo.GetFilmActors(ctx, filmID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{c: true}, actorIDs)

	// empty set detaches everything
	require.NoError(t, repo.SetFilmActors(ctx, filmID, nil))
	actors, actorIDs, err := repo.GetFilmActors(ctx, filmID)
	require.NoError(t, err)
	assert.Empty(t, actors)
	assert.Empty(t, actorIDs)

	// duplicate ids collapse to one association
	require.NoError(t, repo.SetFilmActors(ctx, filmID, []string{a, a}))
	actors, _, err = repo.GetFilmActors(ctx, filmID)
	require.NoError(t, err)
	assert.Len(t, actors, 1)
}

func TestSetFilmActorsUnknownActor(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := testUser(t, repo, "alice")

	filmID, err := repo.InsertFilm(ctx, &model.Film{UserID: owner.ID, Title: "Heat"})
	require.NoError(t, err)

	err = repo.SetFilmActors(ctx, filmID, []string{"no-such-actor"})
	assert.ErrorIs(t, err, model.ErrUnknownActor)

	// the failed replace leaves no partial association behind
	actors, _, err := repo.GetFilmActors(ctx, filmID)
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestReadFailureIsNotNotFound(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.dbReadHandle.Close())

	_, err := repo.GetFilm(ctx, "f1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	_, err = repo.GetUser(ctx, "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	_, err = repo.GetUserByID(ctx, "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	// a broken store must not read as bad credentials either
	_, err = repo.ValidateUser(ctx, "alice", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestGetFilmDetails(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := testUser(t, repo, "alice")

	filmID, err := repo.InsertFilm(ctx, &model.Film{UserID: owner.ID, Title: "Tár"})
	require.NoError(t, err)

	catalog, err := repo.GetActors(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SetFilmActors(ctx, filmID, []string{catalog[0].ID}))

	details, err := repo.GetFilmDetails(ctx, filmID)
	require.NoError(t, err)
	assert.Equal(t, "Tár", details.Title)
	require.Len(t, details.Actors, 1)
	assert.Equal(t, catalog[0].Name, details.Actors[0].Name)
	assert.True(t, details.ActorIDs[catalog[0].ID])

	_, err = repo.GetFilmDetails(ctx, "no-such-id")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetActorsSorted(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)

	actors, err := repo.GetActors(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, actors)
	for i := 1; i < len(actors); i++ {
		assert.LessOrEqual(t, actors[i-1].Name, actors[i].Name)
	}
}
