package sqlite

import (
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/filmlog/filmlog-server/idhash"
)

func dbInitSchema(d *sqlx.DB) error {
	schema := []string{
		// This is needed to improve concurrent reads and writes.
		`PRAGMA journal_mode = WAL;`,
		// Without this foreign key constraints won't be enforced and cascade deletes won't happen.
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS users (
id TEXT NOT NULL PRIMARY KEY,
username TEXT NOT NULL,
password TEXT NOT NULL,
created DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS users_name_idx ON users (username);`,

		`CREATE TABLE IF NOT EXISTS films (
id TEXT NOT NULL PRIMARY KEY,
user_id TEXT NOT NULL,
title TEXT NOT NULL,
tagline TEXT NOT NULL DEFAULT '',
director TEXT NOT NULL DEFAULT '',
poster TEXT NOT NULL DEFAULT '',
release_year INTEGER NOT NULL DEFAULT 0,
genre TEXT NOT NULL DEFAULT '',
watched BOOLEAN NOT NULL DEFAULT 0,
rating INTEGER,
review TEXT NOT NULL DEFAULT '',
FOREIGN KEY (user_id) REFERENCES users(id));`,

		`CREATE INDEX IF NOT EXISTS films_user_idx ON films (user_id);`,

		`CREATE TABLE IF NOT EXISTS actors (
id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL);`,

		`CREATE INDEX IF NOT EXISTS actors_name_idx ON actors (name);`,

		`CREATE TABLE IF NOT EXISTS film_actors (
film_id TEXT NOT NULL,
actor_id TEXT NOT NULL,
PRIMARY KEY (film_id, actor_id),
FOREIGN KEY (film_id) REFERENCES films(id) ON DELETE CASCADE,
FOREIGN KEY (actor_id) REFERENCES actors(id) ON DELETE CASCADE);`,
	}

	for _, query := range schema {
		if _, err := d.Exec(query); err != nil {
			log.Printf("dbInitSchema error: %s\n", err)
			return err
		}
	}
	return dbSeedActors(d)
}

// defaultActors populates the catalog of a fresh database. The catalog is
// maintained out of band, rows added directly to the actors table show up
// without a restart.
var defaultActors = []string{
	"Amy Adams",
	"Cate Blanchett",
	"Daniel Day-Lewis",
	"Denzel Washington",
	"Frances McDormand",
	"Gary Oldman",
	"Florence Pugh",
	"Mahershala Ali",
	"Saoirse Ronan",
	"Song Kang-ho",
	"Tilda Swinton",
	"Timothée Chalamet",
	"Toni Collette",
	"Viola Davis",
	"Zendaya",
}

func dbSeedActors(d *sqlx.DB) error {
	var count int
	if err := d.Get(&count, `SELECT COUNT(*) FROM actors`); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := d.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range defaultActors {
		if _, err := tx.Exec(`INSERT INTO actors (id, name) VALUES (?, ?)`,
			idhash.Hash(name), name); err != nil {
			return err
		}
	}
	return tx.Commit()
}
