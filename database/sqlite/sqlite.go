package sqlite

import (
	"fmt"
	"runtime"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SqliteRepo struct {
	// Read db handle
	dbReadHandle *sqlx.DB
	// Handle specfically for writes
	dbWriteHandle *sqlx.DB
}

// ConfigFile holds configuration options
type ConfigFile struct {
	Filename string `yaml:"filename"`
}

// New initializes a sqlite database and creates schema if necssary.
func New(o *ConfigFile) (*SqliteRepo, error) {
	if o == nil || o.Filename == "" {
		return nil, fmt.Errorf("database filename not set")
	}

	// Foreign keys are per-connection in sqlite, setting them in the DSN
	// covers every connection the pools open.
	dsn := o.Filename + "?_foreign_keys=on"

	dbHandle, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	dbHandle.SetMaxOpenConns(max(4, runtime.NumCPU()))

	writeDB, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite needs to have a single writer
	writeDB.SetMaxOpenConns(1)

	if err := dbInitSchema(writeDB); err != nil {
		return nil, err
	}

	return &SqliteRepo{
		dbReadHandle:  dbHandle,
		dbWriteHandle: writeDB,
	}, nil
}
