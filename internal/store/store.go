package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrConflict is returned when an insert violates a uniqueness constraint.
var ErrConflict = errors.New("store: duplicate record")

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New opens the database and applies the schema. For SQLite dsn is a file
// path (or ":memory:"); for PostgreSQL it is a lib/pq connection string.
func New(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error
	switch driver {
	case DriverSQLite:
		db, err = sqlx.Open(DriverSQLite, dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err == nil && dsn == ":memory:" {
			// Each pooled connection would otherwise get its own empty database.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		db, err = sqlx.Open(DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// schema is written in PostgreSQL dialect; translateToSQLite rewrites it for SQLite.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'student',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS soal_ujian (
	id BIGSERIAL PRIMARY KEY,
	matkul TEXT NOT NULL,
	pertanyaan TEXT NOT NULL,
	opsi_1 TEXT NOT NULL,
	opsi_2 TEXT NOT NULL,
	opsi_3 TEXT NOT NULL,
	opsi_4 TEXT NOT NULL,
	jawaban TEXT NOT NULL CHECK (jawaban IN ('A', 'B', 'C', 'D'))
);

CREATE INDEX IF NOT EXISTS soal_ujian_matkul_idx ON soal_ujian (matkul);

CREATE TABLE IF NOT EXISTS hasil_ujian (
	id BIGSERIAL PRIMARY KEY,
	nama TEXT NOT NULL,
	nim TEXT NOT NULL,
	matkul TEXT NOT NULL,
	skor DOUBLE PRECISION NOT NULL,
	waktu TIMESTAMPTZ NOT NULL,
	UNIQUE (nim, matkul)
);
`

func (s *Store) migrate() error {
	ddl := schema
	if s.db.DriverName() == DriverSQLite {
		ddl = translateToSQLite(ddl)
	}
	_, err := s.db.Exec(ddl)
	return err
}

// translateToSQLite converts the PostgreSQL schema to the SQLite dialect.
func translateToSQLite(sql string) string {
	replacements := []struct{ from, to string }{
		{"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"DOUBLE PRECISION", "REAL"},
		{"TIMESTAMPTZ", "DATETIME"},
	}
	result := sql
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.from, r.to)
	}
	return result
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint in either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
