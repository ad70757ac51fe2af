package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tracker-bot/models"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver, registered as "pgx"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver (cgo), registered as "sqlite3"
	_ "modernc.org/sqlite"             // SQLite driver (pure Go), registered as "sqlite"
)

// Supported driver names.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Store is the SQL-backed persistent store for authors, posts, contexts,
// threads and the pending-update set.
type Store struct {
	db       *sql.DB
	postgres bool
	now      func() time.Time
}

// Open connects to the database, sizes the pool for the driver and ensures the
// schema exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	postgres := driver == DriverPostgres
	switch driver {
	case DriverSQLite3, DriverSQLite:
		// Ensure the directory for the database file exists.
		if path := sqlitePath(dsn); path != "" && path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if postgres {
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(20)
	} else {
		// SQLite has a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, postgres: postgres, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("Successfully connected to the %s database", driver)
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	statements := sqliteSchema
	if s.postgres {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) unix() int64 {
	return s.now().Unix()
}

// storeErr tags a driver error so callers can match models.ErrStoreUnavailable.
func storeErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, models.ErrStoreUnavailable, err)
}

// sqlitePath extracts the file path from a DSN such as "file:data/tracker.db?_fk=1".
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
