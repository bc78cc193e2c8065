// Package store owns datastore connectivity: the Postgres pool, schema
// migrations, the Redis client used for scheduler coordination, and the
// translation of driver errors into storage sentinels.
package store

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// ErrorNotFound is returned when an addressed row does not exist.
var ErrorNotFound = errors.New("row not found")

type Database struct {
	Client *sqlx.DB
}

// New opens a Postgres connection pool over the pgx stdlib driver.
func New(dsn string) (*Database, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{Client: db}, nil
}

func (d *Database) Close() error {
	return d.Client.Close()
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. With an empty constraint it matches any; otherwise only the
// named constraint. Subscription verification leans on this: the database
// constraint is the concurrency primitive, and racing writers detect their
// loss through this check.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
