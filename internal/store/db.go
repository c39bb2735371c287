package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps the Postgres pool behind pgx's database/sql driver. Session and
// attendance writes ride conditional updates, so the pool stays small: the
// database serializes contention, not the connection count.
type DB struct {
	Client *sql.DB
}

// NewDB opens the pool and pings it. A ping failure still returns a usable
// handle; connections are retried lazily on first use.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return &DB{Client: db}, db.PingContext(ctx)
}

// Close closes the underlying pool. Safe on a nil receiver so shutdown paths
// need no backend check.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
