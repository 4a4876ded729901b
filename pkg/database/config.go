package database

import "time"

// Config holds the connection-pool settings for the Postgres backing
// store. DSN is assembled by the caller (pkg/config reads it from the
// DATABASE_URL secret) since the pool accepts a single connection string.
type Config struct {
	DSN string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig mirrors a conservative out-of-the-box pool size for a
// single-instance deployment.
var DefaultConfig = Config{
	MaxConns:        10,
	MinConns:        2,
	MaxConnLifetime: time.Hour,
	MaxConnIdleTime: 15 * time.Minute,
}
