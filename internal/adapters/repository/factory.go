package repository

import (
	"context"
	"fmt"
)

// Backend names accepted by NewStore.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// NewStore builds a Store for the named backend. SQLite needs a file path,
// Postgres a DSN; the memory backend ignores both.
func NewStore(ctx context.Context, backend, sqlitePath, postgresDSN string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("%w: sqlite needs a path", ErrMissingDSN)
		}
		return NewSQLiteStore(sqlitePath)
	case BackendPostgres:
		if postgresDSN == "" {
			return nil, fmt.Errorf("%w: postgres needs a dsn", ErrMissingDSN)
		}
		return NewPostgresStore(ctx, postgresDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, backend)
	}
}
