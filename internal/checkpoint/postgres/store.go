// Package postgres provides a Postgres-backed checkpoint store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vgassen/lexharvest/internal/harvest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the resolved set.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store persists resolved identifiers as rows, one per identifier.
// The assumed schema is:
//
//	CREATE TABLE resolved_identifiers (
//	    identifier TEXT PRIMARY KEY,
//	    resolved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	pool  pool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("checkpoint.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "resolved_identifiers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, table: table}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "resolved_identifiers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

// Load reads all resolved identifiers.
func (s *Store) Load(ctx context.Context) (harvest.ProcessedSet, error) {
	set := make(harvest.ProcessedSet)
	query := fmt.Sprintf(`SELECT identifier FROM %s`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load resolved identifiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan resolved identifier: %w", err)
		}
		set.Add(harvest.Identifier(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolved identifiers: %w", err)
	}
	return set, nil
}

// Commit upserts the newly resolved identifiers. Re-running a batch is
// harmless: the primary key makes the insert idempotent.
func (s *Store) Commit(ctx context.Context, newly []harvest.Identifier) error {
	if len(newly) == 0 {
		return nil
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (identifier) SELECT unnest($1::text[]) ON CONFLICT (identifier) DO NOTHING`,
		s.table,
	)
	ids := make([]string, len(newly))
	for i, id := range newly {
		ids[i] = string(id)
	}
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("commit resolved identifiers: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
