package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig controls the pgx connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres reads and writes the hosted database directly.
type Postgres struct {
	pool pgxPool
}

// NewPostgres connects a pool using cfg.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("backend.dsn is required")
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
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (primarily for testing).
func NewPostgresWithPool(pool pgxPool) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Postgres{pool: pool}, nil
}

// Select implements Backend.
func (p *Postgres) Select(ctx context.Context, q Query) ([]Row, error) {
	query, args, err := buildSelect(q, dollar)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		fields := rows.FieldDescriptions()
		row := make(Row, len(fields))
		for i, fd := range fields {
			if i < len(values) {
				row[fd.Name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	return out, nil
}

// Insert implements Backend.
func (p *Postgres) Insert(ctx context.Context, table string, row Row) error {
	query, args, err := buildInsert(table, row, dollar)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Update implements Backend.
func (p *Postgres) Update(ctx context.Context, table string, filters []Filter, row Row) error {
	query, args, err := buildUpdate(table, filters, row, dollar)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}
