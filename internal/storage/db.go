package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by the Postgres slot.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores the slot as a row in the slots table.
type Postgres struct {
	q     Querier
	key   string
	close func()
}

// NewPostgres wraps an existing querier. Close is a no-op.
func NewPostgres(q Querier, key string) *Postgres {
	return &Postgres{q: q, key: key, close: func() {}}
}

// OpenPostgres creates a connection pool and returns a slot that owns it.
func OpenPostgres(ctx context.Context, dsn, key string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{q: pool, key: key, close: pool.Close}, nil
}

func (p *Postgres) Load(ctx context.Context) (string, bool, error) {
	var text string
	err := p.q.QueryRow(ctx, `SELECT value FROM slots WHERE key = $1`, p.key).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading slot %s: %w", p.key, err)
	}
	return text, true, nil
}

func (p *Postgres) Save(ctx context.Context, text string) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO slots (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.key, text)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", p.key, err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.q.Exec(ctx, `DELETE FROM slots WHERE key = $1`, p.key); err != nil {
		return fmt.Errorf("clearing slot %s: %w", p.key, err)
	}
	return nil
}

// Close closes the pool when the slot owns one.
func (p *Postgres) Close() error {
	p.close()
	return nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
