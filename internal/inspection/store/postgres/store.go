// Package postgres implements the record store on PostgreSQL. Each unit of
// work is a transaction that locks the vehicle row it reads, so replicas of
// the service serialize on the same vehicle.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
	"github.com/autopeer-io/atsinspect/pkg/log"
	"github.com/autopeer-io/atsinspect/pkg/options"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ core.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL record store.
type Store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// New wraps an existing pool. A nil tracer uses the global provider.
func New(pool *pgxpool.Pool, tracer trace.Tracer) *Store {
	if tracer == nil {
		tracer = otel.Tracer("github.com/autopeer-io/atsinspect/store/postgres")
	}
	return &Store{pool: pool, tracer: tracer}
}

// Open connects to the database described by opts and applies migrations
// when enabled.
func Open(ctx context.Context, opts *options.PostgresOptions, tracer trace.Tracer) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = opts.MaxConnLifetime

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if opts.AutoMigrate {
		if err := Migrate(pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	log.Info("Connected to postgres", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return New(pool, tracer), nil
}

// Migrate applies the embedded schema migrations.
func Migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Vehicle() core.VehicleRepository {
	return &vehicleStore{q: s.pool, tracer: s.tracer}
}

func (s *Store) TestInstance() core.TestInstanceRepository {
	return &instanceStore{q: s.pool, tracer: s.tracer}
}

func (s *Store) SubInspection() core.SubInspectionRepository {
	return &subInspectionStore{q: s.pool, tracer: s.tracer}
}

// InTx runs fn in a transaction. Vehicle lookups made through the
// transaction's repository lock the row until commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo core.Repository) error) error {
	return executeAndTrace(ctx, s.tracer, "postgres.tx", nil, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			return fn(ctx, &txRepository{tx: tx, tracer: s.tracer})
		})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type txRepository struct {
	tx     pgx.Tx
	tracer trace.Tracer
}

func (r *txRepository) Vehicle() core.VehicleRepository {
	return &vehicleStore{q: r.tx, tracer: r.tracer, lock: true}
}

func (r *txRepository) TestInstance() core.TestInstanceRepository {
	return &instanceStore{q: r.tx, tracer: r.tracer}
}

func (r *txRepository) SubInspection() core.SubInspectionRepository {
	return &subInspectionStore{q: r.tx, tracer: r.tracer}
}

// classify maps driver errors to the store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return util.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, util.ErrAlreadyExists)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, util.ErrNotFound)
		}
	}
	return err
}
