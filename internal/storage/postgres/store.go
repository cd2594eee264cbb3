// Package postgres реализует документное хранилище на PostgreSQL: по таблице с JSONB на вид сущности.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultOpTimeout       = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Option настраивает Store.
type Option func(*options)

type options struct {
	maxOpenConns int
	maxIdleConns int
	opTimeout    time.Duration
}

// WithMaxOpenConns ограничивает пул соединений.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
			if o.maxIdleConns > n {
				o.maxIdleConns = n
			}
		}
	}
}

// WithOpTimeout задаёт таймаут одного запроса поверх контекста вызывающего.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.opTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	cfg := options{
		maxOpenConns: defaultMaxOpenConns,
		maxIdleConns: defaultMaxIdleConns,
		opTimeout:    defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Store оборачивает SQL-подключение к PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// Open подключается через драйвер pgx, настраивает пул и ждёт первого ping.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg := buildOptions(opts)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	store := &Store{db: db, opTimeout: cfg.opTimeout}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}

// NewStore оборачивает готовое подключение (тесты, внешний пул). Пул не перенастраивается.
func NewStore(db *sql.DB, opts ...Option) *Store {
	return &Store{db: db, opTimeout: buildOptions(opts).opTimeout}
}

// DB отдаёт пул для миграций и тестов.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Stores отдаёт read-only репозитории всех сущностей.
func (s *Store) Stores() domain.Stores {
	return domain.Stores{
		Branches:      NewBranchRepository(s),
		Items:         NewItemRepository(s),
		CustomerItems: NewCustomerItemRepository(s),
		Orders:        NewOrderRepository(s),
		Deliveries:    NewDeliveryRepository(s),
		Payments:      NewPaymentRepository(s),
	}
}

// Ping проверяет базу не дольше defaultConnTimeout.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
