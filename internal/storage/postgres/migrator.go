package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	migrationsGlob   = "sql/migrations/*.sql"
	migrationLockKey = int64(7204318)
	migrationsTable  = "orderguard_schema_migrations"
)

var (
	//go:embed sql/migrations/*.sql
	migrationsFS embed.FS

	migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    checksum TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

// ErrMigrationDrift: применённая миграция не совпадает со встроенным файлом.
var ErrMigrationDrift = errors.New("applied migration differs from embedded file")

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// checksum считается только по up-части: её содержимое определяет схему.
func (m migration) checksum() string {
	sum := sha256.Sum256([]byte(m.Up))
	return hex.EncodeToString(sum[:])
}

func (m migration) label() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

type appliedMigration struct {
	Version  int64
	Name     string
	Checksum string
}

// MigrationInfo описывает встроенную миграцию схемы документов.
type MigrationInfo struct {
	Version int64
	Name    string
}

// AvailableMigrations возвращает встроенные миграции по возрастанию версии.
func AvailableMigrations() ([]MigrationInfo, error) {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return nil, err
	}
	return migrationInfos(migrations), nil
}

func migrationInfos(migrations []migration) []MigrationInfo {
	infos := make([]MigrationInfo, 0, len(migrations))
	for _, m := range migrations {
		infos = append(infos, MigrationInfo{Version: m.Version, Name: m.Name})
	}
	return infos
}

type migrationQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// MigrateUp применяет ещё не применённые миграции. steps=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	return s.withMigrationLock(ctx, func(conn *sql.Conn) error {
		applied, err := loadApplied(ctx, conn)
		if err != nil {
			return err
		}
		if err := verifyApplied(migrations, applied); err != nil {
			return err
		}

		for _, m := range planUp(migrations, applied, steps) {
			err := runMigrationTx(ctx, conn, m.Up,
				`INSERT INTO `+migrationsTable+` (version, name, checksum) VALUES ($1, $2, $3)`,
				m.Version, m.Name, m.checksum())
			if err != nil {
				return fmt.Errorf("apply migration %s: %w", m.label(), err)
			}
		}
		return nil
	})
}

// MigrateDown откатывает последние миграции. steps<=0 откатывает одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	return s.withMigrationLock(ctx, func(conn *sql.Conn) error {
		applied, err := loadApplied(ctx, conn)
		if err != nil {
			return err
		}
		plan, err := planDown(migrations, applied, steps)
		if err != nil {
			return err
		}

		for _, m := range plan {
			err := runMigrationTx(ctx, conn, m.Down,
				`DELETE FROM `+migrationsTable+` WHERE version = $1`, m.Version)
			if err != nil {
				return fmt.Errorf("rollback migration %s: %w", m.label(), err)
			}
		}
		return nil
	})
}

// MigrationStatus возвращает текущую версию и количество применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if err := s.ready(); err != nil {
		return 0, 0, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, migrationTableDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration table: %w", err)
	}

	var (
		version int64
		count   int
	)
	err := s.db.QueryRowContext(queryCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM `+migrationsTable,
	).Scan(&version, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}
	return version, count, nil
}

// PendingMigrations возвращает встроенные миграции, которых ещё нет в базе.
func (s *Store) PendingMigrations(ctx context.Context) ([]MigrationInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, migrationTableDDL); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}
	applied, err := loadApplied(queryCtx, s.db)
	if err != nil {
		return nil, err
	}
	if err := verifyApplied(migrations, applied); err != nil {
		return nil, err
	}
	return migrationInfos(planUp(migrations, applied, 0)), nil
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("postgres store is not initialized")
	}
	return nil
}

// withMigrationLock выполняет fn на выделенном соединении под advisory lock.
func (s *Store) withMigrationLock(ctx context.Context, fn func(conn *sql.Conn) error) error {
	if err := s.ready(); err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationTableDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return fn(conn)
}

func runMigrationTx(ctx context.Context, conn *sql.Conn, body, record string, args ...any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// loadApplied читает историю применённых миграций по возрастанию версии.
func loadApplied(ctx context.Context, q migrationQuerier) ([]appliedMigration, error) {
	rows, err := q.QueryContext(ctx, `SELECT version, name, checksum FROM `+migrationsTable+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []appliedMigration
	for rows.Next() {
		var a appliedMigration
		if err := rows.Scan(&a.Version, &a.Name, &a.Checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// verifyApplied сверяет историю с встроенными файлами.
// Пустая checksum в истории не проверяется.
func verifyApplied(migrations []migration, applied []appliedMigration) error {
	byVersion := indexMigrations(migrations)
	for _, a := range applied {
		m, ok := byVersion[a.Version]
		if !ok {
			return fmt.Errorf("%w: version %d is not embedded", ErrMigrationDrift, a.Version)
		}
		if a.Name != m.Name {
			return fmt.Errorf("%w: version %d applied as %q, embedded as %q", ErrMigrationDrift, a.Version, a.Name, m.Name)
		}
		if a.Checksum != "" && a.Checksum != m.checksum() {
			return fmt.Errorf("%w: checksum of %s changed", ErrMigrationDrift, m.label())
		}
	}
	return nil
}

func planUp(migrations []migration, applied []appliedMigration, steps int) []migration {
	done := make(map[int64]struct{}, len(applied))
	for _, a := range applied {
		done[a.Version] = struct{}{}
	}

	var plan []migration
	for _, m := range migrations {
		if _, ok := done[m.Version]; ok {
			continue
		}
		plan = append(plan, m)
		if steps > 0 && len(plan) == steps {
			break
		}
	}
	return plan
}

// planDown берёт steps последних применённых миграций, от новой к старой.
func planDown(migrations []migration, applied []appliedMigration, steps int) ([]migration, error) {
	byVersion := indexMigrations(migrations)

	var plan []migration
	for i := len(applied) - 1; i >= 0 && len(plan) < steps; i-- {
		m, ok := byVersion[applied[i].Version]
		if !ok {
			return nil, fmt.Errorf("cannot rollback unknown migration version %d", applied[i].Version)
		}
		plan = append(plan, m)
	}
	return plan, nil
}

func indexMigrations(migrations []migration) map[int64]migration {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}
	return byVersion
}

func parseMigrationFile(base string) (int64, string, string, error) {
	matches := migrationFilePattern.FindStringSubmatch(base)
	if matches == nil {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", base)
	}
	version, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("parse migration version from %s: %w", base, err)
	}
	return version, matches[2], matches[3], nil
}

func loadMigrationsFromFS(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, migrationsGlob)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*migration)
	for _, file := range files {
		base := path.Base(file)
		version, name, direction, err := parseMigrationFile(base)
		if err != nil {
			return nil, err
		}

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.Up
		if direction == "down" {
			target = &m.Down
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s must have both up and down files", m.label())
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
