package postgres

import (
	"context"
	"errors"
	"testing"
	"time"
)

func requireMigrationState(t *testing.T, store *Store, wantVersion int64, wantCount int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if version != wantVersion || count != wantCount {
		t.Fatalf("unexpected migration state: version=%d count=%d, want version=%d count=%d",
			version, count, wantVersion, wantCount)
	}
}

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := connectTestPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := store.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("reset migrations: %v", err)
	}
	requireMigrationState(t, store, 0, 0)

	pending, err := store.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("pending migrations: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected every embedded migration pending, got %+v", pending)
	}

	if err := store.MigrateUp(ctx, 1); err != nil {
		t.Fatalf("migrate up one step: %v", err)
	}
	requireMigrationState(t, store, 1, 1)

	// повторный up применяет только оставшееся
	for range 2 {
		if err := store.MigrateUp(ctx, 0); err != nil {
			t.Fatalf("migrate up all: %v", err)
		}
		requireMigrationState(t, store, 2, 2)
	}

	if pending, err = store.PendingMigrations(ctx); err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending migrations, got %+v err=%v", pending, err)
	}

	if _, err := store.DB().ExecContext(ctx,
		`UPDATE `+migrationsTable+` SET checksum = 'tampered' WHERE version = 2`); err != nil {
		t.Fatalf("tamper checksum: %v", err)
	}
	if err := store.MigrateUp(ctx, 0); !errors.Is(err, ErrMigrationDrift) {
		t.Fatalf("expected drift error after tampering, got %v", err)
	}

	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	requireMigrationState(t, store, 1, 1)

	if err := store.MigrateDown(ctx, 5); err != nil {
		t.Fatalf("migrate down rest: %v", err)
	}
	requireMigrationState(t, store, 0, 0)

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down on empty history must be a no-op: %v", err)
	}
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
}
