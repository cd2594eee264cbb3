package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderguard/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "ORDERGUARD_POSTGRES_DSN"
)

// command выполняет одно действие над схемой и печатает результат.
type command func(ctx context.Context, store *postgres.Store, steps int, out io.Writer) error

var commands = map[string]command{
	"up": func(ctx context.Context, store *postgres.Store, steps int, out io.Writer) error {
		if err := store.MigrateUp(ctx, steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return printStatus(ctx, store, "up", out)
	},
	"down": func(ctx context.Context, store *postgres.Store, steps int, out io.Writer) error {
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return printStatus(ctx, store, "down", out)
	},
	"status": func(ctx context.Context, store *postgres.Store, _ int, out io.Writer) error {
		return printStatus(ctx, store, "status", out)
	},
	"pending": func(ctx context.Context, store *postgres.Store, _ int, out io.Writer) error {
		pending, err := store.PendingMigrations(ctx)
		if err != nil {
			return fmt.Errorf("pending migrations failed: %w", err)
		}
		if len(pending) == 0 {
			_, _ = fmt.Fprintln(out, "schema is up to date")
			return nil
		}
		printMigrations(out, pending)
		return nil
	},
}

func commandNames() string {
	names := make([]string, 0, len(commands)+1)
	for name := range commands {
		names = append(names, name)
	}
	names = append(names, "list")
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.LookupEnv); err != nil {
		fail("%v", err)
	}
}

func run(args []string, out io.Writer, lookup func(string) (string, bool)) error {
	var (
		direction string
		steps     int
		dsn       string
	)
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	flags.StringVar(&direction, "direction", "up", "action: "+commandNames())
	flags.IntVar(&steps, "steps", 0, "migrations to apply or roll back (up: 0=all, down: 0=1)")
	flags.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := flags.Parse(args); err != nil {
		return err
	}

	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction == "list" {
		migrations, err := postgres.AvailableMigrations()
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		printMigrations(out, migrations)
		return nil
	}

	cmd, ok := commands[direction]
	if !ok {
		return fmt.Errorf("unsupported direction: %s (use %s)", direction, commandNames())
	}

	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		if v, found := lookup(envPostgresDSN); found {
			dsn = strings.TrimSpace(v)
		}
	}
	if dsn == "" {
		return errors.New(envPostgresDSN + " (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	return cmd(ctx, store, steps, out)
}

func printStatus(ctx context.Context, store *postgres.Store, action string, out io.Writer) error {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "migrate %s ok: version=%d applied=%d\n", action, version, count)
	return nil
}

func printMigrations(out io.Writer, migrations []postgres.MigrationInfo) {
	for _, m := range migrations {
		_, _ = fmt.Fprintf(out, "%04d %s\n", m.Version, m.Name)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
