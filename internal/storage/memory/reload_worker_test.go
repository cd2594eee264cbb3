package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderguard/internal/storage/memory"
)

func writeSeed(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestReloadWorker_ReloadIfChanged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.json")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeSeed(t, path, `{"items": [{"id": "item-1", "price": "100"}]}`, base)

	store := memory.NewStore()
	if err := store.LoadFile(path); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	worker := memory.NewReloadWorker(store, path, memory.WithReloadInterval(time.Hour))

	reloaded, err := worker.ReloadIfChanged(context.Background())
	if err != nil {
		t.Fatalf("ReloadIfChanged failed: %v", err)
	}
	if reloaded {
		t.Fatal("unchanged file must not be reloaded")
	}

	writeSeed(t, path, `{"items": [{"id": "item-1", "price": "150"}, {"id": "item-2", "price": "10"}]}`, base.Add(time.Minute))

	reloaded, err = worker.ReloadIfChanged(context.Background())
	if err != nil {
		t.Fatalf("ReloadIfChanged failed: %v", err)
	}
	if !reloaded {
		t.Fatal("changed file must be reloaded")
	}

	item, err := store.Stores().Items.Get(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !item.Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected updated price 150, got %s", item.Price)
	}
	if _, err := store.Stores().Items.Get(context.Background(), "item-2"); err != nil {
		t.Fatalf("expected new item after reload: %v", err)
	}
}

func TestReloadWorker_BrokenFileKeepsDocuments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.json")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeSeed(t, path, `{"items": [{"id": "item-1", "price": "100"}]}`, base)

	store := memory.NewStore()
	if err := store.LoadFile(path); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	worker := memory.NewReloadWorker(store, path)

	writeSeed(t, path, `{"items": [`, base.Add(time.Minute))
	if _, err := worker.ReloadIfChanged(context.Background()); err == nil {
		t.Fatal("expected error for broken seed")
	}
	if _, err := store.Stores().Items.Get(context.Background(), "item-1"); err != nil {
		t.Fatalf("previous documents must survive a failed reload: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove seed: %v", err)
	}
	if _, err := worker.ReloadIfChanged(context.Background()); err == nil {
		t.Fatal("expected error for missing seed")
	}
}

func TestReloadWorker_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := memory.NewReloadWorker(memory.NewStore(), filepath.Join(t.TempDir(), "seed.json"))
	if _, err := worker.ReloadIfChanged(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestReloadWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.json")
	writeSeed(t, path, `{}`, time.Now().Add(-time.Hour))

	worker := memory.NewReloadWorker(memory.NewStore(), path, memory.WithReloadInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}

func TestReloadWorker_Run_DisabledWithoutPath(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		memory.NewReloadWorker(memory.NewStore(), "").Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker must return immediately")
	}
}
