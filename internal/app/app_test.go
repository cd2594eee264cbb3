package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orderguard/internal/health"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_InvalidGRPCAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "256.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestInitKafka_Disabled(t *testing.T) {
	runtime, err := initKafka(DefaultConfig(), nil, nil, log.WithField("test", "kafka"))
	if err != nil {
		t.Fatalf("expected no error without brokers, got %v", err)
	}
	if runtime != nil {
		t.Fatal("expected nil runtime without brokers")
	}

	// nil runtime безопасен для start/close
	if err := runtime.start(context.Background()); err != nil {
		t.Fatalf("start on nil runtime: %v", err)
	}
	runtime.close(log.WithField("test", "kafka"))
	closeKafkaProducer(nil, log.WithField("test", "kafka"))

	handler := healthcheck.NewHandler("test")
	runtime.registerHealth(handler)
	if checks := handler.Evaluate(context.Background()).Checks; len(checks) != 0 {
		t.Fatalf("expected no kafka check without brokers, got %v", checks)
	}
}

func TestInitKafka_UnreachableBrokers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}

	pipeline := validation.Validator(nil)
	runtime, err := initKafka(cfg, pipeline, nil, log.WithField("test", "kafka"))
	if err == nil {
		runtime.close(log.WithField("test", "kafka"))
		t.Fatal("expected error for unreachable brokers")
	}
	if runtime != nil {
		t.Fatal("expected nil runtime on error")
	}
}
