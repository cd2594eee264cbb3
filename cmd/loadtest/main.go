// Command loadtest нагружает OrderValidationService повторяющейся проверкой одного заказа.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/orderguard/internal/service/grpc"
)

type loadMode string

const (
	modeAccepted loadMode = "accepted"
	modeMixed    loadMode = "mixed"
)

type validationClient interface {
	ValidateOrder(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type config struct {
	target        string
	orderFile     string
	scenarios     int
	scenariosSet  bool
	duration      time.Duration
	workers       int
	conns         int
	rpcTimeout    time.Duration
	mode          loadMode
	rejectPercent int
	reportPath    string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg  config
		mode string
	)

	flags := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cfg.target, "addr", "localhost:50051", "gRPC target address")
	flags.StringVar(&cfg.orderFile, "order", "", "order JSON that passes validation on the target")
	flags.IntVar(&cfg.scenarios, "total", 400, "scenarios to run; with -duration only an upper bound when set explicitly")
	flags.DurationVar(&cfg.duration, "duration", 0, "run for this long instead of a fixed count")
	flags.IntVar(&cfg.workers, "concurrency", 40, "concurrent workers")
	flags.IntVar(&cfg.conns, "connections", 20, "gRPC client connections shared by workers")
	flags.DurationVar(&cfg.rpcTimeout, "timeout", 5*time.Second, "per-RPC timeout")
	flags.StringVar(&mode, "mode", string(modeAccepted), "load mode: accepted | mixed")
	flags.IntVar(&cfg.rejectPercent, "reject-rate", 20, "percent of tampered orders in mixed mode (0..100)")
	flags.StringVar(&cfg.reportPath, "output", "", "write JSON report to this file")
	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	flags.Visit(func(f *flag.Flag) {
		cfg.scenariosSet = cfg.scenariosSet || f.Name == "total"
	})

	parsed, err := parseMode(mode)
	if err != nil {
		return cfg, err
	}
	cfg.mode = parsed

	checks := []struct {
		failed bool
		msg    string
	}{
		{strings.TrimSpace(cfg.orderFile) == "", "order is required"},
		{cfg.duration < 0, "duration must be >= 0"},
		{cfg.duration == 0 && cfg.scenarios <= 0, "total must be > 0 when duration is not set"},
		{cfg.duration > 0 && cfg.scenariosSet && cfg.scenarios <= 0, "total must be > 0 when explicitly set with duration"},
		{cfg.workers <= 0, "concurrency must be > 0"},
		{cfg.conns <= 0, "connections must be > 0"},
		{cfg.rpcTimeout <= 0, "timeout must be > 0"},
		{cfg.rejectPercent < 0 || cfg.rejectPercent > 100, "reject-rate must be between 0 and 100"},
	}
	for _, check := range checks {
		if check.failed {
			return cfg, errors.New(check.msg)
		}
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeAccepted, modeMixed:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

// fixtures: исходный заказ и заказ с искажённой суммой, который сервис обязан отклонить.
type fixtures struct {
	accepted *structpb.Struct
	tampered *structpb.Struct
}

func loadFixtures(path string) (fixtures, error) {
	// #nosec G304 -- path is an explicit CLI input parameter.
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fixtures{}, fmt.Errorf("read order: %w", err)
	}
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return fixtures{}, fmt.Errorf("decode order: %w", err)
	}
	return newFixtures(order)
}

func newFixtures(order domain.Order) (fixtures, error) {
	accepted, err := grpcsvc.NewValidateOrderRequest(order)
	if err != nil {
		return fixtures{}, err
	}

	broken := order
	broken.Amount = decimal.NewNullDecimal(order.Amount.Decimal.Add(decimal.NewFromInt(1)))
	tampered, err := grpcsvc.NewValidateOrderRequest(broken)
	if err != nil {
		return fixtures{}, err
	}
	return fixtures{accepted: accepted, tampered: tampered}, nil
}

// pick выбирает запрос сценария и ожидаемый код ответа.
func (f fixtures) pick(cfg config, index int) (*structpb.Struct, codes.Code) {
	if cfg.mode == modeMixed && tamperedAt(index, cfg.rejectPercent) {
		return f.tampered, codes.FailedPrecondition
	}
	return f.accepted, codes.OK
}

// tamperedAt распределяет искажённые заказы равномерно по каждой сотне сценариев.
func tamperedAt(index, percent int) bool {
	return index%100 < percent
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		_, _ = fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	fx, err := loadFixtures(cfg.orderFile)
	if err != nil {
		return err
	}

	clients, closeAll, err := dial(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	result := execute(ctx, clients, cfg, fx)
	if err := printReport(out, result, cfg); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if cfg.reportPath != "" {
		if err := writeReport(cfg.reportPath, result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if failed := result.Scenarios.Failed; failed > 0 {
		return fmt.Errorf("%d scenarios failed", failed)
	}
	return nil
}

func dial(cfg config) ([]validationClient, func(), error) {
	conns := make([]*grpc.ClientConn, 0, cfg.conns)
	closeAll := func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}

	clients := make([]validationClient, 0, cfg.conns)
	for range cfg.conns {
		conn, err := grpc.NewClient(cfg.target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create grpc client connection: %w", err)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewClient(conn))
	}
	return clients, closeAll, nil
}

// execute раздаёт сценарии воркерам; воркер i использует клиента i mod len(clients).
func execute(ctx context.Context, clients []validationClient, cfg config, fx fixtures) report {
	started := time.Now()
	stats := newCollector()
	jobs := make(chan int, cfg.workers)

	var workers errgroup.Group
	for w := range cfg.workers {
		client := clients[w%len(clients)]
		workers.Go(func() error {
			for index := range jobs {
				_ = runScenario(ctx, client, cfg, index, fx, stats)
			}
			return nil
		})
	}

	produceJobs(ctx, jobs, cfg)
	_ = workers.Wait()

	return stats.report(started, time.Since(started))
}

// produceJobs выдаёт номера сценариев до исчерпания счётчика, таймера или ctx.
func produceJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	limit := cfg.scenarios
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
		if !cfg.scenariosSet {
			limit = -1
		}
	}

	for i := 0; limit < 0 || i < limit; i++ {
		select {
		case <-ctx.Done():
			return
		case jobs <- i:
		}
	}
}

// runScenario отправляет один заказ и сверяет код ответа с ожидаемым.
func runScenario(ctx context.Context, client validationClient, cfg config, index int, fx fixtures, stats *collector) error {
	req, want := fx.pick(cfg, index)

	callCtx, cancel := context.WithTimeout(ctx, cfg.rpcTimeout)
	started := time.Now()
	_, err := client.ValidateOrder(callCtx, req)
	elapsed := time.Since(started)
	cancel()

	got := status.Code(err)
	stats.observeCall(got, elapsed)
	if got == want {
		stats.observeScenario(codes.OK, elapsed)
		return nil
	}

	// принятый искажённый заказ: ответ есть, но неверный
	if got == codes.OK {
		stats.observeScenario(codes.Unknown, elapsed)
	} else {
		stats.observeScenario(got, elapsed)
	}
	return fmt.Errorf("scenario %d: got %s, want %s", index, got, want)
}
