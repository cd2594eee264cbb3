// Command validate-order проверяет заказ из JSON-файла локально (memory/postgres)
// или через удалённый OrderValidationService.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orderguard/internal/app"
	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/orderguard/internal/service/grpc"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

// Коды выхода.
const (
	exitValid    = 0
	exitFailure  = 1
	exitRejected = 2
)

const defaultTimeout = 10 * time.Second

type report struct {
	OrderID   string `json:"orderId"`
	Valid     bool   `json:"valid"`
	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
}

type options struct {
	orderPath string
	seedPath  string
	addr      string
	rounding  string
	timeout   time.Duration
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	code, err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.LookupEnv)
	if err != nil {
		log.WithError(err).Error("validate-order failed")
	}
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, lookup app.LookupEnv) (int, error) {
	opts, err := parseFlags(args)
	if err != nil {
		return exitFailure, err
	}

	order, err := readOrder(opts.orderPath, stdin)
	if err != nil {
		return exitFailure, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	var result report
	if opts.addr != "" {
		result, err = validateRemote(ctx, opts.addr, order)
	} else {
		result, err = validateLocal(ctx, opts, lookup, order)
	}
	if err != nil {
		return exitFailure, err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return exitFailure, fmt.Errorf("write report: %w", err)
	}
	if !result.Valid {
		return exitRejected, nil
	}
	return exitValid, nil
}

func parseFlags(args []string) (options, error) {
	var opts options
	flags := flag.NewFlagSet("validate-order", flag.ContinueOnError)
	flags.StringVar(&opts.orderPath, "order", "-", "path to order JSON (- for stdin)")
	flags.StringVar(&opts.seedPath, "seed", "", "memory store seed JSON (overrides "+app.EnvMemorySeed+")")
	flags.StringVar(&opts.addr, "addr", "", "validate via remote gRPC service at addr instead of a local store")
	flags.StringVar(&opts.rounding, "rounding", "", "price rounding: exact|round-down|round-up")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "validation timeout")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if opts.timeout <= 0 {
		return options{}, errors.New("timeout must be > 0")
	}
	return opts, nil
}

func readOrder(path string, stdin io.Reader) (domain.Order, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("read order: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

func validateLocal(ctx context.Context, opts options, lookup app.LookupEnv, order domain.Order) (report, error) {
	cfg, warnings, err := app.LoadConfig(lookup)
	if err != nil {
		return report{}, err
	}
	for _, warning := range warnings {
		log.Warn(warning)
	}
	if opts.seedPath != "" {
		cfg.StorageDriver = app.StorageDriverMemory
		cfg.MemorySeedPath = opts.seedPath
	}
	if opts.rounding != "" {
		cfg.PriceRounding = opts.rounding
	}
	// CLI не меняет схему чужой базы.
	cfg.PostgresAutoMigrate = false

	validationCfg, err := cfg.ValidationConfig()
	if err != nil {
		return report{}, err
	}

	logger := log.WithField("component", "validate-order")
	store, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return report{}, err
	}
	defer func() { _ = store.Close() }()

	pipeline, err := validation.NewPipeline(store.Stores(), validationCfg, logger, nil)
	if err != nil {
		return report{}, err
	}

	validationErr := pipeline.Validate(ctx, order)
	if validationErr != nil && !domain.IsValidationFailure(validationErr) {
		return report{}, validationErr
	}
	return newReport(order.ID, domain.ErrorKind(validationErr), validationErr), nil
}

func validateRemote(ctx context.Context, addr string, order domain.Order) (report, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return report{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	return validateWithClient(ctx, grpcsvc.NewClient(conn), order)
}

func validateWithClient(ctx context.Context, client *grpcsvc.Client, order domain.Order) (report, error) {
	req, err := grpcsvc.NewValidateOrderRequest(order)
	if err != nil {
		return report{}, err
	}

	_, err = client.ValidateOrder(ctx, req)
	if err == nil {
		return newReport(order.ID, "", nil), nil
	}

	kind := grpcsvc.ErrorKindFromStatus(err)
	if kind == "" || kind == domain.KindInternal {
		return report{}, fmt.Errorf("remote validation: %w", err)
	}
	return newReport(order.ID, kind, errors.New(status.Convert(err).Message())), nil
}

func newReport(orderID, kind string, err error) report {
	r := report{OrderID: orderID, Valid: err == nil, ErrorKind: kind}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
