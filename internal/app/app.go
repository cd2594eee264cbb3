package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/orderguard/internal/health"
	"github.com/vladislavdragonenkov/orderguard/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/orderguard/internal/service/grpc"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
	"github.com/vladislavdragonenkov/orderguard/internal/version"
)

const storageSlowAfter = 500 * time.Millisecond

// Run поднимает gRPC-сервис проверки, HTTP с метриками и health, и, если заданы
// брокеры, Kafka consumer. Завершается по отмене ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	validationCfg, err := cfg.ValidationConfig()
	if err != nil {
		return err
	}

	store, err := OpenStorage(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close document store")
		}
	}()

	recorder := metrics.NewValidationMetrics()
	pipeline, err := validation.NewPipeline(store.Stores(), validationCfg, logger.WithField("layer", "validation"), recorder)
	if err != nil {
		return err
	}

	grpcServer := newGRPCServer(logger)
	grpcsvc.RegisterOrderValidationServer(grpcServer, grpcsvc.NewOrderValidationService(pipeline, logger.WithField("layer", "grpc"), recorder))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	initGRPCMetrics(grpcServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", store, storageSlowAfter))

	kafkaRT, err := initKafka(cfg, pipeline, recorder, logger)
	if err != nil {
		return fmt.Errorf("init kafka: %w", err)
	}
	kafkaRT.registerHealth(healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		kafkaRT.close(logger)
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	metricsSrv := startMetricsServer(groupCtx, cfg.MetricsAddr, logger, healthHandler)

	group.Go(func() error {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return kafkaRT.start(groupCtx)
	})
	if reloader := newSeedReloader(cfg, store, logger); reloader != nil {
		group.Go(func() error {
			reloader.Run(groupCtx)
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("получен сигнал остановки, останавливаем сервисы")
		healthServer.Shutdown()
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		kafkaRT.close(logger)
		shutdownHTTP(metricsSrv, logger)
		return nil
	})

	waitErr := group.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return waitErr
}

func newGRPCServer(logger *log.Entry) *grpc.Server {
	logger.WithFields(version.Fields()).Debug("building grpc server")
	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(promgrpc.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(promgrpc.StreamServerInterceptor),
	)
}

// initGRPCMetrics регистрирует метрики сервера go-grpc-prometheus для всех методов.
func initGRPCMetrics(server *grpc.Server) {
	promgrpc.EnableHandlingTimeHistogram()
	promgrpc.Register(server)
}

func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startMetricsServer запускает HTTP с /metrics, /healthz, /livez и /readyz.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
