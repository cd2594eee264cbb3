package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderguard/internal/app"
	"github.com/vladislavdragonenkov/orderguard/internal/version"
)

// loadConfig читает конфигурацию и настраивает логгер. Предупреждения пишутся в лог.
func loadConfig(lookup app.LookupEnv) (app.Config, error) {
	cfg, warnings, err := app.LoadConfig(lookup)
	if err != nil {
		return app.Config{}, err
	}
	if err := app.ConfigureLogger(cfg); err != nil {
		return app.Config{}, err
	}
	for _, warning := range warnings {
		log.Warn(warning)
	}
	return cfg, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka":          cfg.KafkaEnabled(),
		"price_rounding": cfg.PriceRounding,
	}).Info("запускаем OrderValidationService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("OrderValidationService остановлен")
}
