package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const defaultReloadInterval = time.Minute

var (
	seedReloadRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderguard_seed_reload_runs_total",
		Help: "Total number of memory seed reload checks grouped by result.",
	}, []string{"result"})
	seedReloadLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderguard_seed_reload_last_success_timestamp_seconds",
		Help: "Unix time of the last successful memory seed reload.",
	})
)

// ReloadOptions задает параметры воркера перечитывания seed.
type ReloadOptions struct {
	Logger   *log.Entry
	Interval time.Duration
}

// ReloadOption настраивает ReloadWorker.
type ReloadOption func(*ReloadOptions)

// WithReloadLogger задает logger для воркера.
func WithReloadLogger(logger *log.Entry) ReloadOption {
	return func(opts *ReloadOptions) {
		opts.Logger = logger
	}
}

// WithReloadInterval задает интервал проверки файла.
func WithReloadInterval(interval time.Duration) ReloadOption {
	return func(opts *ReloadOptions) {
		opts.Interval = interval
	}
}

// ReloadWorker периодически перечитывает seed-файл, если он изменился.
// Документы из файла добавляются поверх текущих, удалённые из файла остаются.
type ReloadWorker struct {
	store    *Store
	path     string
	logger   *log.Entry
	interval time.Duration

	modTime time.Time
	size    int64
}

// NewReloadWorker создает воркер для seed-файла path.
func NewReloadWorker(store *Store, path string, options ...ReloadOption) *ReloadWorker {
	opts := ReloadOptions{Interval: defaultReloadInterval}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "seed-reload-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultReloadInterval
	}

	w := &ReloadWorker{
		store:    store,
		path:     path,
		logger:   logger,
		interval: opts.Interval,
	}
	// Первичная загрузка уже сделана при старте, запоминаем её версию файла.
	if info, err := os.Stat(path); err == nil {
		w.modTime, w.size = info.ModTime(), info.Size()
	}
	return w
}

// Run проверяет файл каждые interval до отмены ctx.
func (w *ReloadWorker) Run(ctx context.Context) {
	if w.store == nil || w.path == "" {
		w.logger.Warn("seed reload worker is disabled: store or path is empty")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *ReloadWorker) check(ctx context.Context) {
	reloaded, err := w.ReloadIfChanged(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		seedReloadRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("seed reload failed, keeping previous documents")
		return
	}
	if !reloaded {
		seedReloadRunsTotal.WithLabelValues("unchanged").Inc()
		return
	}

	seedReloadRunsTotal.WithLabelValues("ok").Inc()
	seedReloadLastSuccess.SetToCurrentTime()
	fields := log.Fields{"path": w.path}
	for entity, count := range w.store.Counts() {
		fields[string(entity)] = count
	}
	w.logger.WithFields(fields).Info("memory seed reloaded")
}

// ReloadIfChanged загружает файл, если изменились его размер или время
// модификации. Возвращает true, если документы были перечитаны.
func (w *ReloadWorker) ReloadIfChanged(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return false, fmt.Errorf("stat seed: %w", err)
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false, nil
	}

	if err := w.store.LoadFile(w.path); err != nil {
		return false, err
	}
	w.modTime, w.size = info.ModTime(), info.Size()
	return true, nil
}
