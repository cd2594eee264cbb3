package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

// Драйверы документного хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Переменные окружения.
const (
	EnvConfigPath          = "ORDERGUARD_CONFIG"
	EnvGRPCAddr            = "ORDERGUARD_GRPC_ADDR"
	EnvMetricsAddr         = "ORDERGUARD_METRICS_ADDR"
	EnvStorageDriver       = "ORDERGUARD_STORAGE_DRIVER"
	EnvPostgresDSN         = "ORDERGUARD_POSTGRES_DSN"
	EnvPostgresAutoMigrate = "ORDERGUARD_POSTGRES_AUTO_MIGRATE"
	EnvMemorySeed          = "ORDERGUARD_MEMORY_SEED"
	EnvMemorySeedReload    = "ORDERGUARD_MEMORY_SEED_RELOAD_INTERVAL"
	EnvKafkaBrokers        = "ORDERGUARD_KAFKA_BROKERS"
	EnvKafkaGroupID        = "ORDERGUARD_KAFKA_GROUP_ID"
	EnvPriceRounding       = "ORDERGUARD_PRICE_ROUNDING"
	EnvLineageMaxDepth     = "ORDERGUARD_LINEAGE_MAX_DEPTH"
	EnvLogLevel            = "ORDERGUARD_LOG_LEVEL"
	EnvLogFormat           = "ORDERGUARD_LOG_FORMAT"
)

// Форматы логов.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	StorageDriver        string        `yaml:"storage_driver"`
	PostgresDSN          string        `yaml:"postgres_dsn"`
	PostgresAutoMigrate  bool          `yaml:"postgres_auto_migrate"`
	PostgresMaxOpenConns int           `yaml:"postgres_max_open_conns"`
	PostgresOpTimeout    time.Duration `yaml:"postgres_op_timeout"`
	// MemorySeedPath: JSON-снимок для memory-хранилища.
	MemorySeedPath string `yaml:"memory_seed"`

	// MemorySeedReloadInterval > 0 включает перечитывание seed при изменении файла.
	MemorySeedReloadInterval time.Duration `yaml:"memory_seed_reload_interval"`

	// При пустом KafkaBrokers асинхронная проверка выключена.
	KafkaBrokers    []string      `yaml:"kafka_brokers"`
	KafkaGroupID    string        `yaml:"kafka_group_id"`
	KafkaMaxRetries int           `yaml:"kafka_max_retries"`
	KafkaRetryDelay time.Duration `yaml:"kafka_retry_delay"`

	PriceRounding   string `yaml:"price_rounding"`
	LineRounding    string `yaml:"line_rounding"`
	LineageMaxDepth int    `yaml:"lineage_max_depth"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaGroupID:        "orderguard-validator",
		KafkaMaxRetries:     3,
		KafkaRetryDelay:     200 * time.Millisecond,
		PriceRounding:       string(pricing.RoundingDown),
		LineRounding:        string(pricing.RoundingExact),
		LineageMaxDepth:     validation.DefaultMaxLineageDepth,
		LogLevel:            "info",
		LogFormat:           LogFormatText,
		ShutdownTimeout:     5 * time.Second,
	}
}

// LookupEnv совпадает по сигнатуре с os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// LoadConfig собирает конфигурацию: умолчания, YAML-файл из ORDERGUARD_CONFIG,
// затем переменные окружения. Нераспознанные значения окружения не роняют запуск,
// а возвращаются предупреждениями.
func LoadConfig(lookup LookupEnv) (Config, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := DefaultConfig()

	if path, ok := lookupTrimmed(lookup, EnvConfigPath); ok {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, nil, err
		}
	}

	warnings := cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, err
	}
	return cfg, warnings, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupEnv) []string {
	var warnings []string

	if v, ok := lookupTrimmed(lookup, EnvGRPCAddr); ok {
		c.GRPCAddr = v
	}
	if v, ok := lookupTrimmed(lookup, EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, EnvStorageDriver); ok {
		c.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, EnvPostgresDSN); ok {
		c.PostgresDSN = v
	}
	if v, ok := lookupTrimmed(lookup, EnvPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v, keeping %t", EnvPostgresAutoMigrate, err, c.PostgresAutoMigrate))
		} else {
			c.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, EnvMemorySeed); ok {
		c.MemorySeedPath = v
	}
	if v, ok := lookupTrimmed(lookup, EnvMemorySeedReload); ok {
		interval, err := time.ParseDuration(v)
		if err != nil || interval < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: invalid value %q, keeping %s", EnvMemorySeedReload, v, c.MemorySeedReloadInterval))
		} else {
			c.MemorySeedReloadInterval = interval
		}
	}
	if v, ok := lookupTrimmed(lookup, EnvKafkaBrokers); ok {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := lookupTrimmed(lookup, EnvKafkaGroupID); ok {
		c.KafkaGroupID = v
	}
	if v, ok := lookupTrimmed(lookup, EnvPriceRounding); ok {
		c.PriceRounding = v
	}
	if v, ok := lookupTrimmed(lookup, EnvLineageMaxDepth); ok {
		depth, err := strconv.Atoi(v)
		if err != nil || depth <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s: invalid value %q, keeping %d", EnvLineageMaxDepth, v, c.LineageMaxDepth))
		} else {
			c.LineageMaxDepth = depth
		}
	}
	if v, ok := lookupTrimmed(lookup, EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, EnvLogFormat); ok {
		c.LogFormat = strings.ToLower(v)
	}

	return warnings
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc_addr is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
		if c.MemorySeedReloadInterval < 0 {
			errs = append(errs, errors.New("memory_seed_reload_interval must be >= 0"))
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres_dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaGroupID == "" {
		errs = append(errs, errors.New("kafka_group_id is required when kafka_brokers are set"))
	}
	if c.KafkaMaxRetries < 0 {
		errs = append(errs, errors.New("kafka_max_retries must be >= 0"))
	}
	if _, err := c.ValidationConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Errorf("unsupported log format %q (use text|json)", c.LogFormat))
	}

	return errors.Join(errs...)
}

// ValidationConfig переводит настройки цен в конфигурацию конвейера.
func (c Config) ValidationConfig() (validation.Config, error) {
	rounding, err := pricing.ParseRounding(c.PriceRounding)
	if err != nil {
		return validation.Config{}, fmt.Errorf("price_rounding: %w", err)
	}
	lineRounding, err := pricing.ParseRounding(c.LineRounding)
	if err != nil {
		return validation.Config{}, fmt.Errorf("line_rounding: %w", err)
	}
	if c.LineageMaxDepth <= 0 {
		return validation.Config{}, errors.New("lineage_max_depth must be > 0")
	}
	return validation.Config{
		Rounding:        rounding,
		LineRounding:    lineRounding,
		MaxLineageDepth: c.LineageMaxDepth,
	}, nil
}

// KafkaEnabled сообщает, включена ли асинхронная проверка.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ConfigureLogger применяет уровень и формат к стандартному логгеру logrus.
func ConfigureLogger(cfg Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if cfg.LogFormat == LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func lookupTrimmed(lookup LookupEnv, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", v)
	}
}
