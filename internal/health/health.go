// Package health отдаёт /healthz, /livez и /readyz для сервиса валидации.
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Status: статус компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity упорядочивает статусы: общий статус равен худшему из компонентов.
var severity = map[Status]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

func worst(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

const defaultCheckTimeout = 2 * time.Second

// Check: результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response: тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler хранит зарегистрированные проверки и отвечает на health-запросы.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	version  string
	started  time.Time
	timeout  time.Duration
}

func NewHandler(version string) *Handler {
	return &Handler{
		checkers: make(map[string]Checker),
		version:  version,
		started:  time.Now(),
		timeout:  defaultCheckTimeout,
	}
}

// RegisterChecker добавляет проверку; повторное имя заменяет прежнюю.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки в порядке имён под общим таймаутом.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	checkers := maps.Clone(h.checkers)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := Response{
		Status:        StatusHealthy,
		Checks:        make(map[string]Check, len(checkers)),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	for _, name := range slices.Sorted(maps.Keys(checkers)) {
		check := checkers[name].Check(ctx)
		resp.Checks[name] = check
		resp.Status = worst(resp.Status, check.Status)
	}
	resp.Timestamp = time.Now().UTC()
	return resp
}

// ServeHTTP отвечает JSON со статусом всех компонентов; unhealthy даёт 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.Evaluate(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(resp.Status))
	_ = json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler отвечает 503, пока хранилище или другой критичный компонент недоступен.
// Degraded считается готовностью.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	code := httpStatus(h.Evaluate(r.Context()).Status)
	body := "ready"
	if code != http.StatusOK {
		body = "not ready"
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// LivenessHandler всегда отвечает 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func httpStatus(status Status) int {
	if status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Pinger: компонент с проверкой доступности (хранилище документов).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker проверяет Pinger. Ответ дольше slowAfter помечается degraded.
type PingChecker struct {
	name      string
	pinger    Pinger
	slowAfter time.Duration
}

// NewPingChecker создаёт проверку доступности. slowAfter<=0 отключает degraded.
func NewPingChecker(name string, pinger Pinger, slowAfter time.Duration) *PingChecker {
	return &PingChecker{name: name, pinger: pinger, slowAfter: slowAfter}
}

func (c *PingChecker) Check(ctx context.Context) Check {
	check, elapsed := measure(ctx, c.name, c.pinger.Ping, StatusUnhealthy)
	if check.Status == StatusHealthy && c.slowAfter > 0 && elapsed > c.slowAfter {
		check.Status = StatusDegraded
		check.Message = "slow response"
	}
	return check
}

// FuncChecker оборачивает функцию проверки. Ошибка некритичного компонента даёт degraded,
// критичного: unhealthy.
type FuncChecker struct {
	name     string
	critical bool
	fn       func(ctx context.Context) error
}

func NewFuncChecker(name string, critical bool, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, critical: critical, fn: fn}
}

func (c *FuncChecker) Check(ctx context.Context) Check {
	onError := StatusDegraded
	if c.critical {
		onError = StatusUnhealthy
	}
	check, _ := measure(ctx, c.name, c.fn, onError)
	return check
}

func measure(ctx context.Context, name string, probe func(context.Context) error, onError Status) (Check, time.Duration) {
	started := time.Now()
	err := probe(ctx)
	elapsed := time.Since(started)

	check := Check{Name: name, Status: StatusHealthy, DurationMs: elapsed.Milliseconds()}
	if err != nil {
		check.Status = onError
		check.Message = err.Error()
	}
	return check, elapsed
}
