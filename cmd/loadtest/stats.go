package main

import (
	"math"
	"slices"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
)

const methodValidate = "ValidateOrder"

// rejectionCodes: коды, которыми сервис отклоняет заказ. Для ValidateOrder это ответ, а не сбой.
var rejectionCodes = map[codes.Code]bool{
	codes.FailedPrecondition: true,
	codes.NotFound:           true,
	codes.InvalidArgument:    true,
}

type latencySummary struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type seriesReport struct {
	Total     int64            `json:"total"`
	OK        int64            `json:"ok"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time    `json:"started_at"`
	DurationSeconds float64      `json:"duration_seconds"`
	RPS             float64      `json:"rps"`
	RejectedOrders  int64        `json:"rejected_orders"`
	Scenarios       seriesReport `json:"scenarios"`
	Calls           seriesReport `json:"validate_order"`
}

type series struct {
	ok        int64
	failed    int64
	codes     map[codes.Code]int64
	latencies []time.Duration
}

func (s *series) add(code codes.Code, ok bool, latency time.Duration) {
	if s.codes == nil {
		s.codes = make(map[codes.Code]int64)
	}
	if ok {
		s.ok++
	} else {
		s.failed++
	}
	s.codes[code]++
	s.latencies = append(s.latencies, latency)
}

func (s *series) report() seriesReport {
	byName := make(map[string]int64, len(s.codes))
	for code, count := range s.codes {
		byName[code.String()] = count
	}
	total := s.ok + s.failed
	return seriesReport{
		Total:     total,
		OK:        s.ok,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, total),
		Codes:     byName,
		LatencyMs: summarize(s.latencies),
	}
}

// collector копит результаты вызовов и сценариев из всех воркеров.
type collector struct {
	mu        sync.Mutex
	scenarios series
	calls     series
	rejected  int64
}

func newCollector() *collector {
	return &collector{}
}

func (c *collector) observeCall(code codes.Code, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rejected := rejectionCodes[code]
	if rejected {
		c.rejected++
	}
	c.calls.add(code, code == codes.OK || rejected, latency)
}

func (c *collector) observeScenario(code codes.Code, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scenarios.add(code, code == codes.OK, latency)
}

func (c *collector) report(started time.Time, elapsed time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := report{
		StartedAt:       started.UTC(),
		DurationSeconds: elapsed.Seconds(),
		RejectedOrders:  c.rejected,
		Scenarios:       c.scenarios.report(),
		Calls:           c.calls.report(),
	}
	if elapsed > 0 {
		r.RPS = float64(r.Scenarios.Total) / elapsed.Seconds()
	}
	return r
}

func summarize(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return latencySummary{
		Min: millis(sorted[0]),
		Avg: millis(sum / time.Duration(len(sorted))),
		P50: millis(nearestRank(sorted, 50)),
		P95: millis(nearestRank(sorted, 95)),
		P99: millis(nearestRank(sorted, 99)),
		Max: millis(sorted[len(sorted)-1]),
	}
}

// nearestRank: перцентиль по методу ближайшего ранга, sorted отсортирован по возрастанию.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}
