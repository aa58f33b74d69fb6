package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	startedAt    time.Time
	eventCount   map[string]int64
	errorCount   map[string]int64
	requestCount map[string]int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Events        map[string]int64 `json:"events"`
	Errors        map[string]int64 `json:"errors"`
	Requests      map[string]int64 `json:"requests"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:    time.Now(),
		eventCount:   make(map[string]int64),
		errorCount:   make(map[string]int64),
		requestCount: make(map[string]int64),
	}
}

// RecordEvent counts a handled platform event by kind ("button", "command", ...) and outcome.
func (m *Metrics) RecordEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[kind+"|"+outcome]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(kind, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[kind+"|"+code]++
}

// RecordRequest increments counters for ops HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[path+"|"+method+"|"+strconv.Itoa(status)]++
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Events: map[string]int64{}, Errors: map[string]int64{}, Requests: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		StartedAt:     m.startedAt.UTC(),
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Events:        copyCounts(m.eventCount),
		Errors:        copyCounts(m.errorCount),
		Requests:      copyCounts(m.requestCount),
	}
}

// Keys returns the sorted keys of a counter map.
func Keys(counts map[string]int64) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// RequestLogger logs each ops request and feeds the request counters.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		metrics.RecordRequest(c.Route().Path, c.Method(), status)
		logger.Debug("ops request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
