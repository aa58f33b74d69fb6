package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
)

// HealthUserAgent identifies the periodic probe to the order API.
const HealthUserAgent = "Maj-Studio-Bot-Health-Check"

const (
	healthCheckTimeout   = 10 * time.Second
	healthCommandTimeout = 5 * time.Second
	healthLogInterval    = time.Hour
)

type apiState int

const (
	apiUnknown apiState = iota
	apiOnline
	apiOffline
)

// ProbeResult is one health probe outcome.
type ProbeResult struct {
	Healthy      bool
	Reached      bool
	StatusCode   int
	Service      string
	Timestamp    string
	ResponseTime time.Duration
	Err          error
}

// HealthMonitor polls the order API health endpoint and logs availability transitions.
type HealthMonitor struct {
	endpoint string
	interval time.Duration
	client   *http.Client
	recorder ActionRecorder
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       apiState
	lastCheckAt time.Time

	cron    *cron.Cron
	initial sync.WaitGroup
}

// HealthMonitorDependencies bundles collaborators for the monitor.
type HealthMonitorDependencies struct {
	Endpoint string
	Interval time.Duration
	Client   *http.Client
	Recorder ActionRecorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewHealthMonitor constructs a monitor. It does nothing until Start.
func NewHealthMonitor(deps HealthMonitorDependencies) *HealthMonitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := deps.Client
	if client == nil {
		client = &http.Client{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &HealthMonitor{
		endpoint: deps.Endpoint,
		interval: interval,
		client:   client,
		recorder: deps.Recorder,
		logger:   logger.Named("health_monitor"),
		now:      now,
	}
}

// Endpoint returns the probed URL.
func (m *HealthMonitor) Endpoint() string {
	return m.endpoint
}

// Start runs one check immediately and then every interval until Stop.
func (m *HealthMonitor) Start(ctx context.Context) error {
	if m.endpoint == "" {
		m.logger.Info("health endpoint not configured, monitor disabled")
		return nil
	}
	c := cron.New()
	run := func() {
		if ctx.Err() == nil {
			m.Check(ctx)
		}
	}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.interval), run); err != nil {
		return fmt.Errorf("schedule health check: %w", err)
	}
	m.cron = c
	c.Start()
	m.initial.Add(1)
	go func() {
		defer m.initial.Done()
		run()
	}()
	m.logger.Info("health monitor started", zap.Duration("interval", m.interval), zap.String("endpoint", m.endpoint))
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (m *HealthMonitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.initial.Wait()
	m.logger.Info("health monitor stopped")
}

// Check probes once and logs RESTORED on a transition to online, FAILURE on a
// transition to offline and CHECK at most hourly while online.
func (m *HealthMonitor) Check(ctx context.Context) ProbeResult {
	result := Probe(ctx, m.client, m.endpoint, HealthUserAgent, healthCheckTimeout)

	m.mu.Lock()
	previous := m.state
	now := m.now()
	var (
		action  string
		details domain.Details
	)
	if result.Healthy {
		m.state = apiOnline
		switch {
		case previous != apiOnline:
			action = domain.ActionAPIHealthRestored
			details = domain.Details{
				"status":       "online",
				"service":      result.Service,
				"responseTime": formatMillis(result.ResponseTime),
				"timestamp":    result.Timestamp,
				"endpoint":     m.endpoint,
			}
			m.lastCheckAt = now
		case now.Sub(m.lastCheckAt) >= healthLogInterval:
			action = domain.ActionAPIHealthCheck
			details = domain.Details{
				"status":       "online",
				"service":      result.Service,
				"responseTime": formatMillis(result.ResponseTime),
				"uptime":       "continuous",
				"endpoint":     m.endpoint,
			}
			m.lastCheckAt = now
		}
	} else {
		m.state = apiOffline
		if previous != apiOffline {
			lastOnline := "unknown"
			if previous == apiOnline {
				lastOnline = now.UTC().Format(time.RFC3339Nano)
			}
			action = domain.ActionAPIHealthFailure
			details = domain.Details{
				"status":     "offline",
				"error":      probeError(result),
				"errorCode":  probeErrorCode(result),
				"endpoint":   m.endpoint,
				"lastOnline": lastOnline,
			}
		}
	}
	m.mu.Unlock()

	if action != "" {
		m.logger.Info("api availability", zap.String("action", action), zap.Bool("healthy", result.Healthy))
		m.recorder.Record(ctx, action, details)
	}
	return result
}

// Online reports the last observed state. It is false until the first successful check.
func (m *HealthMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == apiOnline
}

// Probe performs one GET against endpoint. Healthy means HTTP 200 with {"status":"ok"}.
func Probe(ctx context.Context, client *http.Client, endpoint, userAgent string, timeout time.Duration) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ProbeResult{Err: err}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return ProbeResult{Err: err, ResponseTime: time.Since(started)}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	result := ProbeResult{Reached: true, StatusCode: resp.StatusCode, ResponseTime: time.Since(started)}

	var payload struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Timestamp string `json:"timestamp"`
	}
	_ = json.Unmarshal(body, &payload)
	result.Service = payload.Service
	result.Timestamp = payload.Timestamp
	result.Healthy = resp.StatusCode == http.StatusOK && payload.Status == "ok"
	if !result.Healthy {
		result.Err = fmt.Errorf("unexpected response: %d", resp.StatusCode)
	}
	return result
}

func probeError(r ProbeResult) string {
	if r.Err == nil {
		return unknown
	}
	return r.Err.Error()
}

func probeErrorCode(r ProbeResult) string {
	switch {
	case errors.Is(r.Err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case r.Reached:
		return fmt.Sprintf("HTTP_%d", r.StatusCode)
	default:
		return "ECONNREFUSED"
	}
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// HealthReporter answers the /health command.
type HealthReporter struct {
	platform platform.Platform
	monitor  *HealthMonitor
	client   *http.Client
}

// NewHealthReporter builds the /health command handler.
func NewHealthReporter(p platform.Platform, monitor *HealthMonitor, client *http.Client) *HealthReporter {
	if client == nil {
		client = &http.Client{}
	}
	return &HealthReporter{platform: p, monitor: monitor, client: client}
}

// Report shows bot latency and a fresh API probe.
func (h *HealthReporter) Report(ctx context.Context, resp platform.Responder) error {
	started := time.Now()
	if err := resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:       "🏥 System Health Status",
		Description: "Checking system status...",
		Color:       0xffff00,
		Timestamp:   platform.Now(),
	}), false); err != nil {
		return err
	}
	responseTime := time.Since(started)

	apiStatus, apiPing, service, footer := "🔴 Offline", "N/A", unknown, "All systems checked"
	color := colorError
	endpoint := ""
	if h.monitor != nil {
		endpoint = h.monitor.Endpoint()
	}
	if endpoint == "" {
		footer = "Error: health endpoint not configured"
	} else {
		result := Probe(ctx, h.client, endpoint, "", healthCommandTimeout)
		switch {
		case result.Healthy:
			apiStatus, apiPing, color = "🟢 Online", formatMillis(result.ResponseTime), colorSuccess
			service = platform.FieldValue(result.Service, unknown)
		case result.Reached:
			apiStatus, apiPing, color = "🟡 Partial", formatMillis(result.ResponseTime), 0xffff00
		default:
			footer = "Error: " + probeErrorCode(result)
		}
	}

	return resp.Edit(ctx, platform.Cards(platform.Embed{
		Title:       "🏥 System Health Status",
		Description: "Current status of bot and connected services",
		Color:       color,
		Fields: []platform.Field{
			inline("🤖 Bot Status", "🟢 Online"),
			inline("📡 Bot Ping", formatMillis(h.platform.Latency())),
			inline("⚡ Response Time", formatMillis(responseTime)),
			inline("🔗 API Backend", apiStatus),
			inline("📊 API Ping", apiPing),
			inline("🏷️ Service", service),
		},
		Footer:    footer,
		Timestamp: platform.Now(),
	}))
}
