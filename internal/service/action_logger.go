package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/observability"
	"github.com/majstudio/community-bot/internal/repository"
)

// ActionLogger appends audited actions to the capped JSON log and announces them
// to subscribers (log channel mirror, Postgres archive).
type ActionLogger struct {
	logs       repository.ActionLogRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ActionLoggerDependencies bundles collaborators for the action logger.
type ActionLoggerDependencies struct {
	Logs       repository.ActionLogRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewActionLogger constructs the logger.
func NewActionLogger(deps ActionLoggerDependencies) *ActionLogger {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionLogger{
		logs:       deps.Logs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.Named("action_log"),
		now:        time.Now,
	}
}

// Record stamps and stores an entry. Failures are logged and never returned.
func (a *ActionLogger) Record(ctx context.Context, action string, details domain.Details) {
	if details == nil {
		details = domain.Details{}
	}
	entry := domain.LogEntry{
		Timestamp: a.now().UTC().Truncate(time.Millisecond),
		Action:    action,
		Details:   details,
	}

	if err := a.logs.Append(ctx, entry, domain.MaxLogEntries); err != nil {
		a.logger.Error("failed to persist action", zap.String("action", action), zap.Error(err))
		a.metrics.RecordError("action_log", "persist")
	}
	a.metrics.RecordEvent("action", action)

	publishEvent(ctx, a.dispatcher, events.NewEvent(
		events.EventActionRecorded,
		details.String("ticketId"),
		events.Actor{UserID: details.String("userId"), UserTag: details.String("userTag")},
		events.ActionRecordedPayload{Entry: entry},
	))
}

// Recent returns up to n entries, newest first.
func (a *ActionLogger) Recent(ctx context.Context, n int) []domain.LogEntry {
	return a.logs.Recent(ctx, n)
}

var _ ActionRecorder = (*ActionLogger)(nil)
