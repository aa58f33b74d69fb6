package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/repository"
)

// ArchiveService copies every recorded action into Postgres. The JSON log stays
// capped; the archive keeps full history for auditing.
type ArchiveService struct {
	dispatcher events.Dispatcher
	archive    repository.ActionArchiveRepository
	logger     *zap.Logger
}

// NewArchiveService returns nil when no archive repository is configured.
func NewArchiveService(dispatcher events.Dispatcher, archive repository.ActionArchiveRepository, logger *zap.Logger) *ArchiveService {
	if archive == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{dispatcher: dispatcher, archive: archive, logger: logger.Named("archive")}
}

// RegisterHandlers subscribes to action events.
func (s *ArchiveService) RegisterHandlers() {
	if s == nil || s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventActionRecorded, s.handleActionRecorded)
}

func (s *ArchiveService) handleActionRecorded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ActionRecordedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if err := s.archive.Insert(ctx, event.ID, payload.Entry); err != nil {
		return fmt.Errorf("archive %s: %w", payload.Entry.Action, err)
	}
	return nil
}

// Recent lists archived entries, optionally filtered by action.
func (s *ArchiveService) Recent(ctx context.Context, action string, limit int) ([]domain.LogEntry, error) {
	rows, err := s.archive.Recent(ctx, action, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.Entry)
	}
	return entries, nil
}

// Count reports how many entries the archive holds.
func (s *ArchiveService) Count(ctx context.Context) (int64, error) {
	return s.archive.Count(ctx)
}
