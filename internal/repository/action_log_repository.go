package repository

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/persistence"
)

// LogsFile is the action log document name inside the data directory.
const LogsFile = "logs.json"

// ActionLogRepository stores the capped action log, oldest entry first.
type ActionLogRepository interface {
	Init() error
	Append(ctx context.Context, entry domain.LogEntry, max int) error
	List(ctx context.Context) []domain.LogEntry
	Recent(ctx context.Context, n int) []domain.LogEntry
}

type actionLogRepository struct {
	doc *persistence.JSONDocument[[]domain.LogEntry]
}

// NewActionLogRepository builds repository backed by <dataDir>/logs.json.
func NewActionLogRepository(dataDir string, logger *zap.Logger) ActionLogRepository {
	return &actionLogRepository{
		doc: persistence.NewJSONDocument(filepath.Join(dataDir, LogsFile), func() []domain.LogEntry {
			return []domain.LogEntry{}
		}, logger),
	}
}

func (r *actionLogRepository) Init() error {
	return r.doc.Init()
}

// Append adds entry and evicts the oldest entries beyond max.
func (r *actionLogRepository) Append(_ context.Context, entry domain.LogEntry, max int) error {
	return r.doc.Update(func(entries *[]domain.LogEntry) error {
		*entries = append(*entries, entry)
		if max > 0 && len(*entries) > max {
			*entries = append([]domain.LogEntry(nil), (*entries)[len(*entries)-max:]...)
		}
		return nil
	})
}

func (r *actionLogRepository) List(_ context.Context) []domain.LogEntry {
	entries := r.doc.Load()
	if entries == nil {
		return []domain.LogEntry{}
	}
	return entries
}

// Recent returns up to n entries, newest first.
func (r *actionLogRepository) Recent(ctx context.Context, n int) []domain.LogEntry {
	entries := r.List(ctx)
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	result := make([]domain.LogEntry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		result = append(result, entries[i])
	}
	return result
}
