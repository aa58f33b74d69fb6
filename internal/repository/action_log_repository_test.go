package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/domain"
)

func entry(i int) domain.LogEntry {
	return domain.LogEntry{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second),
		Action:    fmt.Sprintf("A%d", i),
		Details:   domain.Details{"n": fmt.Sprint(i)},
	}
}

func TestActionLogEvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewActionLogRepository(t.TempDir(), nil)
	require.NoError(t, repo.Init())

	for i := 1; i <= domain.MaxLogEntries; i++ {
		require.NoError(t, repo.Append(ctx, entry(i), domain.MaxLogEntries))
	}
	entries := repo.List(ctx)
	require.Len(t, entries, domain.MaxLogEntries)
	assert.Equal(t, "A1", entries[0].Action)

	require.NoError(t, repo.Append(ctx, entry(1001), domain.MaxLogEntries))
	entries = repo.List(ctx)
	require.Len(t, entries, domain.MaxLogEntries)
	assert.Equal(t, "A2", entries[0].Action, "entry 1 evicted")
	assert.Equal(t, "A1001", entries[len(entries)-1].Action)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Timestamp.Before(entries[i].Timestamp), "order preserved at %d", i)
	}
}

func TestActionLogRecentIsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewActionLogRepository(t.TempDir(), nil)
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Append(ctx, entry(i), domain.MaxLogEntries))
	}

	recent := repo.Recent(ctx, 3)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"A5", "A4", "A3"}, []string{recent[0].Action, recent[1].Action, recent[2].Action})
	assert.Len(t, repo.Recent(ctx, 50), 5)
	assert.Len(t, repo.Recent(ctx, 0), 5)
}

func TestActionLogEmptyWhenMissing(t *testing.T) {
	repo := NewActionLogRepository(t.TempDir(), nil)
	assert.NotNil(t, repo.List(context.Background()))
	assert.Empty(t, repo.Recent(context.Background(), 10))
}

// Concurrent appends from one process are serialized by the document lock, so
// none of them is lost. Separate processes writing the same file can still race.
func TestActionLogConcurrentAppendsWithinProcess(t *testing.T) {
	ctx := context.Background()
	repo := NewActionLogRepository(t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Append(ctx, entry(i), domain.MaxLogEntries))
		}(i)
	}
	wg.Wait()
	assert.Len(t, repo.List(ctx), 25)
}
