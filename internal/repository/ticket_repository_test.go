package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/domain"
)

func sampleTickets() map[string]domain.Ticket {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	submitted := created.Add(10 * time.Minute)
	return map[string]domain.Ticket{
		"100": {
			ChannelID: "100", ChannelName: "jane-support", UserID: "u1", UserTag: "jane#0001",
			Type: domain.TicketTypeSupport, Status: domain.TicketStatusOpen, CreatedAt: created,
		},
		"200": {
			ChannelID: "200", ChannelName: "bob-join", UserID: "u2", UserTag: "bob",
			Type: domain.TicketTypeJoin, Status: domain.TicketStatusSubmitted, CreatedAt: created, SubmittedAt: &submitted,
			FormData: map[string]string{"email": "a@b.com", "motivation": "X", "role": "dev", "knowledge": "Go", "additional": ""},
		},
		"300": {
			ChannelID: "300", UserID: "u3", UserTag: "kai", Type: domain.TicketTypePartnership,
			Status: domain.TicketStatusOpen, CreatedAt: created, CurrentStep: "partnership_need",
			FormData: map[string]string{"company_name": "Acme"},
		},
		"400": {
			ChannelID: "400", ChannelName: "order-ab12", UserID: "u4", UserTag: "lee", Type: domain.TicketTypeOrder,
			Status: domain.TicketStatusOpen, CreatedAt: created, OrderCode: "AB12",
		},
	}
}

func TestTicketRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(t.TempDir(), nil)
	require.NoError(t, repo.Init())
	assert.Empty(t, repo.Load(ctx))

	require.NoError(t, repo.Save(ctx, sampleTickets()))
	first := repo.Load(ctx)
	assert.Equal(t, sampleTickets(), first)

	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, first, repo.Load(ctx), "save(load()) is a fixed point")
}

func TestTicketRepositoryAbsentOrCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewTicketRepository(dir, nil)
	assert.Empty(t, repo.Load(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, TicketsFile), []byte(`{"100": [`), 0o644))
	assert.Empty(t, repo.Load(ctx))
}

func TestTicketRepositoryFillsChannelIDFromKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	legacy := `{"555": {"userId": "u1", "userTag": "x", "type": "support", "status": "open", "createdAt": "2026-01-02T03:04:05.000Z"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, TicketsFile), []byte(legacy), 0o644))

	ticket, ok := NewTicketRepository(dir, nil).Get(ctx, "555")
	require.True(t, ok)
	assert.Equal(t, "555", ticket.ChannelID)
	assert.Equal(t, domain.TicketTypeSupport, ticket.Type)
}

func TestTicketRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(t.TempDir(), nil)
	require.NoError(t, repo.Save(ctx, sampleTickets()))

	require.NoError(t, repo.Update(ctx, func(tickets map[string]domain.Ticket) error {
		delete(tickets, "100")
		return nil
	}))
	_, ok := repo.Get(ctx, "100")
	assert.False(t, ok)

	err := repo.Update(ctx, func(tickets map[string]domain.Ticket) error {
		delete(tickets, "200")
		return errors.New("abort")
	})
	require.Error(t, err)
	_, ok = repo.Get(ctx, "200")
	assert.True(t, ok, "failed update leaves the document untouched")
}
