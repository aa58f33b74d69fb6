package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/repository"
)

// TicketCloser performs the shared tail of every ticket close: transcript, record
// removal and delayed channel deletion. A channel can only be closing once.
type TicketCloser struct {
	platform    platform.Platform
	tickets     repository.TicketRepository
	transcripts *TranscriptService
	scheduler   Scheduler
	dispatcher  events.Dispatcher
	delay       time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	closing map[string]struct{}
}

// TicketCloserDependencies bundles collaborators for the closer.
type TicketCloserDependencies struct {
	Platform    platform.Platform
	Tickets     repository.TicketRepository
	Transcripts *TranscriptService
	Scheduler   Scheduler
	Dispatcher  events.Dispatcher
	Delay       time.Duration
	Logger      *zap.Logger
}

// NewTicketCloser constructs the closer.
func NewTicketCloser(deps TicketCloserDependencies) *TicketCloser {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}
	return &TicketCloser{
		platform:    deps.Platform,
		tickets:     deps.Tickets,
		transcripts: deps.Transcripts,
		scheduler:   scheduler,
		dispatcher:  deps.Dispatcher,
		delay:       deps.Delay,
		logger:      logger.Named("ticket_closer"),
		closing:     make(map[string]struct{}),
	}
}

// Delay is the grace period between the closing notice and deletion.
func (c *TicketCloser) Delay() time.Duration {
	return c.delay
}

// Begin marks channelID as closing. It reports false when a close is already pending.
func (c *TicketCloser) Begin(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.closing[channelID]; busy {
		return false
	}
	c.closing[channelID] = struct{}{}
	return true
}

// Abort clears a closing mark after a failed close.
func (c *TicketCloser) Abort(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.closing, channelID)
}

// Closing reports whether a close is pending for channelID.
func (c *TicketCloser) Closing(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.closing[channelID]
	return busy
}

// Close archives the transcript, removes the ticket record and schedules the
// channel deletion. Transcript and deletion failures are logged only; a failure
// to update the store is returned and nothing is deleted.
func (c *TicketCloser) Close(ctx context.Context, channel platform.Channel, actor domain.Member, reason string) (domain.Ticket, error) {
	if c.transcripts != nil {
		if err := c.transcripts.Archive(ctx, channel); err != nil {
			c.logger.Warn("transcript failed, closing without it", zap.String("channel_id", channel.ID), zap.Error(err))
		}
	}

	var removed domain.Ticket
	err := c.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		removed = tickets[channel.ID]
		delete(tickets, channel.ID)
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	publishEvent(ctx, c.dispatcher, events.NewEvent(events.EventTicketClosed, channel.ID, memberActor(actor),
		events.TicketClosedPayload{Type: removed.Type, Status: removed.Status}))

	c.scheduler.After(c.delay, func() {
		c.deleteChannel(channel.ID, reason)
	})
	return removed, nil
}

func (c *TicketCloser) deleteChannel(channelID, reason string) {
	defer c.Abort(channelID)
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := c.platform.DeleteChannel(ctx, channelID, reason); err != nil && !errors.Is(err, platform.ErrNotFound) {
		c.logger.Error("failed to delete ticket channel", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	c.logger.Info("ticket channel deleted", zap.String("channel_id", channelID), zap.String("reason", reason))
}
