package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/repository"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

const (
	ticketCreateFailed = "❌ Failed to create ticket channel. Please try again or contact an administrator."
	ticketCloseFailed  = "❌ Failed to close ticket. Please try again or contact an administrator."
)

// TicketService coordinates ticket workflows: creation, the two-step close and
// type-specific initialization.
type TicketService struct {
	platform   platform.Platform
	tickets    repository.TicketRepository
	forms      *FormService
	closer     *TicketCloser
	recorder   ActionRecorder
	dispatcher events.Dispatcher
	channels   config.ChannelsConfig
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Platform   platform.Platform
	TicketRepo repository.TicketRepository
	Forms      *FormService
	Closer     *TicketCloser
	Recorder   ActionRecorder
	Dispatcher events.Dispatcher
	Channels   config.ChannelsConfig
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		platform:   deps.Platform,
		tickets:    deps.TicketRepo,
		forms:      deps.Forms,
		closer:     deps.Closer,
		recorder:   deps.Recorder,
		dispatcher: deps.Dispatcher,
		channels:   deps.Channels,
		logger:     logger.Named("tickets"),
		now:        time.Now,
	}
}

// CreateTicket opens a private ticket channel for the requester and records it.
// Configuration problems are reported before any side effect.
func (s *TicketService) CreateTicket(ctx context.Context, req interaction.Request, ticketType domain.TicketType, orderCode string) (platform.Channel, error) {
	categoryID, setting := s.channels.TicketCategory, "Ticket category"
	if ticketType == domain.TicketTypeOrder {
		categoryID, setting = s.channels.OrderCategory, "Order category"
	}
	if !config.IsSet(categoryID) {
		return platform.Channel{}, errorutil.NewConfigurationError(setting)
	}
	if _, err := s.platform.Channel(ctx, categoryID); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return platform.Channel{}, errorutil.NewMissingResourceError(setting)
		}
		return platform.Channel{}, err
	}

	channel, err := s.platform.CreateChannel(ctx, req.GuildID, platform.ChannelSpec{
		Name:     domain.TicketChannelName(req.User.Name(), ticketType, orderCode),
		Kind:     platform.ChannelText,
		ParentID: categoryID,
		Overwrites: []platform.Overwrite{
			{TargetID: req.GuildID, Role: true, Deny: platform.PermViewChannel},
			{TargetID: req.User.ID, Allow: platform.PermViewChannel | platform.PermSendMessages | platform.PermReadMessageHistory},
		},
		Reason: fmt.Sprintf("%s ticket for %s", ticketType, req.User.Tag),
	})
	if err != nil {
		return platform.Channel{}, fmt.Errorf("create ticket channel: %w", err)
	}

	ticket := domain.Ticket{
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		UserID:      req.User.ID,
		UserTag:     req.User.Tag,
		Type:        ticketType,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
		OrderCode:   orderCode,
	}
	if err := s.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		tickets[channel.ID] = ticket
		return nil
	}); err != nil {
		s.logger.Error("failed to persist ticket, removing channel", zap.String("channel_id", channel.ID), zap.Error(err))
		if delErr := s.platform.DeleteChannel(ctx, channel.ID, "Ticket could not be saved"); delErr != nil {
			s.logger.Warn("failed to remove orphan ticket channel", zap.String("channel_id", channel.ID), zap.Error(delErr))
		}
		return platform.Channel{}, fmt.Errorf("save ticket: %w", err)
	}

	details := req.Details()
	details["ticketId"] = channel.ID
	details["type"] = string(ticketType)
	if orderCode != "" {
		details["orderCode"] = orderCode
	}
	s.recorder.Record(ctx, domain.ActionTicketCreated, details)
	publishEvent(ctx, s.dispatcher, events.NewEvent(events.EventTicketOpened, channel.ID, actorOf(req),
		events.TicketOpenedPayload{Type: ticketType, OrderCode: orderCode}))

	s.logger.Info("ticket created",
		zap.String("channel_id", channel.ID),
		zap.String("type", string(ticketType)),
		zap.String("user_id", req.User.ID))
	return channel, nil
}

// HandleCreateButton answers a ticket panel button.
func (s *TicketService) HandleCreateButton(ctx context.Context, resp platform.Responder, req interaction.Request, ticketType domain.TicketType) error {
	channel, err := s.CreateTicket(ctx, req, ticketType, "")
	if err != nil {
		if errorutil.IsCode(err, errorutil.CodeConfiguration) {
			return err
		}
		s.logger.Error("ticket creation failed", zap.String("type", string(ticketType)), zap.Error(err))
		return resp.Reply(ctx, notice(ticketCreateFailed), true)
	}

	if err := resp.Reply(ctx, notice(fmt.Sprintf("✅ Your %s ticket has been created: %s", ticketType, channel.Mention())), true); err != nil {
		s.logger.Warn("failed to acknowledge ticket creation", zap.Error(err))
	}
	return s.initialize(ctx, channel, req.User, ticketType)
}

func (s *TicketService) initialize(ctx context.Context, channel platform.Channel, member domain.Member, ticketType domain.TicketType) error {
	if ticketType.HasForm() {
		return s.forms.Start(ctx, channel, member, ticketType)
	}
	if ticketType == domain.TicketTypeSupport {
		_, err := s.platform.SendMessage(ctx, channel.ID, supportWelcome(channel.ID, member))
		return err
	}
	return nil
}

func supportWelcome(channelID string, member domain.Member) platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title: "🔧 Support Ticket",
			Description: fmt.Sprintf("Hello %s! Welcome to your support ticket.\n\n"+
				"Our team will assist you as soon as possible. Please describe your issue in detail and we'll get back to you shortly.", member.Mention()),
			Color: colorInfo,
			Fields: []platform.Field{{
				Name:  "📝 What to include",
				Value: "• Detailed description of your problem\n• Steps you've already tried\n• Screenshots if applicable",
			}},
			Footer:    "Use the close button when your issue is resolved",
			Timestamp: platform.Now(),
		}},
		Buttons: []platform.Button{closeButton(channelID)},
	}
}

// RequestClose shows the confirm/cancel prompt. Nothing is closed yet.
func (s *TicketService) RequestClose(ctx context.Context, resp platform.Responder, req interaction.Request, channelID string) error {
	if req.ChannelID != channelID {
		return resp.Reply(ctx, notice("❌ This button is for a different channel."), true)
	}
	return resp.Reply(ctx, platform.Message{
		Embeds: []platform.Embed{{
			Title:       "🔒 Close Ticket",
			Description: "Are you sure you want to close this ticket?\n\n**This action cannot be undone!**\nA transcript will be saved for reference.",
			Color:       colorWarning,
			Timestamp:   platform.Now(),
		}},
		Buttons: []platform.Button{
			{CustomID: interaction.ConfirmClose(channelID), Label: "✅ Yes, Close Ticket", Style: platform.ButtonDanger},
			{CustomID: interaction.CancelClose(channelID), Label: "❌ Cancel", Style: platform.ButtonSecondary},
		},
	}, false)
}

// ConfirmClose archives and removes the ticket, then deletes the channel after
// the grace delay. A second confirmation while the close is pending is ignored.
// Channels without a ticket record are never touched.
func (s *TicketService) ConfirmClose(ctx context.Context, resp platform.Responder, req interaction.Request, channelID string) error {
	if req.ChannelID != channelID {
		return resp.Reply(ctx, notice("❌ This confirmation is for a different channel."), true)
	}
	if !s.closer.Begin(channelID) {
		return resp.Reply(ctx, notice("⏳ This ticket is already being closed."), true)
	}
	ticket, ok := s.tickets.Get(ctx, channelID)
	if !ok {
		s.closer.Abort(channelID)
		return resp.Reply(ctx, notice("❌ Ticket data not found."), true)
	}
	if err := resp.Defer(ctx, false); err != nil {
		s.closer.Abort(channelID)
		return err
	}

	channel, err := s.platform.Channel(ctx, channelID)
	if err != nil {
		channel = platform.Channel{ID: channelID, GuildID: req.GuildID}
	}
	if channel.Name == "" {
		channel.Name = ticket.ChannelName
	}

	if _, err := s.closer.Close(ctx, channel, req.User, "Ticket closed"); err != nil {
		s.closer.Abort(channelID)
		s.logger.Error("failed to close ticket", zap.String("channel_id", channelID), zap.Error(err))
		return resp.Edit(ctx, notice(ticketCloseFailed))
	}

	details := req.Details()
	details["ticketId"] = channelID
	details["channelName"] = channel.Name
	s.recorder.Record(ctx, domain.ActionTicketClosed, details)

	return resp.Edit(ctx, notice(fmt.Sprintf("✅ Ticket will be closed in %d seconds...", int(s.closer.Delay().Seconds()))))
}

// CancelClose replaces the prompt with a notice and removes its buttons.
func (s *TicketService) CancelClose(ctx context.Context, resp platform.Responder, _ interaction.Request, _ string) error {
	return resp.Update(ctx, platform.Message{
		Embeds: []platform.Embed{{
			Title:       "✅ Close Cancelled",
			Description: "The ticket close operation has been cancelled. The ticket remains open.",
			Color:       colorSuccess,
			Timestamp:   platform.Now(),
		}},
		ClearButtons: true,
	})
}

// OpenTickets lists tickets still open, oldest first.
func (s *TicketService) OpenTickets(ctx context.Context) []domain.Ticket {
	return OpenTickets(s.tickets.Load(ctx))
}

// OpenTickets filters a ticket mapping to open tickets, oldest first.
func OpenTickets(tickets map[string]domain.Ticket) []domain.Ticket {
	open := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == domain.TicketStatusOpen {
			open = append(open, t)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ChannelID < open[j].ChannelID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	return open
}
