package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/repository"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

// Limits of the /admin listings.
const (
	DefaultLogCount = 10
	MaxLogCount     = 50
	adminPageSize   = 10
)

const memberAccess = platform.PermViewChannel | platform.PermSendMessages | platform.PermReadMessageHistory

// LogReader returns the newest action log entries, newest first.
type LogReader interface {
	Recent(ctx context.Context, n int) []domain.LogEntry
}

// AdminService implements the /admin subcommands.
type AdminService struct {
	platform platform.Platform
	logs     LogReader
	tickets  repository.TicketRepository
	recorder ActionRecorder
	logger   *zap.Logger
}

// AdminDependencies bundles collaborators for /admin.
type AdminDependencies struct {
	Platform   platform.Platform
	Logs       LogReader
	TicketRepo repository.TicketRepository
	Recorder   ActionRecorder
	Logger     *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		platform: deps.Platform,
		logs:     deps.Logs,
		tickets:  deps.TicketRepo,
		recorder: deps.Recorder,
		logger:   logger.Named("admin"),
	}
}

func requireAdministrator(req interaction.Request) error {
	if !req.Permissions.Has(platform.PermAdministrator) {
		return errorutil.NewPermissionError("You need Administrator permission to use this command.")
	}
	return nil
}

func (s *AdminService) adminDetails(req interaction.Request) domain.Details {
	return domain.Details{"adminId": req.User.ID, "adminTag": req.User.Tag}
}

// AddUser grants user access to channel.
func (s *AdminService) AddUser(ctx context.Context, resp platform.Responder, req interaction.Request, channel platform.Channel, user domain.Member) error {
	if err := requireAdministrator(req); err != nil {
		return err
	}
	if err := s.platform.SetPermission(ctx, channel.ID, platform.Overwrite{TargetID: user.ID, Allow: memberAccess}); err != nil {
		s.logger.Error("failed to add user", zap.String("channel_id", channel.ID), zap.String("user_id", user.ID), zap.Error(err))
		return resp.Reply(ctx, notice("❌ Failed to add user to channel. Check permissions and try again."), true)
	}
	if err := resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:       "✅ User Added",
		Description: fmt.Sprintf("Successfully added %s to %s", user.Mention(), channel.Mention()),
		Color:       colorSuccess,
		Timestamp:   platform.Now(),
	}), false); err != nil {
		return err
	}
	details := s.adminDetails(req)
	details["userId"], details["userTag"] = user.ID, user.Tag
	details["channelId"], details["channelName"] = channel.ID, channel.Name
	s.recorder.Record(ctx, domain.ActionAdminAddUser, details)
	return nil
}

// RemoveUser hides channel from user.
func (s *AdminService) RemoveUser(ctx context.Context, resp platform.Responder, req interaction.Request, channel platform.Channel, user domain.Member) error {
	if err := requireAdministrator(req); err != nil {
		return err
	}
	if err := s.platform.SetPermission(ctx, channel.ID, platform.Overwrite{TargetID: user.ID, Deny: platform.PermViewChannel}); err != nil {
		s.logger.Error("failed to remove user", zap.String("channel_id", channel.ID), zap.String("user_id", user.ID), zap.Error(err))
		return resp.Reply(ctx, notice("❌ Failed to remove user from channel. Check permissions and try again."), true)
	}
	if err := resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:       "🚫 User Removed",
		Description: fmt.Sprintf("Successfully removed %s from %s", user.Mention(), channel.Mention()),
		Color:       colorWarning,
		Timestamp:   platform.Now(),
	}), false); err != nil {
		return err
	}
	details := s.adminDetails(req)
	details["userId"], details["userTag"] = user.ID, user.Tag
	details["channelId"], details["channelName"] = channel.ID, channel.Name
	s.recorder.Record(ctx, domain.ActionAdminRemoveUser, details)
	return nil
}

// CreateChannel opens a private text channel shared by user and the requesting admin.
func (s *AdminService) CreateChannel(ctx context.Context, resp platform.Responder, req interaction.Request, name string, user domain.Member, category *platform.Channel) error {
	if err := requireAdministrator(req); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errorutil.NewValidationError("Channel name is required.", nil)
	}
	spec := platform.ChannelSpec{
		Name: name,
		Kind: platform.ChannelText,
		Overwrites: []platform.Overwrite{
			{TargetID: req.GuildID, Role: true, Deny: platform.PermViewChannel},
			{TargetID: user.ID, Allow: memberAccess},
			{TargetID: req.User.ID, Allow: memberAccess | platform.PermManageChannels},
		},
		Reason: "Created by " + req.User.Tag,
	}
	categoryName := "None"
	if category != nil {
		spec.ParentID = category.ID
		categoryName = category.Name
	}
	channel, err := s.platform.CreateChannel(ctx, req.GuildID, spec)
	if err != nil {
		s.logger.Error("failed to create channel", zap.String("name", name), zap.Error(err))
		return resp.Reply(ctx, notice("❌ Failed to create channel. Check permissions and try again."), true)
	}
	if err := resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:       "🆕 Channel Created",
		Description: fmt.Sprintf("Successfully created %s for %s", channel.Mention(), user.Mention()),
		Color:       colorInfo,
		Fields: []platform.Field{
			inline("📝 Channel Name", name),
			inline("👤 Created For", user.Tag),
			inline("📁 Category", categoryName),
		},
		Timestamp: platform.Now(),
	}), false); err != nil {
		return err
	}
	details := s.adminDetails(req)
	details["channelId"], details["channelName"] = channel.ID, channel.Name
	details["forUserId"], details["forUserTag"] = user.ID, user.Tag
	if category != nil {
		details["categoryId"], details["categoryName"] = category.ID, category.Name
	}
	s.recorder.Record(ctx, domain.ActionAdminCreateChannel, details)
	return nil
}

// ViewLogs lists the newest action log entries privately. count is clamped to 1..50
// and defaults to 10; at most ten lines are rendered.
func (s *AdminService) ViewLogs(ctx context.Context, resp platform.Responder, req interaction.Request, count int) error {
	if err := requireAdministrator(req); err != nil {
		return err
	}
	switch {
	case count <= 0:
		count = DefaultLogCount
	case count > MaxLogCount:
		count = MaxLogCount
	}
	recent := s.logs.Recent(ctx, count)
	if len(recent) == 0 {
		return resp.Reply(ctx, notice("📋 No logs found."), true)
	}
	shown := recent
	if len(shown) > adminPageSize {
		shown = shown[:adminPageSize]
	}
	lines := make([]string, 0, len(shown))
	for _, entry := range shown {
		lines = append(lines, fmt.Sprintf("`%s` **%s**", entry.Timestamp.UTC().Format("2006-01-02 15:04:05"), entry.Action))
	}
	return resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:       "📋 Recent Bot Logs",
		Description: fmt.Sprintf("Showing last %d log entries", len(recent)),
		Color:       colorNeutral,
		Fields:      []platform.Field{block("📝 Log Entries", strings.Join(lines, "\n"))},
		Timestamp:   platform.Now(),
	}), true)
}

// Tickets lists open tickets privately, oldest first, ten at most.
func (s *AdminService) Tickets(ctx context.Context, resp platform.Responder, req interaction.Request) error {
	if err := requireAdministrator(req); err != nil {
		return err
	}
	open := OpenTickets(s.tickets.Load(ctx))
	if len(open) == 0 {
		return resp.Reply(ctx, notice("🎫 No open tickets found."), true)
	}
	embed := platform.Embed{
		Title:       "🎫 Open Tickets",
		Description: fmt.Sprintf("Found %d open ticket(s)", len(open)),
		Color:       colorInfo,
		Timestamp:   platform.Now(),
	}
	for i, t := range open {
		if i == adminPageSize {
			embed.Footer = fmt.Sprintf("... and %d more tickets", len(open)-adminPageSize)
			break
		}
		where := "ID: " + t.ChannelID
		if _, err := s.platform.Channel(ctx, t.ChannelID); err == nil {
			where = "<#" + t.ChannelID + ">"
		}
		embed.Fields = append(embed.Fields, inline(
			t.Type.Title()+" Ticket",
			fmt.Sprintf("**Channel:** %s\n**User:** %s\n**Created:** %s", where, t.UserTag, t.CreatedAt.UTC().Format("2006-01-02")),
		))
	}
	return resp.Reply(ctx, platform.Cards(embed), true)
}
