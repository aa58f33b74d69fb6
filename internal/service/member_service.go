package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
)

// MessageEdit is a user message whose text changed.
type MessageEdit struct {
	MessageID   string
	ChannelID   string
	ChannelName string
	URL         string
	Author      platform.Author
	OldContent  string
	NewContent  string
}

// MessageRemoval is a deleted user message, as far as the platform remembered it.
type MessageRemoval struct {
	MessageID   string
	ChannelID   string
	ChannelName string
	Author      platform.Author
	Content     string
}

// MemberService greets joining members, says goodbye to leaving ones and audits message edits and deletions.
type MemberService struct {
	platform platform.Platform
	recorder ActionRecorder
	channels config.ChannelsConfig
	messages config.MessagesConfig
	logger   *zap.Logger
	now      func() time.Time
}

// MemberDependencies bundles collaborators for member events.
type MemberDependencies struct {
	Platform platform.Platform
	Recorder ActionRecorder
	Channels config.ChannelsConfig
	Messages config.MessagesConfig
	Logger   *zap.Logger
}

// NewMemberService constructs the service.
func NewMemberService(deps MemberDependencies) *MemberService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberService{
		platform: deps.Platform,
		recorder: deps.Recorder,
		channels: deps.Channels,
		messages: deps.Messages,
		logger:   logger.Named("members"),
		now:      time.Now,
	}
}

// Joined logs the join and posts a welcome card in the system channel.
func (s *MemberService) Joined(ctx context.Context, guildID string, member domain.Member) {
	joinedAt := s.now().UTC()
	if member.JoinedAt != nil {
		joinedAt = member.JoinedAt.UTC()
	}
	s.recorder.Record(ctx, domain.ActionMemberJoin, domain.Details{
		"userId":   member.ID,
		"userTag":  member.Tag,
		"guildId":  guildID,
		"joinedAt": joinedAt.Format(time.RFC3339Nano),
	})

	guild, err := s.platform.Guild(ctx, guildID)
	if err != nil {
		s.logger.Warn("failed to resolve guild for welcome", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	if guild.SystemChannelID == "" {
		return
	}
	accountCreated := unknown
	if !member.CreatedAt.IsZero() {
		accountCreated = fmt.Sprintf("<t:%d:R>", member.CreatedAt.Unix())
	}
	embed := platform.Embed{
		Title:       fmt.Sprintf("🎉 Welcome to %s!", s.messages.ServerName),
		Description: fmt.Sprintf("%s\n\nHello %s, welcome to our community!", s.messages.JoinMessage, member.Mention()),
		Color:       colorSuccess,
		Thumbnail:   member.AvatarURL,
		Fields: []platform.Field{
			inline("👤 Member Count", fmt.Sprint(guild.MemberCount)),
			inline("📅 Account Created", accountCreated),
		},
		Footer:    "Make sure to read the rules!",
		Timestamp: platform.Now(),
	}
	if _, err := s.platform.SendMessage(ctx, guild.SystemChannelID, platform.Cards(embed)); err != nil {
		s.logger.Warn("failed to send welcome", zap.String("user_id", member.ID), zap.Error(err))
	}
}

// Left logs the departure and posts a goodbye card in the goodbye channel, or the
// system channel when that is unset or gone.
func (s *MemberService) Left(ctx context.Context, guildID string, member domain.Member) {
	s.recorder.Record(ctx, domain.ActionMemberLeave, domain.Details{
		"userId":  member.ID,
		"userTag": member.Tag,
		"guildId": guildID,
		"leftAt":  s.now().UTC().Format(time.RFC3339Nano),
	})

	target := ""
	if config.IsSet(s.channels.Goodbye) {
		if _, err := s.platform.Channel(ctx, s.channels.Goodbye); err == nil {
			target = s.channels.Goodbye
		}
	}
	guild, err := s.platform.Guild(ctx, guildID)
	if err != nil {
		s.logger.Warn("failed to resolve guild for goodbye", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	if target == "" {
		target = guild.SystemChannelID
	}
	if target == "" {
		return
	}

	joined := unknown
	if member.JoinedAt != nil {
		joined = fmt.Sprintf("<t:%d:R>", member.JoinedAt.Unix())
	}
	embed := platform.Embed{
		Title:       "👋 Member Left",
		Description: fmt.Sprintf("%s\n\n**%s** has left the server.", s.messages.LeaveMessage, member.Tag),
		Color:       colorWarning,
		Thumbnail:   member.AvatarURL,
		Fields: []platform.Field{
			inline("👤 Member Count", fmt.Sprint(guild.MemberCount)),
			inline("📅 Joined Server", joined),
		},
		Timestamp: platform.Now(),
	}
	if _, err := s.platform.SendMessage(ctx, target, platform.Cards(embed)); err != nil {
		s.logger.Warn("failed to send goodbye", zap.String("user_id", member.ID), zap.Error(err))
	}
}

// MessageEdited logs a changed user message. Bot messages, unknown authors and
// edits that leave the text untouched are ignored.
func (s *MemberService) MessageEdited(ctx context.Context, edit MessageEdit) {
	if edit.Author.ID == "" || edit.Author.Bot {
		return
	}
	if edit.OldContent == "" || edit.NewContent == "" || edit.OldContent == edit.NewContent {
		return
	}
	s.recorder.Record(ctx, domain.ActionMessageEdit, domain.Details{
		"userId":      edit.Author.ID,
		"userTag":     edit.Author.Tag,
		"channelId":   edit.ChannelID,
		"channelName": edit.ChannelName,
		"oldContent":  edit.OldContent,
		"newContent":  edit.NewContent,
		"messageId":   edit.MessageID,
		"messageUrl":  edit.URL,
	})
}

// MessageDeleted logs a removed user message that still had text.
func (s *MemberService) MessageDeleted(ctx context.Context, removal MessageRemoval) {
	if removal.Author.ID == "" || removal.Author.Bot || removal.Content == "" {
		return
	}
	s.recorder.Record(ctx, domain.ActionMessageDelete, domain.Details{
		"userId":      removal.Author.ID,
		"userTag":     removal.Author.Tag,
		"channelId":   removal.ChannelID,
		"channelName": removal.ChannelName,
		"content":     removal.Content,
		"messageId":   removal.MessageID,
	})
}
