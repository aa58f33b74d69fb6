// Package discord implements the platform interfaces over discordgo and feeds
// gateway events to the bot router.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/bot"
	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/service"
)

const (
	intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	// handlerTimeout bounds the work done for one gateway event.
	handlerTimeout = 30 * time.Second
	// cachedMessages per channel keep deleted and edited messages auditable.
	cachedMessages = 200
)

// Session is a gateway connection that doubles as the platform implementation.
type Session struct {
	dg      *discordgo.Session
	guildID string
	logger  *zap.Logger

	mu       sync.Mutex
	base     context.Context
	cancel   context.CancelFunc
	removers []func()
}

// New prepares a session. Nothing connects until Open.
func New(cfg config.DiscordConfig, logger *zap.Logger) (*Session, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = intents
	dg.State.MaxMessageCount = cachedMessages
	dg.State.TrackVoice = true
	return &Session{
		dg:      dg,
		guildID: cfg.GuildID,
		logger:  logger.Named("discord"),
		base:    context.Background(),
		cancel:  func() {},
	}, nil
}

// Attach routes gateway events to router.
func (s *Session) Attach(router *bot.Router) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removers = append(s.removers,
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.Ready) { s.onReady(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildCreate) { s.onGuildCreate(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.Disconnect) { s.onDisconnect(router) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) { s.onInteraction(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageCreate) { s.onMessageCreate(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageUpdate) { s.onMessageUpdate(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageDelete) { s.onMessageDelete(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) { s.onVoiceState(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) { s.onMemberAdd(router, e) }),
		s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberRemove) { s.onMemberRemove(router, e) }),
	)
}

// Open connects to the gateway. Handlers run with contexts derived from ctx.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.base, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close detaches handlers and disconnects.
func (s *Session) Close() error {
	s.mu.Lock()
	for _, remove := range s.removers {
		remove()
	}
	s.removers = nil
	s.cancel()
	s.mu.Unlock()
	return s.dg.Close()
}

func (s *Session) eventContext() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	base := s.base
	s.mu.Unlock()
	return context.WithTimeout(base, handlerTimeout)
}

func (s *Session) onReady(router *bot.Router, e *discordgo.Ready) {
	ctx, cancel := s.eventContext()
	defer cancel()
	if err := s.registerCommands(ctx, e.User.ID); err != nil {
		s.logger.Error("failed to register commands", zap.Error(err))
		router.AdapterError(ctx, err)
	}
	router.Ready(ctx, tag(e.User))
}

func (s *Session) onGuildCreate(router *bot.Router, e *discordgo.GuildCreate) {
	if s.guildID != "" && e.ID != s.guildID {
		return
	}
	ctx, cancel := s.eventContext()
	defer cancel()
	router.GuildAvailable(ctx, e.ID)
}

func (s *Session) onDisconnect(router *bot.Router) {
	ctx, cancel := s.eventContext()
	defer cancel()
	router.AdapterError(ctx, errors.New("gateway connection lost"))
}

func (s *Session) registerCommands(ctx context.Context, appID string) error {
	_, err := s.dg.ApplicationCommandBulkOverwrite(appID, s.guildID, toApplicationCommands(bot.Commands()), discordgo.WithContext(ctx))
	return err
}

func (s *Session) onInteraction(router *bot.Router, e *discordgo.InteractionCreate) {
	ctx, cancel := s.eventContext()
	defer cancel()
	in := e.Interaction
	req := requestFrom(in)
	resp := newResponder(s.dg, in)

	switch in.Type {
	case discordgo.InteractionApplicationCommand:
		router.HandleCommand(ctx, resp, req, commandFrom(in.ApplicationCommandData()))
	case discordgo.InteractionMessageComponent:
		router.HandleButton(ctx, resp, req, in.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		data := in.ModalSubmitData()
		router.HandleModal(ctx, resp, req, data.CustomID, modalValues(data))
	}
}

func (s *Session) onMessageCreate(router *bot.Router, e *discordgo.MessageCreate) {
	if e.GuildID == "" {
		return
	}
	ctx, cancel := s.eventContext()
	defer cancel()
	router.HandleMessage(ctx, fromMessage(e.Message))
}

func (s *Session) onMessageUpdate(router *bot.Router, e *discordgo.MessageUpdate) {
	if e.GuildID == "" || e.BeforeUpdate == nil {
		return
	}
	author := e.Author
	if author == nil {
		author = e.BeforeUpdate.Author
	}
	ctx, cancel := s.eventContext()
	defer cancel()
	router.HandleMessageEdit(ctx, service.MessageEdit{
		MessageID:   e.ID,
		ChannelID:   e.ChannelID,
		ChannelName: s.channelName(e.ChannelID),
		URL:         messageURL(e.GuildID, e.ChannelID, e.ID),
		Author:      fromAuthor(author),
		OldContent:  e.BeforeUpdate.Content,
		NewContent:  e.Content,
	})
}

func (s *Session) onMessageDelete(router *bot.Router, e *discordgo.MessageDelete) {
	before := e.BeforeDelete
	if e.GuildID == "" || before == nil {
		return
	}
	ctx, cancel := s.eventContext()
	defer cancel()
	router.HandleMessageDelete(ctx, service.MessageRemoval{
		MessageID:   e.ID,
		ChannelID:   e.ChannelID,
		ChannelName: s.channelName(e.ChannelID),
		Author:      fromAuthor(before.Author),
		Content:     before.Content,
	})
}

func (s *Session) onVoiceState(router *bot.Router, e *discordgo.VoiceStateUpdate) {
	oldChannel := ""
	if e.BeforeUpdate != nil {
		oldChannel = e.BeforeUpdate.ChannelID
	}
	member := e.Member
	if member == nil {
		member, _ = s.dg.State.Member(e.GuildID, e.UserID)
	}
	ctx, cancel := s.eventContext()
	defer cancel()
	router.HandleVoiceState(ctx, service.VoiceStateChange{
		GuildID:      e.GuildID,
		Member:       fromMember(member, &discordgo.User{ID: e.UserID}),
		OldChannelID: oldChannel,
		NewChannelID: e.ChannelID,
	})
}

func (s *Session) onMemberAdd(router *bot.Router, e *discordgo.GuildMemberAdd) {
	ctx, cancel := s.eventContext()
	defer cancel()
	router.HandleMemberJoin(ctx, e.GuildID, fromMember(e.Member, nil))
}

func (s *Session) onMemberRemove(router *bot.Router, e *discordgo.GuildMemberRemove) {
	ctx, cancel := s.eventContext()
	defer cancel()
	router.HandleMemberLeave(ctx, e.GuildID, fromMember(e.Member, nil))
}

func (s *Session) channelName(channelID string) string {
	if ch, err := s.dg.State.Channel(channelID); err == nil {
		return ch.Name
	}
	return ""
}

func requestFrom(in *discordgo.Interaction) interaction.Request {
	req := interaction.Request{GuildID: in.GuildID, ChannelID: in.ChannelID, User: fromMember(in.Member, in.User)}
	if in.Member != nil {
		req.Permissions = fromDiscordPermissions(in.Member.Permissions)
	}
	return req
}
