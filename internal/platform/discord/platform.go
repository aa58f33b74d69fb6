package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/majstudio/community-bot/internal/platform"
)

// Guild returns the guild from the gateway state, falling back to REST.
func (s *Session) Guild(ctx context.Context, guildID string) (platform.Guild, error) {
	g, err := s.dg.State.Guild(guildID)
	if err != nil {
		g, err = s.dg.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return platform.Guild{}, translateError(err)
		}
	}
	count := g.MemberCount
	if count == 0 {
		count = g.ApproximateMemberCount
	}
	return platform.Guild{ID: g.ID, Name: g.Name, MemberCount: count, SystemChannelID: g.SystemChannelID}, nil
}

func (s *Session) Channel(ctx context.Context, channelID string) (platform.Channel, error) {
	if ch, err := s.dg.State.Channel(channelID); err == nil {
		return fromChannel(ch), nil
	}
	ch, err := s.dg.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Channel{}, translateError(err)
	}
	return fromChannel(ch), nil
}

func (s *Session) CreateChannel(ctx context.Context, guildID string, spec platform.ChannelSpec) (platform.Channel, error) {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if spec.Reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(spec.Reason))
	}
	ch, err := s.dg.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 toChannelType(spec.Kind),
		ParentID:             spec.ParentID,
		PermissionOverwrites: toOverwrites(spec.Overwrites),
	}, opts...)
	if err != nil {
		return platform.Channel{}, translateError(err)
	}
	return fromChannel(ch), nil
}

func (s *Session) DeleteChannel(ctx context.Context, channelID, reason string) error {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	_, err := s.dg.ChannelDelete(channelID, opts...)
	return translateError(err)
}

func (s *Session) SetPermission(ctx context.Context, channelID string, o platform.Overwrite) error {
	err := s.dg.ChannelPermissionSet(channelID, o.TargetID, overwriteType(o.Role),
		toDiscordPermissions(o.Allow), toDiscordPermissions(o.Deny), discordgo.WithContext(ctx))
	return translateError(err)
}

func (s *Session) SendMessage(ctx context.Context, channelID string, msg platform.Message) (string, error) {
	sent, err := s.dg.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", translateError(err)
	}
	return sent.ID, nil
}

// Messages returns up to limit recent messages, newest first.
func (s *Session) Messages(ctx context.Context, channelID string, limit int) ([]platform.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	raw, err := s.dg.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]platform.ChatMessage, 0, len(raw))
	for _, m := range raw {
		out = append(out, fromMessage(m))
	}
	return out, nil
}

// DeleteMessages bulk deletes; the API rejects bulk calls with a single id.
func (s *Session) DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	switch len(messageIDs) {
	case 0:
		return nil
	case 1:
		return translateError(s.dg.ChannelMessageDelete(channelID, messageIDs[0], discordgo.WithContext(ctx)))
	default:
		return translateError(s.dg.ChannelMessagesBulkDelete(channelID, messageIDs, discordgo.WithContext(ctx)))
	}
}

func (s *Session) Role(ctx context.Context, guildID, roleID string) (platform.Role, error) {
	if r, err := s.dg.State.Role(guildID, roleID); err == nil {
		return platform.Role{ID: r.ID, Name: r.Name}, nil
	}
	roles, err := s.dg.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Role{}, translateError(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return platform.Role{}, platform.ErrNotFound
}

func (s *Session) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	m, err := s.dg.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return m.Roles, nil
}

func (s *Session) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return translateError(s.dg.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

// VoiceOccupancy counts members connected to a voice channel according to the gateway state.
func (s *Session) VoiceOccupancy(ctx context.Context, guildID, channelID string) (int, error) {
	if _, err := s.Channel(ctx, channelID); err != nil {
		return 0, err
	}
	g, err := s.dg.State.Guild(guildID)
	if err != nil {
		return 0, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}
	s.dg.State.RLock()
	defer s.dg.State.RUnlock()
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

func (s *Session) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return translateError(s.dg.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx)))
}

func (s *Session) Ready() bool {
	return s.dg.DataReady
}

func (s *Session) Latency() time.Duration {
	return s.dg.HeartbeatLatency()
}

var _ platform.Platform = (*Session)(nil)
