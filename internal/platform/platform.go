// Package platform describes the chat capabilities the bot relies on, independent
// of any client library. The discord subpackage implements it over discordgo.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a channel, role, message or member does not exist.
var ErrNotFound = errors.New("platform: not found")

// ChannelKind distinguishes the channel types the bot creates or inspects.
type ChannelKind int

const (
	ChannelText ChannelKind = iota + 1
	ChannelVoice
	ChannelCategory
)

// Channel is a guild channel.
type Channel struct {
	ID       string
	GuildID  string
	Name     string
	ParentID string
	Kind     ChannelKind
}

// Mention renders the platform channel mention.
func (c Channel) Mention() string {
	return "<#" + c.ID + ">"
}

// Permission is a bitset of channel permissions.
type Permission int64

const (
	PermViewChannel Permission = 1 << iota
	PermSendMessages
	PermReadMessageHistory
	PermConnect
	PermManageChannels
	PermMoveMembers
	PermMuteMembers
	PermDeafenMembers
	PermManageMessages
	PermAdministrator
)

// Has reports whether every bit of want is present.
func (p Permission) Has(want Permission) bool {
	if p&PermAdministrator != 0 {
		return true
	}
	return p&want == want
}

// Overwrite grants or denies permissions to a member or role on one channel.
type Overwrite struct {
	TargetID string
	Role     bool
	Allow    Permission
	Deny     Permission
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name       string
	Kind       ChannelKind
	ParentID   string
	Overwrites []Overwrite
	Reason     string
}

// Guild is the server the bot runs in.
type Guild struct {
	ID              string
	Name            string
	MemberCount     int
	SystemChannelID string
}

// Role is a guild role.
type Role struct {
	ID   string
	Name string
}

// Author identifies who wrote a chat message.
type Author struct {
	ID        string
	Tag       string
	Bot       bool
	AvatarURL string
}

// ChatMessage is a message read back from a channel.
type ChatMessage struct {
	ID          string
	ChannelID   string
	Author      Author
	Content     string
	Embeds      []Embed
	Attachments []string
	CreatedAt   time.Time
}

// Platform is the set of chat operations services depend on.
type Platform interface {
	Ready() bool
	Latency() time.Duration

	Guild(ctx context.Context, guildID string) (Guild, error)
	Channel(ctx context.Context, channelID string) (Channel, error)
	CreateChannel(ctx context.Context, guildID string, spec ChannelSpec) (Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SetPermission(ctx context.Context, channelID string, overwrite Overwrite) error

	SendMessage(ctx context.Context, channelID string, msg Message) (string, error)
	Messages(ctx context.Context, channelID string, limit int) ([]ChatMessage, error)
	DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error

	Role(ctx context.Context, guildID, roleID string) (Role, error)
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error

	VoiceOccupancy(ctx context.Context, guildID, channelID string) (int, error)
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
}

// Responder answers a single interaction. Reply or Defer must come first; Edit
// replaces the deferred or initial reply; Update edits the message carrying the
// clicked button.
type Responder interface {
	Reply(ctx context.Context, msg Message, ephemeral bool) error
	Defer(ctx context.Context, ephemeral bool) error
	Edit(ctx context.Context, msg Message) error
	FollowUp(ctx context.Context, msg Message, ephemeral bool) error
	Update(ctx context.Context, msg Message) error
	ShowModal(ctx context.Context, modal Modal) error
	Acknowledged() bool
}
