// Package platformtest provides recording fakes of the platform interfaces.
package platformtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/majstudio/community-bot/internal/platform"
)

// Sent is a message delivered through SendMessage.
type Sent struct {
	ChannelID string
	Message   platform.Message
}

// PermissionChange is a recorded SetPermission call.
type PermissionChange struct {
	ChannelID string
	Overwrite platform.Overwrite
}

// Move is a recorded MoveMember call.
type Move struct {
	UserID    string
	ChannelID string
}

// Platform is an in-memory platform. Fields may be seeded directly before use;
// Fail injects an error per method name.
type Platform struct {
	mu sync.Mutex

	IsReady bool
	Ping    time.Duration

	Guilds      map[string]platform.Guild
	Channels    map[string]platform.Channel
	Roles       map[string]platform.Role
	HeldRoles   map[string][]string
	Occupancy   map[string]int
	History     map[string][]platform.ChatMessage

	Sent            []Sent
	Created         []platform.ChannelSpec
	DeletedChannels []string
	DeletedMessages map[string][]string
	Permissions     []PermissionChange
	Moves           []Move
	RolesAdded      []string

	Fail map[string]error

	nextID int
}

// New returns an empty ready platform.
func New() *Platform {
	return &Platform{
		IsReady:         true,
		Ping:            42 * time.Millisecond,
		Guilds:          map[string]platform.Guild{},
		Channels:        map[string]platform.Channel{},
		Roles:           map[string]platform.Role{},
		HeldRoles:       map[string][]string{},
		Occupancy:       map[string]int{},
		History:         map[string][]platform.ChatMessage{},
		DeletedMessages: map[string][]string{},
		Fail:            map[string]error{},
	}
}

// AddChannel seeds a channel.
func (p *Platform) AddChannel(ch platform.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Channels[ch.ID] = ch
}

// SetOccupancy seeds the member count of a voice channel.
func (p *Platform) SetOccupancy(channelID string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Occupancy[channelID] = n
}

// HasChannel reports whether the channel currently exists.
func (p *Platform) HasChannel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.Channels[id]
	return ok
}

// SentTo returns the messages delivered to a channel.
func (p *Platform) SentTo(channelID string) []platform.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []platform.Message
	for _, s := range p.Sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

// Deleted returns the ids of deleted channels.
func (p *Platform) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.DeletedChannels...)
}

func (p *Platform) fail(op string) error {
	return p.Fail[op]
}

func (p *Platform) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.IsReady
}

func (p *Platform) Latency() time.Duration {
	return p.Ping
}

func (p *Platform) Guild(_ context.Context, guildID string) (platform.Guild, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("Guild"); err != nil {
		return platform.Guild{}, err
	}
	g, ok := p.Guilds[guildID]
	if !ok {
		return platform.Guild{}, platform.ErrNotFound
	}
	return g, nil
}

func (p *Platform) Channel(_ context.Context, channelID string) (platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("Channel"); err != nil {
		return platform.Channel{}, err
	}
	ch, ok := p.Channels[channelID]
	if !ok {
		return platform.Channel{}, platform.ErrNotFound
	}
	return ch, nil
}

func (p *Platform) CreateChannel(_ context.Context, guildID string, spec platform.ChannelSpec) (platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("CreateChannel"); err != nil {
		return platform.Channel{}, err
	}
	p.nextID++
	ch := platform.Channel{
		ID:       fmt.Sprintf("new-%d", p.nextID),
		GuildID:  guildID,
		Name:     spec.Name,
		ParentID: spec.ParentID,
		Kind:     spec.Kind,
	}
	p.Channels[ch.ID] = ch
	p.Created = append(p.Created, spec)
	return ch, nil
}

func (p *Platform) DeleteChannel(_ context.Context, channelID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := p.Channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(p.Channels, channelID)
	p.DeletedChannels = append(p.DeletedChannels, channelID)
	return nil
}

func (p *Platform) SetPermission(_ context.Context, channelID string, overwrite platform.Overwrite) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("SetPermission"); err != nil {
		return err
	}
	p.Permissions = append(p.Permissions, PermissionChange{ChannelID: channelID, Overwrite: overwrite})
	return nil
}

func (p *Platform) SendMessage(_ context.Context, channelID string, msg platform.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("SendMessage"); err != nil {
		return "", err
	}
	p.nextID++
	p.Sent = append(p.Sent, Sent{ChannelID: channelID, Message: msg})
	return fmt.Sprintf("msg-%d", p.nextID), nil
}

func (p *Platform) Messages(_ context.Context, channelID string, limit int) ([]platform.ChatMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("Messages"); err != nil {
		return nil, err
	}
	history := p.History[channelID]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return append([]platform.ChatMessage(nil), history...), nil
}

func (p *Platform) DeleteMessages(_ context.Context, channelID string, messageIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("DeleteMessages"); err != nil {
		return err
	}
	p.DeletedMessages[channelID] = append(p.DeletedMessages[channelID], messageIDs...)
	return nil
}

func (p *Platform) Role(_ context.Context, _ string, roleID string) (platform.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	role, ok := p.Roles[roleID]
	if !ok {
		return platform.Role{}, platform.ErrNotFound
	}
	return role, nil
}

func (p *Platform) MemberRoles(_ context.Context, _ string, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.HeldRoles[userID]...), nil
}

func (p *Platform) AddRole(_ context.Context, _ string, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("AddRole"); err != nil {
		return err
	}
	p.HeldRoles[userID] = append(p.HeldRoles[userID], roleID)
	p.RolesAdded = append(p.RolesAdded, userID+":"+roleID)
	return nil
}

func (p *Platform) VoiceOccupancy(_ context.Context, _ string, channelID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.Channels[channelID]; !ok {
		return 0, platform.ErrNotFound
	}
	return p.Occupancy[channelID], nil
}

func (p *Platform) MoveMember(_ context.Context, _ string, userID, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail("MoveMember"); err != nil {
		return err
	}
	p.Moves = append(p.Moves, Move{UserID: userID, ChannelID: channelID})
	p.Occupancy[channelID]++
	return nil
}

var _ platform.Platform = (*Platform)(nil)
