package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/repository"
)

// VoiceStateChange is a member moving between voice channels. An empty id means
// the member was not connected on that side.
type VoiceStateChange struct {
	GuildID      string
	Member       domain.Member
	OldChannelID string
	NewChannelID string
}

const ownerVoicePermissions = platform.PermViewChannel | platform.PermConnect | platform.PermManageChannels |
	platform.PermMoveMembers | platform.PermMuteMembers | platform.PermDeafenMembers

// VoiceService creates a personal voice room when a member joins the trigger
// channel and deletes it once it is empty.
type VoiceService struct {
	platform  platform.Platform
	rooms     repository.TempChannelRepository
	recorder  ActionRecorder
	triggerID string
	logger    *zap.Logger
	now       func() time.Time

	// mu serializes deletions so the emptiness check and the removal act as one step.
	mu sync.Mutex
}

// VoiceDependencies bundles collaborators for voice rooms.
type VoiceDependencies struct {
	Platform platform.Platform
	Rooms    repository.TempChannelRepository
	Recorder ActionRecorder
	Channels config.ChannelsConfig
	Logger   *zap.Logger
}

// NewVoiceService constructs the service.
func NewVoiceService(deps VoiceDependencies) *VoiceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoiceService{
		platform:  deps.Platform,
		rooms:     deps.Rooms,
		recorder:  deps.Recorder,
		triggerID: deps.Channels.TempVoice,
		logger:    logger.Named("voice"),
		now:       time.Now,
	}
}

// HandleVoiceState reacts to one voice state update.
func (s *VoiceService) HandleVoiceState(ctx context.Context, change VoiceStateChange) {
	if change.OldChannelID == change.NewChannelID {
		return
	}
	if config.IsSet(s.triggerID) && change.NewChannelID == s.triggerID && !change.Member.Bot {
		s.createRoom(ctx, change)
	}
	if change.OldChannelID != "" {
		if _, tracked := s.rooms.Get(ctx, change.OldChannelID); tracked {
			s.release(ctx, change.GuildID, change.OldChannelID)
		}
	}
}

func (s *VoiceService) createRoom(ctx context.Context, change VoiceStateChange) {
	member := change.Member
	fail := func(err error) {
		s.logger.Error("failed to create voice room", zap.String("user_id", member.ID), zap.Error(err))
		s.recorder.Record(ctx, domain.ActionTempChannelError, domain.Details{
			"error":   err.Error(),
			"userId":  member.ID,
			"userTag": member.Tag,
		})
	}

	trigger, err := s.platform.Channel(ctx, s.triggerID)
	if err != nil {
		fail(fmt.Errorf("resolve trigger channel: %w", err))
		return
	}
	room, err := s.platform.CreateChannel(ctx, change.GuildID, platform.ChannelSpec{
		Name:     domain.TempChannelName(member.Name()),
		Kind:     platform.ChannelVoice,
		ParentID: trigger.ParentID,
		Overwrites: []platform.Overwrite{
			{TargetID: change.GuildID, Role: true, Allow: platform.PermViewChannel | platform.PermConnect},
			{TargetID: member.ID, Allow: ownerVoicePermissions},
		},
		Reason: "Temporary voice channel for " + member.Tag,
	})
	if err != nil {
		fail(err)
		return
	}

	entry := domain.TempChannel{
		ChannelID:   room.ID,
		ChannelName: room.Name,
		OwnerID:     member.ID,
		OwnerTag:    member.Tag,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.rooms.Put(ctx, entry); err != nil {
		s.logger.Warn("failed to track voice room", zap.String("channel_id", room.ID), zap.Error(err))
	}

	if err := s.platform.MoveMember(ctx, change.GuildID, member.ID, room.ID); err != nil {
		fail(fmt.Errorf("move member: %w", err))
		s.release(ctx, change.GuildID, room.ID)
		return
	}

	s.logger.Info("voice room created", zap.String("channel_id", room.ID), zap.String("owner_id", member.ID))
	s.recorder.Record(ctx, domain.ActionTempChannelCreated, domain.Details{
		"channelId":   room.ID,
		"channelName": room.Name,
		"ownerId":     member.ID,
		"ownerTag":    member.Tag,
	})
}

// release deletes a tracked room when nobody is left in it. It reports whether the room is gone.
func (s *VoiceService) release(ctx context.Context, guildID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, tracked := s.rooms.Get(ctx, channelID)
	if !tracked {
		return true
	}
	occupants, err := s.platform.VoiceOccupancy(ctx, guildID, channelID)
	if errors.Is(err, platform.ErrNotFound) {
		s.forget(ctx, channelID)
		return true
	}
	if err != nil {
		s.logger.Warn("failed to read voice occupancy", zap.String("channel_id", channelID), zap.Error(err))
		return false
	}
	if occupants > 0 {
		return false
	}

	if err := s.platform.DeleteChannel(ctx, channelID, "Temporary voice channel is empty"); err != nil && !errors.Is(err, platform.ErrNotFound) {
		s.logger.Error("failed to delete voice room", zap.String("channel_id", channelID), zap.Error(err))
		s.recorder.Record(ctx, domain.ActionTempChannelDeleteError, domain.Details{
			"error":     err.Error(),
			"channelId": channelID,
		})
		return false
	}
	s.forget(ctx, channelID)

	s.logger.Info("voice room deleted", zap.String("channel_id", channelID))
	s.recorder.Record(ctx, domain.ActionTempChannelDeleted, domain.Details{
		"channelId":   channelID,
		"channelName": entry.ChannelName,
		"ownerId":     entry.OwnerID,
		"ownerTag":    entry.OwnerTag,
		"reason":      "Channel empty",
	})
	return true
}

func (s *VoiceService) forget(ctx context.Context, channelID string) {
	if err := s.rooms.Remove(ctx, channelID); err != nil {
		s.logger.Warn("failed to untrack voice room", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// Sweep removes tracked rooms that emptied or vanished while the bot was offline.
// It returns how many entries were cleared.
func (s *VoiceService) Sweep(ctx context.Context, guildID string) int {
	cleared := 0
	for id := range s.rooms.Load(ctx) {
		if s.release(ctx, guildID, id) {
			cleared++
		}
	}
	if cleared > 0 {
		s.logger.Info("stale voice rooms cleared", zap.Int("count", cleared))
	}
	return cleared
}
