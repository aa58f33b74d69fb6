package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/platform/platformtest"
	"github.com/majstudio/community-bot/internal/repository"
)

const triggerChannel = "voice-trigger"

func newVoiceFixture(t *testing.T) (*VoiceService, *platformtest.Platform, repository.TempChannelRepository, *fakeRecorder) {
	t.Helper()
	p := platformtest.New()
	p.AddChannel(platform.Channel{ID: "voice-category", GuildID: testGuild, Kind: platform.ChannelCategory})
	p.AddChannel(platform.Channel{ID: triggerChannel, GuildID: testGuild, ParentID: "voice-category", Kind: platform.ChannelVoice})
	rooms := repository.NewTempChannelRepository(t.TempDir(), nil)
	rec := &fakeRecorder{}
	svc := NewVoiceService(VoiceDependencies{
		Platform: p,
		Rooms:    rooms,
		Recorder: rec,
		Channels: config.ChannelsConfig{TempVoice: triggerChannel},
	})
	return svc, p, rooms, rec
}

func TestJoiningTriggerCreatesRoom(t *testing.T) {
	svc, p, rooms, rec := newVoiceFixture(t)
	ctx := context.Background()

	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})

	require.Len(t, p.Created, 1)
	spec := p.Created[0]
	assert.Equal(t, "Jane's Voice", spec.Name)
	assert.Equal(t, platform.ChannelVoice, spec.Kind)
	assert.Equal(t, "voice-category", spec.ParentID)
	require.Len(t, spec.Overwrites, 2)
	assert.Equal(t, platform.PermViewChannel|platform.PermConnect, spec.Overwrites[0].Allow)
	assert.Equal(t, ownerVoicePermissions, spec.Overwrites[1].Allow)

	require.Len(t, p.Moves, 1)
	assert.Equal(t, platformtest.Move{UserID: jane.ID, ChannelID: "new-1"}, p.Moves[0])

	room, ok := rooms.Get(ctx, "new-1")
	require.True(t, ok)
	assert.Equal(t, jane.ID, room.OwnerID)

	details, ok := rec.Find(domain.ActionTempChannelCreated)
	require.True(t, ok)
	assert.Equal(t, "Jane's Voice", details["channelName"])
}

func TestEmptyRoomIsDeleted(t *testing.T) {
	svc, p, rooms, rec := newVoiceFixture(t)
	ctx := context.Background()
	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})

	bob := domain.Member{ID: "u2", Tag: "bob"}
	p.SetOccupancy("new-1", 1)
	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: bob, OldChannelID: "new-1"})
	assert.True(t, p.HasChannel("new-1"), "someone is still inside")

	p.SetOccupancy("new-1", 0)
	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, OldChannelID: "new-1"})
	assert.False(t, p.HasChannel("new-1"))
	_, tracked := rooms.Get(ctx, "new-1")
	assert.False(t, tracked)

	details, ok := rec.Find(domain.ActionTempChannelDeleted)
	require.True(t, ok)
	assert.Equal(t, "Channel empty", details["reason"])
	assert.Equal(t, jane.ID, details["ownerId"])
}

func TestSimultaneousLeavesDeleteOnce(t *testing.T) {
	svc, p, _, rec := newVoiceFixture(t)
	ctx := context.Background()
	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})
	p.SetOccupancy("new-1", 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, OldChannelID: "new-1"})
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"new-1"}, p.Deleted())
	deletions := 0
	for _, a := range rec.Actions() {
		if a == domain.ActionTempChannelDeleted {
			deletions++
		}
	}
	assert.Equal(t, 1, deletions)
	assert.NotContains(t, rec.Actions(), domain.ActionTempChannelDeleteError)
}

func TestUntrackedChannelsAreLeftAlone(t *testing.T) {
	svc, p, _, rec := newVoiceFixture(t)
	p.AddChannel(platform.Channel{ID: "lobby", Kind: platform.ChannelVoice})

	svc.HandleVoiceState(context.Background(), VoiceStateChange{GuildID: testGuild, Member: jane, OldChannelID: "lobby"})
	assert.True(t, p.HasChannel("lobby"))
	assert.Empty(t, rec.Actions())
}

func TestRoomCreationFailureIsLogged(t *testing.T) {
	svc, p, rooms, rec := newVoiceFixture(t)
	p.Fail["CreateChannel"] = assert.AnError

	svc.HandleVoiceState(context.Background(), VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})
	details, ok := rec.Find(domain.ActionTempChannelError)
	require.True(t, ok)
	assert.Equal(t, jane.ID, details["userId"])
	assert.Empty(t, rooms.Load(context.Background()))
}

func TestMoveFailureRemovesEmptyRoom(t *testing.T) {
	svc, p, rooms, rec := newVoiceFixture(t)
	p.Fail["MoveMember"] = assert.AnError

	svc.HandleVoiceState(context.Background(), VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})
	assert.False(t, p.HasChannel("new-1"))
	assert.Empty(t, rooms.Load(context.Background()))
	assert.Contains(t, rec.Actions(), domain.ActionTempChannelError)
}

func TestDeleteFailureKeepsTracking(t *testing.T) {
	svc, p, rooms, rec := newVoiceFixture(t)
	ctx := context.Background()
	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})
	p.SetOccupancy("new-1", 0)
	p.Fail["DeleteChannel"] = assert.AnError

	svc.HandleVoiceState(ctx, VoiceStateChange{GuildID: testGuild, Member: jane, OldChannelID: "new-1"})
	_, tracked := rooms.Get(ctx, "new-1")
	assert.True(t, tracked)
	assert.Contains(t, rec.Actions(), domain.ActionTempChannelDeleteError)
}

func TestSweepClearsStaleRooms(t *testing.T) {
	svc, p, rooms, _ := newVoiceFixture(t)
	ctx := context.Background()
	require.NoError(t, rooms.Put(ctx, domain.TempChannel{ChannelID: "vanished", OwnerID: "u1"}))
	require.NoError(t, rooms.Put(ctx, domain.TempChannel{ChannelID: "empty", OwnerID: "u2"}))
	require.NoError(t, rooms.Put(ctx, domain.TempChannel{ChannelID: "busy", OwnerID: "u3"}))
	p.AddChannel(platform.Channel{ID: "empty", Kind: platform.ChannelVoice})
	p.AddChannel(platform.Channel{ID: "busy", Kind: platform.ChannelVoice})
	p.SetOccupancy("busy", 2)

	assert.Equal(t, 2, svc.Sweep(ctx, testGuild))
	left := rooms.Load(ctx)
	require.Len(t, left, 1)
	_, ok := left["busy"]
	assert.True(t, ok)
	assert.False(t, p.HasChannel("empty"))
}

func TestTriggerIgnoredWhenUnset(t *testing.T) {
	svc, p, _, _ := newVoiceFixture(t)
	svc.triggerID = config.UnsetTempVoiceChannel

	svc.HandleVoiceState(context.Background(), VoiceStateChange{GuildID: testGuild, Member: jane, NewChannelID: triggerChannel})
	assert.Empty(t, p.Created)
}
