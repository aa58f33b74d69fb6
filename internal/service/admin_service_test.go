package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/platform/platformtest"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

type staticLogs []domain.LogEntry

func (l staticLogs) Recent(_ context.Context, n int) []domain.LogEntry {
	if n > len(l) {
		n = len(l)
	}
	return l[:n]
}

var bob = domain.Member{ID: "u2", Tag: "bob", Username: "bob"}

func newAdminService(h *harness, logs LogReader) *AdminService {
	return NewAdminService(AdminDependencies{Platform: h.platform, Logs: logs, TicketRepo: h.tickets, Recorder: h.recorder})
}

func (h *harness) adminRequest() interaction.Request {
	req := h.request("ops")
	req.Permissions = platform.PermAdministrator
	return req
}

func TestAdminRequiresAdministrator(t *testing.T) {
	h := newHarness(t)
	svc := newAdminService(h, staticLogs{})
	ctx := context.Background()
	req := h.request("ops")
	req.Permissions = platform.PermManageMessages
	channel := platform.Channel{ID: "c1", Name: "general"}

	checks := map[string]func() error{
		"add":    func() error { return svc.AddUser(ctx, &platformtest.Responder{}, req, channel, bob) },
		"remove": func() error { return svc.RemoveUser(ctx, &platformtest.Responder{}, req, channel, bob) },
		"create": func() error { return svc.CreateChannel(ctx, &platformtest.Responder{}, req, "x", bob, nil) },
		"logs":   func() error { return svc.ViewLogs(ctx, &platformtest.Responder{}, req, 5) },
		"list":   func() error { return svc.Tickets(ctx, &platformtest.Responder{}, req) },
	}
	for name, check := range checks {
		err := check()
		assert.True(t, errorutil.IsCode(err, errorutil.CodePermission), name)
		assert.Equal(t, "You need Administrator permission to use this command.", errorutil.UserMessage(err), name)
	}
	assert.Empty(t, h.platform.Permissions)
	assert.Empty(t, h.recorder.Actions())
}

func TestAdminAddAndRemoveUser(t *testing.T) {
	h := newHarness(t)
	svc := newAdminService(h, staticLogs{})
	ctx := context.Background()
	channel := platform.Channel{ID: "c1", Name: "general"}

	resp := &platformtest.Responder{}
	require.NoError(t, svc.AddUser(ctx, resp, h.adminRequest(), channel, bob))
	assert.Equal(t, "✅ User Added", resp.Last().Message.Embeds[0].Title)
	assert.False(t, resp.Last().Ephemeral)
	require.Len(t, h.platform.Permissions, 1)
	assert.Equal(t, memberAccess, h.platform.Permissions[0].Overwrite.Allow)

	resp = &platformtest.Responder{}
	require.NoError(t, svc.RemoveUser(ctx, resp, h.adminRequest(), channel, bob))
	assert.Equal(t, "🚫 User Removed", resp.Last().Message.Embeds[0].Title)
	assert.Equal(t, platform.PermViewChannel, h.platform.Permissions[1].Overwrite.Deny)

	added, ok := h.recorder.Find(domain.ActionAdminAddUser)
	require.True(t, ok)
	assert.Equal(t, "u1", added["adminId"])
	assert.Equal(t, "u2", added["userId"])
	assert.Equal(t, "general", added["channelName"])
	_, ok = h.recorder.Find(domain.ActionAdminRemoveUser)
	assert.True(t, ok)
}

func TestAdminAddUserFailure(t *testing.T) {
	h := newHarness(t)
	h.platform.Fail["SetPermission"] = errors.New("missing access")
	resp := &platformtest.Responder{}

	err := newAdminService(h, staticLogs{}).AddUser(context.Background(), resp, h.adminRequest(), platform.Channel{ID: "c1"}, bob)
	require.NoError(t, err)
	assert.Equal(t, "❌ Failed to add user to channel. Check permissions and try again.", resp.Last().Message.Content)
	assert.True(t, resp.Last().Ephemeral)
	assert.Empty(t, h.recorder.Actions())
}

func TestAdminCreateChannel(t *testing.T) {
	h := newHarness(t)
	svc := newAdminService(h, staticLogs{})
	category, err := h.platform.Channel(context.Background(), testTicketCategory)
	require.NoError(t, err)

	resp := &platformtest.Responder{}
	require.NoError(t, svc.CreateChannel(context.Background(), resp, h.adminRequest(), " project-x ", bob, &category))

	require.Len(t, h.platform.Created, 1)
	spec := h.platform.Created[0]
	assert.Equal(t, "project-x", spec.Name)
	assert.Equal(t, testTicketCategory, spec.ParentID)
	require.Len(t, spec.Overwrites, 3)
	assert.Equal(t, platform.PermViewChannel, spec.Overwrites[0].Deny)
	assert.True(t, spec.Overwrites[2].Allow.Has(platform.PermManageChannels))

	embed := resp.Last().Message.Embeds[0]
	assert.Equal(t, "🆕 Channel Created", embed.Title)
	assert.Equal(t, "Tickets", embed.Fields[2].Value)

	details, ok := h.recorder.Find(domain.ActionAdminCreateChannel)
	require.True(t, ok)
	assert.Equal(t, "u2", details["forUserId"])
	assert.Equal(t, testTicketCategory, details["categoryId"])

	err = svc.CreateChannel(context.Background(), &platformtest.Responder{}, h.adminRequest(), "  ", bob, nil)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))
}

func TestAdminViewLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp := &platformtest.Responder{}
	require.NoError(t, newAdminService(h, staticLogs{}).ViewLogs(ctx, resp, h.adminRequest(), 0))
	assert.Equal(t, "📋 No logs found.", resp.Last().Message.Content)

	var logs staticLogs
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		logs = append(logs, domain.LogEntry{Timestamp: base.Add(-time.Duration(i) * time.Minute), Action: fmt.Sprintf("A%d", i)})
	}
	svc := newAdminService(h, logs)

	cases := []struct {
		count int
		want  string
	}{
		{0, "Showing last 10 log entries"},
		{25, "Showing last 25 log entries"},
		{500, "Showing last 50 log entries"},
	}
	for _, tc := range cases {
		resp := &platformtest.Responder{}
		require.NoError(t, svc.ViewLogs(ctx, resp, h.adminRequest(), tc.count))
		embed := resp.Last().Message.Embeds[0]
		assert.Equal(t, tc.want, embed.Description)
		assert.True(t, resp.Last().Ephemeral)
	}

	resp = &platformtest.Responder{}
	require.NoError(t, svc.ViewLogs(ctx, resp, h.adminRequest(), 3))
	assert.Equal(t, "`2026-03-01 08:00:00` **A0**\n`2026-03-01 07:59:00` **A1**\n`2026-03-01 07:58:00` **A2**",
		resp.Last().Message.Embeds[0].Fields[0].Value)
}

func TestAdminTickets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := newAdminService(h, staticLogs{})

	resp := &platformtest.Responder{}
	require.NoError(t, svc.Tickets(ctx, resp, h.adminRequest()))
	assert.Equal(t, "🎫 No open tickets found.", resp.Last().Message.Content)

	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		for i := 0; i < 12; i++ {
			id := fmt.Sprintf("t%02d", i)
			tickets[id] = domain.Ticket{ChannelID: id, UserID: "u1", UserTag: "jane", Type: domain.TicketTypeSupport,
				Status: domain.TicketStatusOpen, CreatedAt: created.Add(time.Duration(i) * time.Hour)}
		}
		tickets["done"] = domain.Ticket{ChannelID: "done", Type: domain.TicketTypeSupport, Status: domain.TicketStatusCancelled, CreatedAt: created}
		return nil
	}))
	h.platform.AddChannel(platform.Channel{ID: "t00", GuildID: testGuild})

	resp = &platformtest.Responder{}
	require.NoError(t, svc.Tickets(ctx, resp, h.adminRequest()))
	embed := resp.Last().Message.Embeds[0]
	assert.Equal(t, "Found 12 open ticket(s)", embed.Description)
	require.Len(t, embed.Fields, 10)
	assert.Contains(t, embed.Fields[0].Value, "<#t00>")
	assert.Contains(t, embed.Fields[1].Value, "ID: t01")
	assert.Equal(t, "... and 2 more tickets", embed.Footer)
}
