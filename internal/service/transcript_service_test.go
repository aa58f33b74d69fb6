package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/platform/platformtest"
)

func transcriptHistory() []platform.ChatMessage {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return []platform.ChatMessage{
		{
			ID:        "m3",
			Author:    platform.Author{ID: "u1", Tag: "jane"},
			Content:   "third <script>alert(1)</script>",
			CreatedAt: base.Add(2 * time.Minute),
		},
		{
			ID:     "m1",
			Author: platform.Author{ID: "bot", Tag: "Maj Bot", Bot: true},
			Embeds: []platform.Embed{{
				Title:  "🔧 Support Ticket",
				Color:  0xff0000,
				Fields: []platform.Field{{Name: "Status", Value: "open & waiting"}},
				Footer: "footer text",
			}},
			CreatedAt: base,
		},
		{
			ID:          "m2",
			Author:      platform.Author{ID: "u1", Tag: "jane"},
			Content:     "second",
			Attachments: []string{"https://cdn.example/log.txt"},
			CreatedAt:   base.Add(time.Minute),
		},
	}
}

func TestRenderTranscript(t *testing.T) {
	generated := time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)
	raw, err := RenderTranscript("jane-support", "Maj Studio", transcriptHistory(), generated)
	require.NoError(t, err)
	html := string(raw)

	first := strings.Index(html, "🔧 Support Ticket")
	second := strings.Index(html, "second")
	third := strings.Index(html, "third")
	require.True(t, first >= 0 && second >= 0 && third >= 0)
	assert.Less(t, first, second, "oldest first")
	assert.Less(t, second, third)

	assert.Contains(t, html, "2026-05-01 10:00:00 UTC")
	assert.Contains(t, html, "2026-05-01 10:02:00 UTC")
	assert.Contains(t, html, `<span class="username">jane</span>`)
	assert.Contains(t, html, `<span class="bot-tag">BOT</span>`)
	assert.Contains(t, html, "#ff0000")
	assert.Contains(t, html, "open &amp; waiting")
	assert.Contains(t, html, "footer text")
	assert.Contains(t, html, "https://cdn.example/log.txt")

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestArchiveUploadsTranscript(t *testing.T) {
	h := newHarness(t)
	h.platform.AddChannel(platform.Channel{ID: "c1", GuildID: testGuild, Name: "jane-support"})
	h.platform.History["c1"] = transcriptHistory()

	svc := NewTranscriptService(h.platform, h.channels, nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Archive(context.Background(), platform.Channel{ID: "c1", GuildID: testGuild, Name: "jane-support"}))

	sent := h.platform.SentTo(testTranscripts)
	require.Len(t, sent, 1)
	summary := sent[0].Embeds[0]
	assert.Equal(t, "📄 Ticket Transcript Generated", summary.Title)
	assert.Contains(t, summary.Description, "**Guild:** Maj Studio")
	assert.Equal(t, "3 messages", summary.Fields[0].Value)
	require.Len(t, sent[0].Files, 1)
	assert.Equal(t, "transcript-jane-support-1777636800000.html", sent[0].Files[0].Name)
	assert.Contains(t, string(sent[0].Files[0].Data), "&lt;script&gt;")
}

func TestCloseSurvivesTranscriptFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.openTicket(t, domain.TicketTypeSupport)
	h.platform.Fail["Messages"] = errors.New("history unavailable")

	resp := &platformtest.Responder{}
	require.NoError(t, h.ticketSvc.ConfirmClose(ctx, resp, h.request(id), id))
	assert.Equal(t, "✅ Ticket will be closed in 5 seconds...", resp.Last().Message.Content)

	assert.Empty(t, h.platform.SentTo(testTranscripts))
	_, stillThere := h.tickets.Get(ctx, id)
	assert.False(t, stillThere)
	_, logged := h.recorder.Find(domain.ActionTicketClosed)
	assert.True(t, logged)

	require.Equal(t, 1, h.scheduler.Pending())
	h.scheduler.RunAll()
	assert.False(t, h.platform.HasChannel(id))
}

func TestConfirmCloseWithoutTicketRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.platform.AddChannel(platform.Channel{ID: "lounge", GuildID: testGuild, Name: "lounge"})

	resp := &platformtest.Responder{}
	require.NoError(t, h.ticketSvc.ConfirmClose(ctx, resp, h.request("lounge"), "lounge"))
	assert.Equal(t, []string{platformtest.KindReply}, resp.Kinds())
	assert.Equal(t, "❌ Ticket data not found.", resp.Last().Message.Content)
	assert.True(t, resp.Last().Ephemeral)

	assert.Zero(t, h.scheduler.Pending())
	assert.Empty(t, h.platform.SentTo(testTranscripts))
	assert.True(t, h.platform.HasChannel("lounge"))
	assert.False(t, h.closer.Closing("lounge"), "the closing mark is released")
	_, logged := h.recorder.Find(domain.ActionTicketClosed)
	assert.False(t, logged)
}
