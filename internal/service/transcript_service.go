package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/platform"
)

// TranscriptMessageLimit bounds how much history is archived per channel.
const TranscriptMessageLimit = 100

const transcriptTimeLayout = "2006-01-02 15:04:05 UTC"

//go:embed templates/transcript.html.tmpl
var templateFS embed.FS

var transcriptTemplate = template.Must(template.ParseFS(templateFS, "templates/transcript.html.tmpl"))

// TranscriptService renders a channel's recent history to HTML and uploads it
// to the archive channel.
type TranscriptService struct {
	platform  platform.Platform
	channelID string
	logger    *zap.Logger
	now       func() time.Time
}

// NewTranscriptService constructs the service.
func NewTranscriptService(p platform.Platform, channels config.ChannelsConfig, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		platform:  p,
		channelID: channels.Transcript,
		logger:    logger.Named("transcripts"),
		now:       time.Now,
	}
}

// Archive uploads a transcript of channel. A missing archive channel skips the
// upload and is not an error.
func (s *TranscriptService) Archive(ctx context.Context, channel platform.Channel) error {
	if !config.IsSet(s.channelID) {
		s.logger.Info("transcript channel not configured, skipping transcript", zap.String("channel_id", channel.ID))
		return nil
	}
	if _, err := s.platform.Channel(ctx, s.channelID); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			s.logger.Warn("transcript channel not found, skipping transcript", zap.String("transcript_channel_id", s.channelID))
			return nil
		}
		return err
	}

	messages, err := s.platform.Messages(ctx, channel.ID, TranscriptMessageLimit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	guildName := ""
	if guild, err := s.platform.Guild(ctx, channel.GuildID); err == nil {
		guildName = guild.Name
	}

	now := s.now().UTC()
	html, err := RenderTranscript(channel.Name, guildName, messages, now)
	if err != nil {
		return err
	}

	summary := platform.Embed{
		Title:       "📄 Ticket Transcript Generated",
		Description: fmt.Sprintf("**Channel:** #%s\n**Closed:** %s\n**Guild:** %s", channel.Name, now.Format(transcriptTimeLayout), guildName),
		Color:       colorBlurple,
		Fields: []platform.Field{
			{Name: "💬 Message Count", Value: fmt.Sprintf("%d messages", len(messages)), Inline: true},
			{Name: "📁 Format", Value: "HTML (Discord Style)", Inline: true},
		},
		Timestamp: &now,
	}
	file := platform.File{
		Name:        fmt.Sprintf("transcript-%s-%d.html", channel.Name, now.UnixMilli()),
		ContentType: "text/html; charset=utf-8",
		Data:        html,
	}
	if _, err := s.platform.SendMessage(ctx, s.channelID, platform.Message{Embeds: []platform.Embed{summary}, Files: []platform.File{file}}); err != nil {
		return fmt.Errorf("upload transcript: %w", err)
	}
	s.logger.Info("transcript archived", zap.String("channel_id", channel.ID), zap.Int("messages", len(messages)))
	return nil
}

type transcriptView struct {
	ChannelName string
	GuildName   string
	GeneratedAt string
	Messages    []transcriptMessage
}

type transcriptMessage struct {
	Author      string
	AvatarURL   string
	Bot         bool
	Timestamp   string
	Content     string
	Attachments []string
	Embeds      []transcriptEmbed
}

type transcriptEmbed struct {
	Color       string
	Title       string
	Description string
	Fields      []platform.Field
	Footer      string
}

// RenderTranscript renders messages oldest first. All message text is HTML-escaped.
func RenderTranscript(channelName, guildName string, messages []platform.ChatMessage, generatedAt time.Time) ([]byte, error) {
	sorted := append([]platform.ChatMessage(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	view := transcriptView{
		ChannelName: channelName,
		GuildName:   guildName,
		GeneratedAt: generatedAt.UTC().Format(transcriptTimeLayout),
		Messages:    make([]transcriptMessage, 0, len(sorted)),
	}
	for _, msg := range sorted {
		item := transcriptMessage{
			Author:      msg.Author.Tag,
			AvatarURL:   msg.Author.AvatarURL,
			Bot:         msg.Author.Bot,
			Timestamp:   msg.CreatedAt.UTC().Format(transcriptTimeLayout),
			Content:     msg.Content,
			Attachments: msg.Attachments,
		}
		for _, e := range msg.Embeds {
			color := "#5865f2"
			if e.Color != 0 {
				color = fmt.Sprintf("#%06x", e.Color)
			}
			item.Embeds = append(item.Embeds, transcriptEmbed{
				Color:       color,
				Title:       e.Title,
				Description: e.Description,
				Fields:      e.Fields,
				Footer:      e.Footer,
			})
		}
		view.Messages = append(view.Messages, item)
	}

	var buf bytes.Buffer
	if err := transcriptTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return buf.Bytes(), nil
}
