package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
)

// Embed colours shared across handlers.
const (
	colorSuccess = 0x00ff00
	colorError   = 0xff0000
	colorWarning = 0xff6b6b
	colorInfo    = 0x0099ff
	colorNeutral = 0x636363
	colorOrange  = 0xff9900
	colorBlurple = 0x5865f2
)

const cleanupTimeout = 15 * time.Second

// ActionRecorder appends entries to the action log.
type ActionRecorder interface {
	Record(ctx context.Context, action string, details domain.Details)
}

// publishEvent stamps and publishes event. Dispatchers log their own drops
// (queue full, closed), so the returned error is not surfaced to callers.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func actorOf(req interaction.Request) events.Actor {
	return events.Actor{UserID: req.User.ID, UserTag: req.User.Tag}
}

func memberActor(m domain.Member) events.Actor {
	return events.Actor{UserID: m.ID, UserTag: m.Tag}
}

// notice builds an ephemeral-style plain text reply.
func notice(text string) platform.Message {
	return platform.Text(text)
}

func errorEmbed(title, description string) platform.Embed {
	return platform.Embed{
		Title:       title,
		Description: description,
		Color:       colorError,
		Timestamp:   platform.Now(),
	}
}

func closeButton(channelID string) platform.Button {
	return platform.Button{CustomID: interaction.CloseTicket(channelID), Label: "🔒 Close Ticket", Style: platform.ButtonDanger}
}
