package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/platform"
)

const unknown = "Unknown"

// NotificationService mirrors action log entries into the configured log channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	platform   platform.Platform
	channelID  string
	logger     *zap.Logger
	register   sync.Once
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, p platform.Platform, channels config.ChannelsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		platform:   p,
		channelID:  channels.Logs,
		logger:     logger.Named("notifications"),
	}
}

// RegisterHandlers subscribes to events. Repeated calls, e.g. on reconnect, are ignored.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.register.Do(func() {
		n.dispatcher.Subscribe(events.EventActionRecorded, n.handleActionRecorded)
	})
}

func (n *NotificationService) handleActionRecorded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ActionRecordedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if !config.IsSet(n.channelID) || n.platform == nil || !n.platform.Ready() {
		return nil
	}
	if _, err := n.platform.Channel(ctx, n.channelID); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			n.logger.Debug("log channel not found", zap.String("channel_id", n.channelID))
			return nil
		}
		return err
	}
	_, err := n.platform.SendMessage(ctx, n.channelID, platform.Cards(Render(payload.Entry)))
	return err
}

// Render builds the log channel embed for an entry.
func Render(entry domain.LogEntry) platform.Embed {
	d := entry.Details
	ts := entry.Timestamp
	embed := platform.Embed{
		Footer:    "Action: " + entry.Action,
		Timestamp: &ts,
	}
	kind := func() string {
		if strings.Contains(entry.Action, "PARTNERSHIP") {
			return "partnership"
		}
		return "team"
	}

	switch entry.Action {
	case domain.ActionBotReady:
		embed.Color, embed.Title, embed.Description = colorSuccess, "🤖 Bot Status", "✅ Bot is online and ready!"
		embed.Fields = fields(inline("🏷️ Bot Tag", d.String("botTag")))
	case domain.ActionMemberJoin:
		embed.Color, embed.Title, embed.Description = colorSuccess, "👋 Member Joined", "A new member has joined the server!"
		embed.Fields = fields(inline("👤 User", mention(d, "userId")), inline("🏷️ Tag", d.String("userTag")))
	case domain.ActionMemberLeave:
		embed.Color, embed.Title, embed.Description = colorWarning, "👋 Member Left", "A member has left the server."
		embed.Fields = fields(inline("👤 User", d.String("userTag")), inline("🆔 User ID", d.String("userId")))
	case domain.ActionTicketCreated:
		embed.Color, embed.Title, embed.Description = colorInfo, "🎫 Ticket Created", "A new support ticket has been created."
		embed.Fields = fields(
			inline("👤 User", mention(d, "userId")),
			inline("📋 Type", d.String("type")),
			inline("🔗 Channel", channelMention(d, "ticketId")),
		)
	case domain.ActionTicketClosed:
		embed.Color, embed.Title, embed.Description = colorOrange, "🔒 Ticket Closed", "A support ticket has been closed."
		name := d.String("channelName")
		if name != "" {
			name = "#" + name
		}
		embed.Fields = fields(
			inline("👤 Closed by", mention(d, "userId")),
			inline("🏷️ User Tag", d.String("userTag")),
			inline("🔗 Channel", name),
		)
	case domain.ActionPartnershipSubmitted, domain.ActionJoinSubmitted:
		embed.Color, embed.Title = colorSuccess, "📝 Application Submitted"
		embed.Description = fmt.Sprintf("A %s application has been submitted.", kind())
		embed.Fields = fields(inline("👤 User", mention(d, "userId")), inline("🔗 Ticket", channelMention(d, "ticketId")))
	case domain.ActionPartnershipCancelled, domain.ActionJoinCancelled:
		embed.Color, embed.Title = colorWarning, "❌ Application Cancelled"
		embed.Description = fmt.Sprintf("A %s application has been cancelled.", kind())
		embed.Fields = fields(inline("👤 User", mention(d, "userId")), inline("🔗 Ticket ID", d.String("ticketId")))
	case domain.ActionTempChannelCreated:
		embed.Color, embed.Title, embed.Description = colorSuccess, "🔊 Temporary Channel Created", "A temporary voice channel has been created."
		embed.Fields = fields(inline("👤 Owner", mention(d, "ownerId")), inline("📢 Channel", d.String("channelName")))
	case domain.ActionTempChannelDeleted:
		embed.Color, embed.Title, embed.Description = colorWarning, "🗑️ Temporary Channel Deleted", "A temporary voice channel has been deleted."
		embed.Fields = fields(
			inline("👤 Owner", d.String("ownerTag")),
			inline("📢 Channel", d.String("channelName")),
			inline("📝 Reason", d.String("reason")),
		)
	case domain.ActionOrderRetrieved:
		embed.Color, embed.Title, embed.Description = colorSuccess, "📦 Order Retrieved", "An order has been successfully retrieved."
		embed.Fields = fields(
			inline("👤 User", mention(d, "userId")),
			inline("🔢 Order Code", d.String("orderCode")),
			inline("💰 Total", d.String("orderTotal")),
		)
	case domain.ActionRulesAccepted:
		embed.Color, embed.Title, embed.Description = colorSuccess, "✅ Rules Accepted", "A member has accepted the server rules."
		embed.Fields = fields(inline("👤 User", mention(d, "userId")), inline("🏷️ Tag", d.String("userTag")))
	case domain.ActionBotError:
		embed.Color, embed.Title, embed.Description = colorError, "⚠️ Bot Error", "An error occurred in the bot."
		msg := d.String("error")
		if msg == "" {
			msg = "Unknown error"
		}
		embed.Fields = fields(block("📝 Error", platform.Truncate(msg, 1000)))
	case domain.ActionAPIHealthCheck:
		embed.Color, embed.Title, embed.Description = colorSuccess, "🏥 API Health Check", "Periodic health check completed successfully."
		embed.Fields = fields(
			inline("🌐 Service", d.String("service")),
			inline("📡 Response Time", d.String("responseTime")),
			inline("📊 Status", d.String("uptime")),
		)
	case domain.ActionAPIHealthRestored:
		embed.Color, embed.Title, embed.Description = colorSuccess, "✅ API Service Restored", "The API service is back online!"
		embed.Fields = fields(
			inline("🌐 Service", d.String("service")),
			inline("📡 Response Time", d.String("responseTime")),
			block("🔗 Endpoint", d.String("endpoint")),
		)
	case domain.ActionAPIHealthFailure:
		embed.Color, embed.Title, embed.Description = colorError, "❌ API Service Down", "The API service is currently offline."
		embed.Fields = fields(
			inline("📝 Error", d.String("error")),
			inline("🔧 Error Code", d.String("errorCode")),
			block("🔗 Endpoint", d.String("endpoint")),
		)
	case domain.ActionMessageEdit:
		embed.Color, embed.Title = 0xffa500, "✏️ Message Edited"
		embed.Description = "A message was edited in " + channelMention(d, "channelId")
		embed.Fields = fields(
			inline("👤 Author", mention(d, "userId")),
			inline("🏷️ Tag", d.String("userTag")),
			block("📝 Old Content", d.String("oldContent")),
			block("✏️ New Content", d.String("newContent")),
			block("🔗 Jump to Message", fmt.Sprintf("[Click Here](%s)", d.String("messageUrl"))),
		)
	case domain.ActionMessageDelete:
		embed.Color, embed.Title = colorError, "🗑️ Message Deleted"
		embed.Description = "A message was deleted in " + channelMention(d, "channelId")
		embed.Fields = fields(
			inline("👤 Author", mention(d, "userId")),
			inline("🏷️ Tag", d.String("userTag")),
			block("📝 Content", d.String("content")),
			inline("🆔 Message ID", d.String("messageId")),
		)
	default:
		embed.Color, embed.Title = colorNeutral, "📋 Bot Log"
		embed.Description = fmt.Sprintf("Action: `%s`", entry.Action)
		raw, err := json.Marshal(d)
		if err != nil {
			raw = []byte("{}")
		}
		embed.Fields = fields(block("📝 Details", platform.Truncate(string(raw), 1000)))
	}
	return embed
}

func inline(name, value string) platform.Field {
	return platform.Field{Name: name, Value: value, Inline: true}
}

func block(name, value string) platform.Field {
	return platform.Field{Name: name, Value: value}
}

// fields applies the platform limits and replaces empty values.
func fields(in ...platform.Field) []platform.Field {
	out := make([]platform.Field, 0, len(in))
	for _, f := range in {
		f.Name = platform.Truncate(f.Name, platform.MaxFieldName)
		f.Value = platform.FieldValue(f.Value, unknown)
		out = append(out, f)
	}
	if len(out) > platform.MaxFields {
		out = out[:platform.MaxFields]
	}
	return out
}

func mention(d domain.Details, key string) string {
	if id := d.String(key); id != "" {
		return "<@" + id + ">"
	}
	return ""
}

func channelMention(d domain.Details, key string) string {
	if id := d.String(key); id != "" {
		return "<#" + id + ">"
	}
	return ""
}
