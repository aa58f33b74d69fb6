// Package bot routes platform events to the services that handle them.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/observability"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/service"
	"github.com/majstudio/community-bot/internal/worker"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

const errorColor = 0xff0000

// Event kinds used for metrics and error logs.
const (
	kindCommand = "command"
	kindButton  = "button"
	kindModal   = "modal"
	kindMessage = "message"
	kindVoice   = "voice"
	kindMember  = "member"
)

// Router dispatches decoded platform events. Handler errors never escape: they
// are turned into an ephemeral answer to the user.
type Router struct {
	tickets  *service.TicketService
	forms    *service.FormService
	orders   *service.OrderService
	panels   *service.PanelService
	admin    *service.AdminService
	health   *service.HealthReporter
	voice    *service.VoiceService
	members  *service.MemberService
	notifier *service.NotificationService
	recorder service.ActionRecorder
	metrics  *observability.Metrics
	logger   *zap.Logger

	mirrorOnce sync.Once
}

// Dependencies bundles the services behind the router.
type Dependencies struct {
	Tickets  *service.TicketService
	Forms    *service.FormService
	Orders   *service.OrderService
	Panels   *service.PanelService
	Admin    *service.AdminService
	Health   *service.HealthReporter
	Voice    *service.VoiceService
	Members  *service.MemberService
	Notifier *service.NotificationService
	Recorder service.ActionRecorder
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRouter constructs a router.
func NewRouter(deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		tickets:  deps.Tickets,
		forms:    deps.Forms,
		orders:   deps.Orders,
		panels:   deps.Panels,
		admin:    deps.Admin,
		health:   deps.Health,
		voice:    deps.Voice,
		members:  deps.Members,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		logger:   logger.Named("router"),
	}
}

// Ready runs once the platform session is up: it logs BOT_READY and attaches
// the log channel mirror. Reconnects log BOT_READY again but attach nothing new.
func (r *Router) Ready(ctx context.Context, botTag string) {
	r.mirrorOnce.Do(func() {
		worker.StartNotificationWorker(r.notifier)
	})
	r.recorder.Record(ctx, domain.ActionBotReady, domain.Details{
		"botTag":    botTag,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	r.logger.Info("bot ready", zap.String("bot_tag", botTag))
}

// GuildAvailable clears voice rooms of the guild left over from a previous run.
func (r *Router) GuildAvailable(ctx context.Context, guildID string) {
	if r.voice == nil {
		return
	}
	r.voice.Sweep(ctx, guildID)
}

// AdapterError logs a failure reported by the platform session.
func (r *Router) AdapterError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	r.logger.Error("platform error", zap.Error(err))
	r.metrics.RecordError("platform", errorutil.CodeInternal)
	r.recorder.Record(ctx, domain.ActionBotError, domain.Details{"error": err.Error()})
}

// HandleCommand runs a slash command.
func (r *Router) HandleCommand(ctx context.Context, resp platform.Responder, req interaction.Request, cmd Command) {
	r.run(ctx, resp, req, kindCommand, cmd.Name, func() error {
		switch cmd.Name {
		case CommandTickets:
			return r.panels.TicketPanel(ctx, resp)
		case CommandOrders:
			return r.panels.OrderPanel(ctx, resp, req)
		case CommandRules:
			return r.panels.RulesPanel(ctx, resp)
		case CommandHealth:
			return r.health.Report(ctx, resp)
		case CommandAdmin:
			return r.adminCommand(ctx, resp, req, cmd)
		default:
			return errorutil.NewValidationError(fmt.Sprintf("Unknown command /%s.", cmd.Name), nil)
		}
	})
}

func (r *Router) adminCommand(ctx context.Context, resp platform.Responder, req interaction.Request, cmd Command) error {
	switch cmd.Subcommand {
	case AdminAddUser, AdminRemoveUser:
		channel, ok := cmd.channel("channel")
		if !ok {
			return missingOption("channel")
		}
		user, ok := cmd.user("user")
		if !ok {
			return missingOption("user")
		}
		if cmd.Subcommand == AdminAddUser {
			return r.admin.AddUser(ctx, resp, req, channel, user)
		}
		return r.admin.RemoveUser(ctx, resp, req, channel, user)
	case AdminCreateChannel:
		user, ok := cmd.user("user")
		if !ok {
			return missingOption("user")
		}
		var category *platform.Channel
		if ch, ok := cmd.channel("category"); ok {
			category = &ch
		}
		return r.admin.CreateChannel(ctx, resp, req, cmd.Strings["name"], user, category)
	case AdminViewLogs:
		return r.admin.ViewLogs(ctx, resp, req, int(cmd.Integers["count"]))
	case AdminTickets:
		return r.admin.Tickets(ctx, resp, req)
	default:
		return errorutil.NewValidationError(fmt.Sprintf("Unknown subcommand %q.", cmd.Subcommand), nil)
	}
}

func missingOption(name string) error {
	return errorutil.NewValidationError(fmt.Sprintf("Missing required option: %s.", name), map[string]any{"option": name})
}

// HandleButton decodes a button id and runs its action.
func (r *Router) HandleButton(ctx context.Context, resp platform.Responder, req interaction.Request, customID string) {
	button, err := interaction.ParseButton(customID)
	if err != nil {
		r.logger.Warn("unknown button", zap.String("custom_id", customID), zap.Error(err))
		r.run(ctx, resp, req, kindButton, "unknown", func() error {
			return errorutil.NewValidationError("This button is no longer active.", nil)
		})
		return
	}
	r.run(ctx, resp, req, kindButton, button.Kind.String(), func() error {
		switch button.Kind {
		case interaction.KindAcceptRules:
			return r.panels.AcceptRules(ctx, resp, req)
		case interaction.KindCreateTicket:
			return r.tickets.HandleCreateButton(ctx, resp, req, button.TicketType)
		case interaction.KindCloseTicket:
			return r.tickets.RequestClose(ctx, resp, req, button.ChannelID)
		case interaction.KindConfirmClose:
			return r.tickets.ConfirmClose(ctx, resp, req, button.ChannelID)
		case interaction.KindCancelClose:
			return r.tickets.CancelClose(ctx, resp, req, button.ChannelID)
		case interaction.KindConfirmForm:
			return r.forms.Confirm(ctx, resp, req, button.TicketType, button.ChannelID)
		case interaction.KindCancelForm:
			return r.forms.Cancel(ctx, resp, req, button.TicketType, button.ChannelID)
		case interaction.KindViewDetails:
			return r.forms.Details(ctx, resp, req, button.TicketType, button.ChannelID)
		case interaction.KindOrderRetrieve:
			return r.orders.ShowModal(ctx, resp, interaction.ModalOrderRetrieve)
		case interaction.KindOrderStatus:
			return r.orders.ShowModal(ctx, resp, interaction.ModalOrderStatus)
		case interaction.KindCreateOrderTicket:
			return r.orders.CreateOrderTicket(ctx, resp, req, button.OrderCode)
		default:
			return errorutil.NewValidationError("This button is no longer active.", nil)
		}
	})
}

// HandleModal runs a submitted modal. fields maps input ids to their values.
func (r *Router) HandleModal(ctx context.Context, resp platform.Responder, req interaction.Request, customID string, fields map[string]string) {
	kind, err := interaction.ParseModal(customID)
	if err != nil {
		r.logger.Warn("unknown modal", zap.String("custom_id", customID), zap.Error(err))
		kind = interaction.ModalUnknown
	}
	r.run(ctx, resp, req, kindModal, customID, func() error {
		if kind == interaction.ModalUnknown {
			return errorutil.NewValidationError("This form is no longer active.", nil)
		}
		return r.orders.HandleModal(ctx, resp, req, kind, fields[interaction.OrderCodeField])
	})
}

// HandleMessage feeds a new chat message to the form engine.
func (r *Router) HandleMessage(ctx context.Context, msg platform.ChatMessage) {
	if msg.Author.Bot {
		return
	}
	if err := r.forms.HandleMessage(ctx, msg); err != nil {
		r.logger.Error("form message failed", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID), zap.Error(err))
		r.metrics.RecordError(kindMessage, errorutil.ToDomainError(err).Code)
		return
	}
	r.metrics.RecordEvent(kindMessage, "ok")
}

// HandleMessageEdit audits an edited message.
func (r *Router) HandleMessageEdit(ctx context.Context, edit service.MessageEdit) {
	r.members.MessageEdited(ctx, edit)
}

// HandleMessageDelete audits a deleted message.
func (r *Router) HandleMessageDelete(ctx context.Context, removal service.MessageRemoval) {
	r.members.MessageDeleted(ctx, removal)
}

// HandleVoiceState forwards a voice channel move.
func (r *Router) HandleVoiceState(ctx context.Context, change service.VoiceStateChange) {
	r.voice.HandleVoiceState(ctx, change)
	r.metrics.RecordEvent(kindVoice, "ok")
}

// HandleMemberJoin greets a new member.
func (r *Router) HandleMemberJoin(ctx context.Context, guildID string, member domain.Member) {
	r.members.Joined(ctx, guildID, member)
	r.metrics.RecordEvent(kindMember, "join")
}

// HandleMemberLeave says goodbye to a departed member.
func (r *Router) HandleMemberLeave(ctx context.Context, guildID string, member domain.Member) {
	r.members.Left(ctx, guildID, member)
	r.metrics.RecordEvent(kindMember, "leave")
}

func (r *Router) run(ctx context.Context, resp platform.Responder, req interaction.Request, kind, name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("panic recovered", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
				err = errorutil.NewInternalError(fmt.Errorf("panic: %v", p))
			}
		}()
		return fn()
	}()
	if err == nil {
		r.metrics.RecordEvent(kind, name)
		return
	}
	r.fail(ctx, resp, req, kind, name, err)
}

func (r *Router) fail(ctx context.Context, resp platform.Responder, req interaction.Request, kind, name string, err error) {
	domainErr := errorutil.ToDomainError(err)
	r.metrics.RecordError(kind, domainErr.Code)

	var msg platform.Message
	if domainErr.Code == errorutil.CodeInternal {
		r.logger.Error("interaction failed",
			zap.String("kind", kind), zap.String("name", name), zap.String("user_id", req.User.ID), zap.Error(err))
		details := req.Details()
		details["error"] = err.Error()
		details["interactionType"] = kind
		details["interaction"] = name
		r.recorder.Record(ctx, domain.ActionInteractionError, details)
		msg = platform.Cards(platform.Embed{
			Title:       "❌ Error",
			Description: errorutil.UserMessage(err),
			Color:       errorColor,
			Timestamp:   platform.Now(),
		})
	} else {
		r.logger.Warn("interaction rejected",
			zap.String("kind", kind), zap.String("name", name), zap.String("code", domainErr.Code), zap.Error(err))
		msg = platform.Text("❌ " + errorutil.UserMessage(err))
	}

	var sendErr error
	if resp.Acknowledged() {
		sendErr = resp.Edit(ctx, msg)
	} else {
		sendErr = resp.Reply(ctx, msg, true)
	}
	if sendErr != nil {
		r.logger.Warn("failed to report interaction error", zap.Error(sendErr))
	}
}
