package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

// PanelService posts the public panels and handles the rules acceptance button.
type PanelService struct {
	platform platform.Platform
	recorder ActionRecorder
	roles    config.RolesConfig
	messages config.MessagesConfig
	rules    []string
	logger   *zap.Logger
}

// PanelDependencies bundles collaborators for the panels.
type PanelDependencies struct {
	Platform platform.Platform
	Recorder ActionRecorder
	Roles    config.RolesConfig
	Messages config.MessagesConfig
	Rules    []string
	Logger   *zap.Logger
}

// NewPanelService constructs the service.
func NewPanelService(deps PanelDependencies) *PanelService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanelService{
		platform: deps.Platform,
		recorder: deps.Recorder,
		roles:    deps.Roles,
		messages: deps.Messages,
		rules:    deps.Rules,
		logger:   logger.Named("panels"),
	}
}

// TicketPanel posts the ticket creation buttons.
func (s *PanelService) TicketPanel(ctx context.Context, resp platform.Responder) error {
	return resp.Reply(ctx, platform.Message{
		Embeds: []platform.Embed{{
			Title: "🎫 " + s.messages.ServerName + " - Support Center",
			Description: "Welcome to our support center! Please select the type of assistance you need:\n\n" +
				"🔧 **Support** - Get help with technical issues or general questions\n" +
				"🤝 **Partnership** - Propose a business partnership or collaboration\n" +
				"👥 **Join the Team** - Apply to join our development team",
			Color:     colorInfo,
			Footer:    "Click one of the buttons below to create a ticket",
			Timestamp: platform.Now(),
		}},
		Buttons: []platform.Button{
			{CustomID: interaction.CreateTicket(domain.TicketTypeSupport), Label: "🔧 Support", Style: platform.ButtonPrimary},
			{CustomID: interaction.CreateTicket(domain.TicketTypePartnership), Label: "🤝 Partnership", Style: platform.ButtonSecondary},
			{CustomID: interaction.CreateTicket(domain.TicketTypeJoin), Label: "👥 Join the Team", Style: platform.ButtonSuccess},
		},
	}, false)
}

// OrderPanel posts the order lookup buttons. Only staff with Manage Messages may post it.
func (s *PanelService) OrderPanel(ctx context.Context, resp platform.Responder, req interaction.Request) error {
	if !req.Permissions.Has(platform.PermManageMessages) {
		return resp.Reply(ctx, notice("❌ You don't have permission to use this command. Only staff members can send the order panel."), true)
	}
	return resp.Reply(ctx, platform.Message{
		Embeds: []platform.Embed{{
			Title: "📦 Order Management",
			Description: "**Order Retrieval System**\n\n" +
				"Use this panel to retrieve and manage your orders from our website. You'll need your order code to access the information.\n\n" +
				"**How it works:**\n1. Click the \"Retrieve Order\" button below\n2. Enter your order code when prompted\n3. View your order details and status",
			Color: 0xffa500,
			Fields: []platform.Field{
				inline("📋 Order Information", "Get details about your order status, items, and delivery"),
				inline("🔄 Status Updates", "Track your order progress in real-time"),
				inline("💬 Support", "Get help with your order if needed"),
			},
			Footer:    "Make sure you have your order code ready",
			Timestamp: platform.Now(),
		}},
		Buttons: []platform.Button{
			{CustomID: interaction.OrderRetrieve(), Label: "📦 Retrieve Order", Style: platform.ButtonPrimary},
			{CustomID: interaction.OrderStatus(), Label: "📊 Check Status", Style: platform.ButtonSecondary},
		},
	}, false)
}

// RulesPanel posts the configured rules with the accept button.
func (s *PanelService) RulesPanel(ctx context.Context, resp platform.Responder) error {
	description := strings.Join(s.rules, "\n\n")
	if description == "" {
		description = "No rules have been configured yet."
	}
	return resp.Reply(ctx, platform.Message{
		Embeds: []platform.Embed{{
			Title:       s.messages.RulesTitle,
			Description: platform.Truncate(description, platform.MaxEmbedDescription),
			Color:       colorInfo,
			Footer:      s.messages.RulesFooter,
			Timestamp:   platform.Now(),
		}},
		Buttons: []platform.Button{{CustomID: interaction.AcceptRules(), Label: "✅ Accept Rules", Style: platform.ButtonSuccess}},
	}, false)
}

// AcceptRules grants the rules role to the requester.
func (s *PanelService) AcceptRules(ctx context.Context, resp platform.Responder, req interaction.Request) error {
	roleID := s.roles.RulesAccepted
	if !config.IsSet(roleID) {
		return errorutil.NewConfigurationError("Rules role")
	}
	role, err := s.platform.Role(ctx, req.GuildID, roleID)
	if errors.Is(err, platform.ErrNotFound) {
		return errorutil.NewMissingResourceError("Rules role")
	}
	if err != nil {
		return err
	}

	held, err := s.platform.MemberRoles(ctx, req.GuildID, req.User.ID)
	if err != nil {
		return err
	}
	if slices.Contains(held, roleID) {
		return resp.Reply(ctx, notice("✅ You have already accepted the rules!"), true)
	}

	if err := s.platform.AddRole(ctx, req.GuildID, req.User.ID, roleID); err != nil {
		s.logger.Error("failed to add rules role", zap.String("user_id", req.User.ID), zap.Error(err))
		return resp.Reply(ctx, notice("❌ Failed to add the rules role. Please contact an administrator."), true)
	}
	if err := resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:       "✅ Rules Accepted!",
		Description: "Thank you for accepting the rules! You now have full access to the server.",
		Color:       colorSuccess,
		Timestamp:   platform.Now(),
	}), true); err != nil {
		s.logger.Warn("failed to confirm rules acceptance", zap.Error(err))
	}

	details := req.Details()
	details["roleId"] = role.ID
	details["roleName"] = role.Name
	s.recorder.Record(ctx, domain.ActionRulesAccepted, details)
	return nil
}
