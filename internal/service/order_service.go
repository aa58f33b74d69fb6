package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

const orderTicketFailed = "❌ Failed to create order ticket. Please try again or contact an administrator."

// OrderService answers the order panel: lookup modals, order details and order tickets.
type OrderService struct {
	client   *OrderClient
	tickets  *TicketService
	platform platform.Platform
	recorder ActionRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// OrderDependencies bundles collaborators for the order flows.
type OrderDependencies struct {
	Client   *OrderClient
	Tickets  *TicketService
	Platform platform.Platform
	Recorder ActionRecorder
	Logger   *zap.Logger
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		client:   deps.Client,
		tickets:  deps.Tickets,
		platform: deps.Platform,
		recorder: deps.Recorder,
		logger:   logger.Named("orders"),
		now:      time.Now,
	}
}

// ShowModal opens the order code prompt for a panel button.
func (s *OrderService) ShowModal(ctx context.Context, resp platform.Responder, kind interaction.ModalKind) error {
	title := "📦 Order Retrieval"
	if kind == interaction.ModalOrderStatus {
		title = "📊 Check Order Status"
	}
	return resp.ShowModal(ctx, platform.Modal{
		CustomID: kind.CustomID(),
		Title:    title,
		Inputs: []platform.TextInput{{
			CustomID:    interaction.OrderCodeField,
			Label:       "Order Code",
			Placeholder: "Enter your order code here...",
			MaxLength:   50,
			Required:    true,
		}},
	})
}

// HandleModal looks the submitted code up and answers privately. The retrieve
// flow offers to open an order ticket; the status flow only shows the details.
func (s *OrderService) HandleModal(ctx context.Context, resp platform.Responder, req interaction.Request, kind interaction.ModalKind, rawCode string) error {
	if err := resp.Defer(ctx, true); err != nil {
		return err
	}
	code := strings.TrimSpace(rawCode)
	if code == "" {
		return errorutil.NewValidationError("Please enter an order code.", nil)
	}
	if !s.client.Configured() {
		embed := errorEmbed("❌ Configuration Error", "Order API URL is not configured. Please contact an administrator.")
		embed.Footer = "API endpoint required for order retrieval"
		return resp.Edit(ctx, platform.Cards(embed))
	}

	order, err := s.client.Lookup(ctx, code)
	if err != nil {
		s.logger.Warn("order lookup failed", zap.String("order_code", code), zap.Error(err))
		details := req.Details()
		details["orderCode"] = code
		details["error"] = err.Error()
		details["errorCode"] = string(errorutil.ExternalKindOf(err))
		if status := orderStatusCode(err); status != 0 {
			details["statusCode"] = status
		}
		s.recorder.Record(ctx, domain.ActionOrderRetrievalError, details)
		return resp.Edit(ctx, platform.Cards(s.lookupErrorEmbed(code, err)))
	}

	msg := platform.Cards(OrderEmbed(code, *order, "Order details retrieved from API", true))
	if kind == interaction.ModalOrderRetrieve {
		msg.Buttons = []platform.Button{{
			CustomID: interaction.CreateOrderTicket(code),
			Label:    "🎫 Create Order Ticket",
			Style:    platform.ButtonPrimary,
		}}
	}
	if err := resp.Edit(ctx, msg); err != nil {
		return err
	}

	details := req.Details()
	details["orderCode"] = code
	details["orderStatus"] = order.Status
	details["orderTotal"] = order.TotalAmount.String()
	s.recorder.Record(ctx, domain.ActionOrderRetrieved, details)
	return nil
}

// CreateOrderTicket opens an order ticket for code and posts the order details in it.
func (s *OrderService) CreateOrderTicket(ctx context.Context, resp platform.Responder, req interaction.Request, code string) error {
	if err := resp.Defer(ctx, true); err != nil {
		return err
	}
	channel, err := s.tickets.CreateTicket(ctx, req, domain.TicketTypeOrder, code)
	if err != nil {
		if errorutil.IsCode(err, errorutil.CodeConfiguration) {
			return err
		}
		s.logger.Error("order ticket creation failed", zap.String("order_code", code), zap.Error(err))
		return resp.Edit(ctx, notice(orderTicketFailed))
	}

	if err := s.postOrderDetails(ctx, channel, code, req.User); err != nil {
		s.logger.Warn("failed to post order details", zap.String("channel_id", channel.ID), zap.Error(err))
	}

	details := req.Details()
	details["ticketId"] = channel.ID
	details["orderCode"] = code
	s.recorder.Record(ctx, domain.ActionOrderTicketCreated, details)

	return resp.Edit(ctx, notice(fmt.Sprintf("✅ Order ticket created! Check %s for your order details.", channel.Mention())))
}

func (s *OrderService) postOrderDetails(ctx context.Context, channel platform.Channel, code string, member domain.Member) error {
	order, err := s.client.Lookup(ctx, code)
	if err != nil {
		embed := errorEmbed("❌ Error", fmt.Sprintf("Failed to fetch order details for code: `%s`", code))
		embed.Fields = []platform.Field{{Name: "Error", Value: platform.FieldValue(errorutil.UserMessage(err), unknown)}}
		_, sendErr := s.platform.SendMessage(ctx, channel.ID, platform.Message{
			Content: fmt.Sprintf("%s There was an error fetching your order details.", member.Mention()),
			Embeds:  []platform.Embed{embed},
			Buttons: []platform.Button{closeButton(channel.ID)},
		})
		return sendErr
	}
	_, err = s.platform.SendMessage(ctx, channel.ID, platform.Message{
		Content: fmt.Sprintf("Welcome %s! Here are your order details:", member.Mention()),
		Embeds:  []platform.Embed{OrderEmbed(code, *order, "Order details for "+member.Mention(), false)},
		Buttons: []platform.Button{closeButton(channel.ID)},
	})
	return err
}

// OrderEmbed renders an order. The Discord contact is only shown in private replies.
func OrderEmbed(code string, order domain.Order, description string, withDiscord bool) platform.Embed {
	value := func(v string) string { return platform.FieldValue(v, unknown) }
	fields := []platform.Field{
		inline("📋 Status", value(order.Status)),
		inline("💳 Payment Status", value(order.PaymentStatus)),
		inline("💰 Total Amount", order.Total()),
		inline("💳 Payment Method", value(order.PaymentMethod)),
		inline("👤 Customer", value(order.CustomerField(func(c domain.OrderCustomer) string { return c.Name }))),
		inline("📧 Email", value(order.CustomerField(func(c domain.OrderCustomer) string { return c.Email }))),
	}
	if withDiscord {
		fields = append(fields, inline("💬 Discord", value(order.CustomerField(func(c domain.OrderCustomer) string { return c.Discord }))))
	}
	fields = append(fields,
		inline("📅 Created", value(domain.FormatOrderTime(order.CreatedAt))),
		inline("🔄 Updated", value(domain.FormatOrderTime(order.UpdatedAt))),
	)
	return platform.Embed{
		Title:       "📦 Order " + code,
		Description: description,
		Color:       colorSuccess,
		Fields:      fields,
		Footer:      "Order information retrieved from API",
		Timestamp:   platform.Now(),
	}
}

func (s *OrderService) lookupErrorEmbed(code string, err error) platform.Embed {
	title, description := "Failed to retrieve order information.", "Please try again later or contact support."
	switch errorutil.ExternalKindOf(err) {
	case errorutil.ExternalNotFound:
		title = "Order not found."
		description = fmt.Sprintf("No order found with code: `%s`\nPlease check the code and try again.", code)
	case errorutil.ExternalServerError:
		title = "Server error."
		description = "The order system is experiencing issues. Please try again later."
	case errorutil.ExternalUnreachable:
		title = "Cannot connect to order system."
		description = "The order API is currently unavailable. Please try again later."
	case errorutil.ExternalTimeout:
		title = "Request timeout."
		description = "The request took too long. Please try again."
	case errorutil.ExternalBadResponse:
		if status := orderStatusCode(err); status != 0 && status != 200 {
			title = fmt.Sprintf("API Error (%d)", status)
			description = errorutil.UserMessage(err)
		}
	}
	embed := errorEmbed("❌ "+title, description)
	embed.Fields = []platform.Field{
		inline("🔍 Order Code", "`"+code+"`"),
		inline("⏰ Time", s.now().UTC().Format("15:04:05 UTC")),
	}
	embed.Footer = "If the problem persists, please contact an administrator"
	return embed
}
