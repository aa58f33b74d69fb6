// Package interaction encodes and decodes the custom ids carried by buttons and modals.
// Every id is parsed once into a typed value before it reaches a handler.
package interaction

import (
	"fmt"
	"strings"

	"github.com/majstudio/community-bot/internal/domain"
)

const sep = ":"

// Kind is the closed set of button actions.
type Kind int

const (
	KindUnknown Kind = iota
	KindAcceptRules
	KindCreateTicket
	KindCloseTicket
	KindConfirmClose
	KindCancelClose
	KindConfirmForm
	KindCancelForm
	KindViewDetails
	KindOrderRetrieve
	KindOrderStatus
	KindCreateOrderTicket
)

var prefixes = map[Kind]string{
	KindAcceptRules:       "accept_rules",
	KindCreateTicket:      "ticket",
	KindCloseTicket:       "close_ticket",
	KindConfirmClose:      "confirm_close",
	KindCancelClose:       "cancel_close",
	KindConfirmForm:       "confirm_form",
	KindCancelForm:        "cancel_form",
	KindViewDetails:       "details",
	KindOrderRetrieve:     "order_retrieve",
	KindOrderStatus:       "order_status",
	KindCreateOrderTicket: "create_order_ticket",
}

var kindsByPrefix = func() map[string]Kind {
	m := make(map[string]Kind, len(prefixes))
	for kind, prefix := range prefixes {
		m[prefix] = kind
	}
	return m
}()

func (k Kind) String() string {
	if p, ok := prefixes[k]; ok {
		return p
	}
	return "unknown"
}

// Button is a decoded button custom id. Only the fields relevant to Kind are set.
type Button struct {
	Kind       Kind
	TicketType domain.TicketType
	ChannelID  string
	OrderCode  string
}

// CustomID encodes the button back to its wire form.
func (b Button) CustomID() string {
	prefix := prefixes[b.Kind]
	switch b.Kind {
	case KindCreateTicket:
		return prefix + sep + string(b.TicketType)
	case KindCloseTicket, KindConfirmClose, KindCancelClose:
		return prefix + sep + b.ChannelID
	case KindConfirmForm, KindCancelForm, KindViewDetails:
		return prefix + sep + string(b.TicketType) + sep + b.ChannelID
	case KindCreateOrderTicket:
		return prefix + sep + b.OrderCode
	default:
		return prefix
	}
}

// ParseButton decodes a custom id produced by CustomID.
func ParseButton(customID string) (Button, error) {
	prefix, rest, hasRest := strings.Cut(customID, sep)
	kind, ok := kindsByPrefix[prefix]
	if !ok {
		return Button{}, fmt.Errorf("unknown button id %q", customID)
	}
	b := Button{Kind: kind}

	switch kind {
	case KindAcceptRules, KindOrderRetrieve, KindOrderStatus:
		if hasRest {
			return Button{}, fmt.Errorf("button id %q takes no argument", customID)
		}
		return b, nil
	case KindCreateTicket:
		t, ok := domain.ParseTicketType(rest)
		if !ok || t == domain.TicketTypeOrder {
			return Button{}, fmt.Errorf("button id %q: invalid ticket type", customID)
		}
		b.TicketType = t
	case KindCloseTicket, KindConfirmClose, KindCancelClose:
		if rest == "" {
			return Button{}, fmt.Errorf("button id %q: missing channel", customID)
		}
		b.ChannelID = rest
	case KindConfirmForm, KindCancelForm, KindViewDetails:
		rawType, channelID, found := strings.Cut(rest, sep)
		t, ok := domain.ParseTicketType(rawType)
		if !found || !ok || channelID == "" || !t.HasForm() {
			return Button{}, fmt.Errorf("button id %q: expected <form>%s<channel>", customID, sep)
		}
		b.TicketType, b.ChannelID = t, channelID
	case KindCreateOrderTicket:
		if strings.TrimSpace(rest) == "" {
			return Button{}, fmt.Errorf("button id %q: missing order code", customID)
		}
		b.OrderCode = rest
	}
	return b, nil
}

// Builders for the ids placed on outgoing buttons.

func AcceptRules() string { return Button{Kind: KindAcceptRules}.CustomID() }

func CreateTicket(t domain.TicketType) string {
	return Button{Kind: KindCreateTicket, TicketType: t}.CustomID()
}

func CloseTicket(channelID string) string {
	return Button{Kind: KindCloseTicket, ChannelID: channelID}.CustomID()
}

func ConfirmClose(channelID string) string {
	return Button{Kind: KindConfirmClose, ChannelID: channelID}.CustomID()
}

func CancelClose(channelID string) string {
	return Button{Kind: KindCancelClose, ChannelID: channelID}.CustomID()
}

func ConfirmForm(t domain.TicketType, channelID string) string {
	return Button{Kind: KindConfirmForm, TicketType: t, ChannelID: channelID}.CustomID()
}

func CancelForm(t domain.TicketType, channelID string) string {
	return Button{Kind: KindCancelForm, TicketType: t, ChannelID: channelID}.CustomID()
}

func ViewDetails(t domain.TicketType, channelID string) string {
	return Button{Kind: KindViewDetails, TicketType: t, ChannelID: channelID}.CustomID()
}

func OrderRetrieve() string { return Button{Kind: KindOrderRetrieve}.CustomID() }

func OrderStatus() string { return Button{Kind: KindOrderStatus}.CustomID() }

func CreateOrderTicket(code string) string {
	return Button{Kind: KindCreateOrderTicket, OrderCode: code}.CustomID()
}
