package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TicketType identifies what a ticket channel was opened for. It never changes after creation.
type TicketType string

const (
	TicketTypeSupport     TicketType = "support"
	TicketTypePartnership TicketType = "partnership"
	TicketTypeJoin        TicketType = "join"
	TicketTypeOrder       TicketType = "order"
)

// ParseTicketType maps a raw identifier to a known ticket type.
func ParseTicketType(raw string) (TicketType, bool) {
	switch t := TicketType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TicketTypeSupport, TicketTypePartnership, TicketTypeJoin, TicketTypeOrder:
		return t, true
	default:
		return "", false
	}
}

// HasForm reports whether tickets of this type run the guided question flow.
func (t TicketType) HasForm() bool {
	_, ok := FormFor(t)
	return ok
}

// Title returns the capitalized type name used in listings.
func (t TicketType) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "open"
	TicketStatusSubmitted TicketStatus = "submitted"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is the record kept for each ticket channel, keyed by ChannelID.
type Ticket struct {
	ChannelID   string            `json:"channelId"`
	ChannelName string            `json:"channelName,omitempty"`
	UserID      string            `json:"userId"`
	UserTag     string            `json:"userTag"`
	Type        TicketType        `json:"type"`
	Status      TicketStatus      `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	SubmittedAt *time.Time        `json:"submittedAt,omitempty"`
	ClosedAt    *time.Time        `json:"closedAt,omitempty"`
	CurrentStep string            `json:"currentStep,omitempty"`
	FormData    map[string]string `json:"formData,omitempty"`
	OrderCode   string            `json:"orderCode,omitempty"`
}

// InProgress reports whether the guided form is still waiting for an answer.
func (t Ticket) InProgress() bool {
	return t.CurrentStep != ""
}

// AwaitingConfirmation reports whether every answer is captured but the recap is not yet confirmed.
func (t Ticket) AwaitingConfirmation() bool {
	form, ok := FormFor(t.Type)
	if !ok || t.Status != TicketStatusOpen || t.InProgress() {
		return false
	}
	return form.Complete(t.FormData)
}

// CheckForm verifies the form invariants: the current step belongs to the type's
// sequence with every earlier step answered, and a submitted ticket holds every answer.
func (t Ticket) CheckForm() error {
	form, ok := FormFor(t.Type)
	if !ok {
		if t.CurrentStep != "" {
			return fmt.Errorf("ticket %s of type %s has step %q but no form", t.ChannelID, t.Type, t.CurrentStep)
		}
		return nil
	}
	if t.CurrentStep != "" {
		idx := form.StepIndex(t.CurrentStep)
		if idx < 0 {
			return fmt.Errorf("ticket %s: step %q is not part of the %s form", t.ChannelID, t.CurrentStep, t.Type)
		}
		for _, step := range form.Steps[:idx] {
			if _, answered := t.FormData[step.Key]; !answered {
				return fmt.Errorf("ticket %s: step %q is unanswered before %q", t.ChannelID, step.Key, t.CurrentStep)
			}
		}
		return nil
	}
	if t.Status == TicketStatusSubmitted && !form.Complete(t.FormData) {
		return fmt.Errorf("ticket %s: submitted with missing answers", t.ChannelID)
	}
	return nil
}

var channelNameInvalid = regexp.MustCompile(`[^a-z0-9-]`)

// TicketChannelName builds the channel name for a new ticket. Order tickets are named
// after the order code, others after the requester.
func TicketChannelName(displayName string, ticketType TicketType, orderCode string) string {
	raw := fmt.Sprintf("%s-%s", displayName, ticketType)
	if ticketType == TicketTypeOrder && orderCode != "" {
		raw = "order-" + orderCode
	}
	return SanitizeChannelName(raw)
}

// SanitizeChannelName lowercases and replaces every character outside [a-z0-9-] with "-".
func SanitizeChannelName(raw string) string {
	name := channelNameInvalid.ReplaceAllString(strings.ToLower(raw), "-")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
