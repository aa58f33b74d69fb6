package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/majstudio/community-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventActionRecorded EventType = "action_recorded"
	EventTicketOpened   EventType = "ticket_opened"
	EventTicketClosed   EventType = "ticket_closed"
	EventFormSubmitted  EventType = "form_submitted"
)

// Actor identifies the member whose action raised the event.
type Actor struct {
	UserID  string `json:"user_id,omitempty"`
	UserTag string `json:"user_tag,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ChannelID string      `json:"channel_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a fresh envelope.
func NewEvent(eventType EventType, channelID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ChannelID: channelID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ActionRecordedPayload carries an entry just appended to the action log.
type ActionRecordedPayload struct {
	Entry domain.LogEntry `json:"entry"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	Type      domain.TicketType `json:"type"`
	OrderCode string            `json:"order_code,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Type   domain.TicketType   `json:"type"`
	Status domain.TicketStatus `json:"status"`
}

// FormSubmittedPayload payload.
type FormSubmittedPayload struct {
	Type     domain.TicketType `json:"type"`
	FormData map[string]string `json:"form_data"`
}
