package domain

import "time"

// MaxLogEntries caps the JSON action log. Older entries are evicted first.
const MaxLogEntries = 1000

// Action names recorded in the action log.
const (
	ActionBotReady               = "BOT_READY"
	ActionBotError               = "BOT_ERROR"
	ActionMemberJoin             = "MEMBER_JOIN"
	ActionMemberLeave            = "MEMBER_LEAVE"
	ActionTicketCreated          = "TICKET_CREATED"
	ActionTicketClosed           = "TICKET_CLOSED"
	ActionPartnershipSubmitted   = "PARTNERSHIP_SUBMITTED"
	ActionPartnershipCancelled   = "PARTNERSHIP_CANCELLED"
	ActionJoinSubmitted          = "JOIN_APPLICATION_SUBMITTED"
	ActionJoinCancelled          = "JOIN_APPLICATION_CANCELLED"
	ActionTempChannelCreated     = "TEMP_CHANNEL_CREATED"
	ActionTempChannelDeleted     = "TEMP_CHANNEL_DELETED"
	ActionTempChannelError       = "TEMP_CHANNEL_ERROR"
	ActionTempChannelDeleteError = "TEMP_CHANNEL_DELETE_ERROR"
	ActionOrderRetrieved         = "ORDER_RETRIEVED_SUCCESS"
	ActionOrderRetrievalError    = "ORDER_RETRIEVAL_ERROR"
	ActionOrderTicketCreated     = "ORDER_TICKET_CREATED"
	ActionRulesAccepted          = "RULES_ACCEPTED"
	ActionAPIHealthCheck         = "API_HEALTH_CHECK"
	ActionAPIHealthRestored      = "API_HEALTH_RESTORED"
	ActionAPIHealthFailure       = "API_HEALTH_FAILURE"
	ActionMessageEdit            = "MESSAGE_EDIT"
	ActionMessageDelete          = "MESSAGE_DELETE"
	ActionInteractionError       = "INTERACTION_ERROR"
	ActionAdminAddUser           = "ADMIN_ADD_USER"
	ActionAdminRemoveUser        = "ADMIN_REMOVE_USER"
	ActionAdminCreateChannel     = "ADMIN_CREATE_CHANNEL"
)

// Details is the free-form payload of a log entry.
type Details map[string]any

// LogEntry is one immutable action log record.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   Details   `json:"details"`
}

// String returns details[key] when it holds a non-empty string.
func (d Details) String(key string) string {
	if d == nil {
		return ""
	}
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}
