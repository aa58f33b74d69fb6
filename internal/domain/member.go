package domain

import "time"

// Member identifies a server member acting on or targeted by the bot.
type Member struct {
	ID          string
	Tag         string
	Username    string
	DisplayName string
	Bot         bool
	JoinedAt    *time.Time
	CreatedAt   time.Time
	AvatarURL   string
}

// Mention renders the platform mention for the member.
func (m Member) Mention() string {
	return "<@" + m.ID + ">"
}

// Name returns the display name, falling back to the username and then the tag.
func (m Member) Name() string {
	switch {
	case m.DisplayName != "":
		return m.DisplayName
	case m.Username != "":
		return m.Username
	default:
		return m.Tag
	}
}
