package interaction

import (
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
)

// Request describes who triggered an interaction and where.
type Request struct {
	GuildID     string
	ChannelID   string
	User        domain.Member
	Permissions platform.Permission
}

// Details returns the actor fields shared by most action log entries.
func (r Request) Details() domain.Details {
	return domain.Details{"userId": r.User.ID, "userTag": r.User.Tag}
}
