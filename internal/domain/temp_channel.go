package domain

import "time"

// TempChannel tracks a personal voice room created from the trigger channel.
// An entry exists exactly as long as the backing channel does.
type TempChannel struct {
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName,omitempty"`
	OwnerID     string    `json:"ownerId"`
	OwnerTag    string    `json:"ownerTag"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TempChannelName is the display name of a member's personal room.
func TempChannelName(displayName string) string {
	return displayName + "'s Voice"
}
