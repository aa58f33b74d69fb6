package discord

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
)

var permissionBits = []struct {
	ours   platform.Permission
	theirs int64
}{
	{platform.PermViewChannel, discordgo.PermissionViewChannel},
	{platform.PermSendMessages, discordgo.PermissionSendMessages},
	{platform.PermReadMessageHistory, discordgo.PermissionReadMessageHistory},
	{platform.PermConnect, discordgo.PermissionVoiceConnect},
	{platform.PermManageChannels, discordgo.PermissionManageChannels},
	{platform.PermMoveMembers, discordgo.PermissionVoiceMoveMembers},
	{platform.PermMuteMembers, discordgo.PermissionVoiceMuteMembers},
	{platform.PermDeafenMembers, discordgo.PermissionVoiceDeafenMembers},
	{platform.PermManageMessages, discordgo.PermissionManageMessages},
	{platform.PermAdministrator, discordgo.PermissionAdministrator},
}

func toDiscordPermissions(p platform.Permission) int64 {
	var out int64
	for _, b := range permissionBits {
		if p&b.ours != 0 {
			out |= b.theirs
		}
	}
	return out
}

func fromDiscordPermissions(p int64) platform.Permission {
	var out platform.Permission
	for _, b := range permissionBits {
		if p&b.theirs != 0 {
			out |= b.ours
		}
	}
	return out
}

func toChannelType(kind platform.ChannelKind) discordgo.ChannelType {
	switch kind {
	case platform.ChannelVoice:
		return discordgo.ChannelTypeGuildVoice
	case platform.ChannelCategory:
		return discordgo.ChannelTypeGuildCategory
	default:
		return discordgo.ChannelTypeGuildText
	}
}

func fromChannel(ch *discordgo.Channel) platform.Channel {
	kind := platform.ChannelText
	switch ch.Type {
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		kind = platform.ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		kind = platform.ChannelCategory
	}
	return platform.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name, ParentID: ch.ParentID, Kind: kind}
}

func toOverwrites(overwrites []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    o.TargetID,
			Type:  overwriteType(o.Role),
			Allow: toDiscordPermissions(o.Allow),
			Deny:  toDiscordPermissions(o.Deny),
		})
	}
	return out
}

func overwriteType(role bool) discordgo.PermissionOverwriteType {
	if role {
		return discordgo.PermissionOverwriteTypeRole
	}
	return discordgo.PermissionOverwriteTypeMember
}

func toEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       platform.Truncate(e.Title, platform.MaxEmbedTitle),
			Description: platform.Truncate(e.Description, platform.MaxEmbedDescription),
			URL:         e.URL,
			Color:       e.Color,
		}
		for i, f := range e.Fields {
			if i == platform.MaxFields {
				break
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   platform.Truncate(f.Name, platform.MaxFieldName),
				Value:  platform.FieldValue(f.Value, ""),
				Inline: f.Inline,
			})
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: platform.Truncate(e.Footer, platform.MaxFooter)}
		}
		if e.Thumbnail != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
		}
		if e.Timestamp != nil {
			embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, embed)
	}
	return out
}

func fromEmbeds(embeds []*discordgo.MessageEmbed) []platform.Embed {
	out := make([]platform.Embed, 0, len(embeds))
	for _, e := range embeds {
		if e == nil {
			continue
		}
		embed := platform.Embed{Title: e.Title, Description: e.Description, URL: e.URL, Color: e.Color}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, platform.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != nil {
			embed.Footer = e.Footer.Text
		}
		out = append(out, embed)
	}
	return out
}

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary:   discordgo.PrimaryButton,
	platform.ButtonSecondary: discordgo.SecondaryButton,
	platform.ButtonSuccess:   discordgo.SuccessButton,
	platform.ButtonDanger:    discordgo.DangerButton,
}

// toComponents lays buttons out in rows of five.
func toComponents(buttons []platform.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += platform.MaxButtonsPerRow {
		end := min(start+platform.MaxButtonsPerRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			row.Components = append(row.Components, discordgo.Button{Label: b.Label, Style: style, CustomID: b.CustomID})
		}
		rows = append(rows, row)
	}
	return rows
}

func toFiles(files []platform.File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{Name: f.Name, ContentType: f.ContentType, Reader: bytes.NewReader(f.Data)})
	}
	return out
}

func toMessageSend(msg platform.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  toEmbeds(msg.Embeds),
		Files:   toFiles(msg.Files),
	}
	if len(msg.Buttons) > 0 {
		send.Components = toComponents(msg.Buttons)
	}
	return send
}

func toResponseData(msg platform.Message, ephemeral bool) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content: msg.Content,
		Embeds:  toEmbeds(msg.Embeds),
		Files:   toFiles(msg.Files),
	}
	switch {
	case len(msg.Buttons) > 0:
		data.Components = toComponents(msg.Buttons)
	case msg.ClearButtons:
		data.Components = []discordgo.MessageComponent{}
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

func toWebhookEdit(msg platform.Message) *discordgo.WebhookEdit {
	content := msg.Content
	embeds := toEmbeds(msg.Embeds)
	edit := &discordgo.WebhookEdit{Content: &content, Embeds: &embeds, Files: toFiles(msg.Files)}
	switch {
	case len(msg.Buttons) > 0:
		components := toComponents(msg.Buttons)
		edit.Components = &components
	case msg.ClearButtons:
		components := []discordgo.MessageComponent{}
		edit.Components = &components
	}
	return edit
}

func toModal(modal platform.Modal) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(modal.Inputs))
	for _, in := range modal.Inputs {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    in.CustomID,
				Label:       in.Label,
				Style:       discordgo.TextInputShort,
				Placeholder: in.Placeholder,
				Required:    in.Required,
				MaxLength:   in.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponseData{CustomID: modal.CustomID, Title: modal.Title, Components: rows}
}

// modalValues flattens the text inputs of a submitted modal.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := map[string]string{}
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

func tag(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func fromAuthor(u *discordgo.User) platform.Author {
	if u == nil {
		return platform.Author{}
	}
	return platform.Author{ID: u.ID, Tag: tag(u), Bot: u.Bot, AvatarURL: u.AvatarURL("")}
}

func fromMessage(m *discordgo.Message) platform.ChatMessage {
	msg := platform.ChatMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    fromAuthor(m.Author),
		Content:   m.Content,
		Embeds:    fromEmbeds(m.Embeds),
		CreatedAt: m.Timestamp,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.URL)
	}
	return msg
}

// fromMember converts a guild member. u is used when the member carries no user.
func fromMember(m *discordgo.Member, u *discordgo.User) domain.Member {
	if m != nil && m.User != nil {
		u = m.User
	}
	if u == nil {
		return domain.Member{}
	}
	out := domain.Member{
		ID:          u.ID,
		Tag:         tag(u),
		Username:    u.Username,
		DisplayName: u.GlobalName,
		Bot:         u.Bot,
		AvatarURL:   u.AvatarURL(""),
	}
	if created, err := discordgo.SnowflakeTimestamp(u.ID); err == nil {
		out.CreatedAt = created
	}
	if m != nil {
		if m.Nick != "" {
			out.DisplayName = m.Nick
		}
		if !m.JoinedAt.IsZero() {
			joined := m.JoinedAt
			out.JoinedAt = &joined
		}
	}
	return out
}

func messageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// translateError maps "unknown resource" REST failures to platform.ErrNotFound.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		}
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownRole,
				discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeUnknownUser:
				return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
			}
		}
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return platform.ErrNotFound
	}
	return err
}
