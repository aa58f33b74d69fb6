package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/bot"
	"github.com/majstudio/community-bot/internal/platform"
)

func TestPermissionsRoundTrip(t *testing.T) {
	p := platform.PermViewChannel | platform.PermConnect | platform.PermMoveMembers
	raw := toDiscordPermissions(p)
	assert.Equal(t, int64(discordgo.PermissionViewChannel|discordgo.PermissionVoiceConnect|discordgo.PermissionVoiceMoveMembers), raw)
	assert.Equal(t, p, fromDiscordPermissions(raw))
	assert.Equal(t, platform.Permission(0), fromDiscordPermissions(discordgo.PermissionCreateInstantInvite))
}

func TestEmbedsAreClampedToPlatformLimits(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fields := make([]platform.Field, 30)
	for i := range fields {
		fields[i] = platform.Field{Name: "n", Value: ""}
	}
	long := make([]rune, 5000)
	for i := range long {
		long[i] = 'x'
	}

	out := toEmbeds([]platform.Embed{{Title: "t", Description: string(long), Fields: fields, Footer: "f", Timestamp: &ts}})

	require.Len(t, out, 1)
	assert.Len(t, []rune(out[0].Description), platform.MaxEmbedDescription)
	assert.Len(t, out[0].Fields, platform.MaxFields)
	assert.Equal(t, "N/A", out[0].Fields[0].Value)
	assert.Equal(t, "f", out[0].Footer.Text)
	assert.Equal(t, "2026-01-02T03:04:05Z", out[0].Timestamp)
	assert.Nil(t, out[0].Thumbnail)
}

func TestButtonsWrapIntoRows(t *testing.T) {
	buttons := make([]platform.Button, 7)
	for i := range buttons {
		buttons[i] = platform.Button{CustomID: "b", Label: "B", Style: platform.ButtonDanger}
	}
	rows := toComponents(buttons)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0].(discordgo.ActionsRow).Components, 5)
	assert.Len(t, rows[1].(discordgo.ActionsRow).Components, 2)
	assert.Equal(t, discordgo.DangerButton, rows[1].(discordgo.ActionsRow).Components[0].(discordgo.Button).Style)
}

func TestResponseDataClearsButtons(t *testing.T) {
	data := toResponseData(platform.Message{Content: "x", ClearButtons: true}, true)
	assert.NotNil(t, data.Components)
	assert.Empty(t, data.Components)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)

	edit := toWebhookEdit(platform.Message{Content: "y"})
	assert.Nil(t, edit.Components, "untouched buttons stay")
	assert.Equal(t, "y", *edit.Content)
}

func TestModalValues(t *testing.T) {
	data := discordgo.ModalSubmitInteractionData{
		CustomID: "order_code_modal",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "order_code", Value: "AB12"},
			}},
		},
	}
	assert.Equal(t, map[string]string{"order_code": "AB12"}, modalValues(data))
}

func TestFromMember(t *testing.T) {
	joined := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := fromMember(&discordgo.Member{
		Nick:     "Janie",
		JoinedAt: joined,
		User:     &discordgo.User{ID: "175928847299117063", Username: "jane", Discriminator: "0"},
	}, nil)

	assert.Equal(t, "jane", m.Tag)
	assert.Equal(t, "Janie", m.DisplayName)
	require.NotNil(t, m.JoinedAt)
	assert.Equal(t, joined, *m.JoinedAt)
	assert.Equal(t, 2016, m.CreatedAt.UTC().Year())

	legacy := fromMember(nil, &discordgo.User{ID: "1", Username: "bob", Discriminator: "0420"})
	assert.Equal(t, "bob#0420", legacy.Tag)
	assert.Nil(t, legacy.JoinedAt)
}

func TestCommandFromSubcommand(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "admin",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "createchannel",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "project-x"},
				{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "u2"},
				{Name: "category", Type: discordgo.ApplicationCommandOptionChannel, Value: "c9"},
			},
		}},
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Users:    map[string]*discordgo.User{"u2": {ID: "u2", Username: "bob"}},
			Channels: map[string]*discordgo.Channel{"c9": {ID: "c9", Name: "Projects", Type: discordgo.ChannelTypeGuildCategory}},
		},
	}

	cmd := commandFrom(data)
	assert.Equal(t, "admin", cmd.Name)
	assert.Equal(t, "createchannel", cmd.Subcommand)
	assert.Equal(t, "project-x", cmd.Strings["name"])
	assert.Equal(t, "bob", cmd.Users["user"].Tag)
	assert.Equal(t, platform.Channel{ID: "c9", Name: "Projects", Kind: platform.ChannelCategory}, cmd.Channels["category"])
}

func TestApplicationCommands(t *testing.T) {
	cmds := toApplicationCommands(bot.Commands())
	require.Len(t, cmds, 5)
	admin := cmds[4]
	require.NotNil(t, admin.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionAdministrator), *admin.DefaultMemberPermissions)
	require.Len(t, admin.Options, 5)
	viewlogs := admin.Options[3]
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, viewlogs.Type)
	require.NotNil(t, viewlogs.Options[0].MinValue)
	assert.Equal(t, 1.0, *viewlogs.Options[0].MinValue)
	assert.Equal(t, 50.0, viewlogs.Options[0].MaxValue)
	assert.Equal(t, []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}, admin.Options[2].Options[2].ChannelTypes)
	assert.Nil(t, cmds[0].DefaultMemberPermissions)
}

func TestTranslateError(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	assert.ErrorIs(t, translateError(notFound), platform.ErrNotFound)

	unknownRole := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadRequest},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownRole},
	}
	assert.ErrorIs(t, translateError(unknownRole), platform.ErrNotFound)

	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	assert.False(t, errors.Is(translateError(forbidden), platform.ErrNotFound))
	assert.NoError(t, translateError(nil))
}
