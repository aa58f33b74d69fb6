package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/majstudio/community-bot/internal/bot"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
)

var optionTypes = map[bot.OptionType]discordgo.ApplicationCommandOptionType{
	bot.OptionString:  discordgo.ApplicationCommandOptionString,
	bot.OptionInteger: discordgo.ApplicationCommandOptionInteger,
	bot.OptionUser:    discordgo.ApplicationCommandOptionUser,
	bot.OptionChannel: discordgo.ApplicationCommandOptionChannel,
}

func toApplicationCommands(specs []bot.CommandSpec) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, spec := range specs {
		cmd := &discordgo.ApplicationCommand{Name: spec.Name, Description: spec.Description}
		if spec.DefaultPermission != 0 {
			perms := toDiscordPermissions(spec.DefaultPermission)
			cmd.DefaultMemberPermissions = &perms
		}
		for _, sub := range spec.Subcommands {
			cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        sub.Name,
				Description: sub.Description,
				Options:     toOptions(sub.Options),
			})
		}
		cmd.Options = append(cmd.Options, toOptions(spec.Options)...)
		out = append(out, cmd)
	}
	return out
}

func toOptions(specs []bot.OptionSpec) []*discordgo.ApplicationCommandOption {
	var out []*discordgo.ApplicationCommandOption
	for _, o := range specs {
		opt := &discordgo.ApplicationCommandOption{
			Type:        optionTypes[o.Type],
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		}
		if o.MinValue != 0 {
			minValue := float64(o.MinValue)
			opt.MinValue = &minValue
		}
		if o.MaxValue != 0 {
			opt.MaxValue = float64(o.MaxValue)
		}
		if o.Category {
			opt.ChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}
		}
		out = append(out, opt)
	}
	return out
}

// commandFrom flattens an invoked command, resolving user and channel options
// from the payload so no extra lookups are needed.
func commandFrom(data discordgo.ApplicationCommandInteractionData) bot.Command {
	cmd := bot.Command{
		Name:     data.Name,
		Strings:  map[string]string{},
		Integers: map[string]int64{},
		Users:    map[string]domain.Member{},
		Channels: map[string]platform.Channel{},
	}
	options := data.Options
	if len(options) == 1 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		cmd.Subcommand = options[0].Name
		options = options[0].Options
	}
	resolved := data.Resolved
	for _, o := range options {
		switch o.Type {
		case discordgo.ApplicationCommandOptionString:
			cmd.Strings[o.Name] = o.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			cmd.Integers[o.Name] = o.IntValue()
		case discordgo.ApplicationCommandOptionUser:
			user := o.UserValue(nil)
			var member *discordgo.Member
			if resolved != nil {
				if u, ok := resolved.Users[user.ID]; ok {
					user = u
				}
				member = resolved.Members[user.ID]
			}
			cmd.Users[o.Name] = fromMember(member, user)
		case discordgo.ApplicationCommandOptionChannel:
			ch := o.ChannelValue(nil)
			if resolved != nil {
				if c, ok := resolved.Channels[ch.ID]; ok {
					ch = c
				}
			}
			cmd.Channels[o.Name] = fromChannel(ch)
		}
	}
	return cmd
}
