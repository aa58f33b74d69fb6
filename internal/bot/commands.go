package bot

import (
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/platform"
)

// Slash command and subcommand names.
const (
	CommandTickets = "tickets"
	CommandOrders  = "orders"
	CommandRules   = "rules"
	CommandHealth  = "health"
	CommandAdmin   = "admin"

	AdminAddUser       = "adduser"
	AdminRemoveUser    = "removeuser"
	AdminCreateChannel = "createchannel"
	AdminViewLogs      = "viewlogs"
	AdminTickets       = "tickets"
)

// OptionType is the value kind of a command option.
type OptionType int

const (
	OptionString OptionType = iota + 1
	OptionInteger
	OptionUser
	OptionChannel
)

// OptionSpec declares one command option.
type OptionSpec struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	MinValue    int
	MaxValue    int
	// Category restricts a channel option to categories.
	Category bool
}

// CommandSpec declares a slash command or subcommand for registration.
type CommandSpec struct {
	Name        string
	Description string
	// DefaultPermission hides the command from members lacking it. Zero means everyone.
	DefaultPermission platform.Permission
	Options           []OptionSpec
	Subcommands       []CommandSpec
}

// Commands returns the slash commands the bot registers.
func Commands() []CommandSpec {
	return []CommandSpec{
		{Name: CommandTickets, Description: "Display the ticket creation panel"},
		{Name: CommandOrders, Description: "Display the order management panel", DefaultPermission: platform.PermManageMessages},
		{Name: CommandRules, Description: "Display the server rules with acceptance button"},
		{Name: CommandHealth, Description: "Check bot health status and API connectivity"},
		{
			Name:              CommandAdmin,
			Description:       "Admin commands for channel and user management",
			DefaultPermission: platform.PermAdministrator,
			Subcommands: []CommandSpec{
				{Name: AdminAddUser, Description: "Add a user to a channel", Options: []OptionSpec{
					{Name: "channel", Description: "The channel to add the user to", Type: OptionChannel, Required: true},
					{Name: "user", Description: "The user to add", Type: OptionUser, Required: true},
				}},
				{Name: AdminRemoveUser, Description: "Remove a user from a channel", Options: []OptionSpec{
					{Name: "channel", Description: "The channel to remove the user from", Type: OptionChannel, Required: true},
					{Name: "user", Description: "The user to remove", Type: OptionUser, Required: true},
				}},
				{Name: AdminCreateChannel, Description: "Create a channel for someone", Options: []OptionSpec{
					{Name: "name", Description: "The name of the channel", Type: OptionString, Required: true},
					{Name: "user", Description: "The user to create the channel for", Type: OptionUser, Required: true},
					{Name: "category", Description: "The category to place the channel in", Type: OptionChannel, Category: true},
				}},
				{Name: AdminViewLogs, Description: "View recent bot logs", Options: []OptionSpec{
					{Name: "count", Description: "Number of logs to show (default: 10)", Type: OptionInteger, MinValue: 1, MaxValue: 50},
				}},
				{Name: AdminTickets, Description: "View all open tickets"},
			},
		},
	}
}

// Command is an invoked slash command with its resolved options.
type Command struct {
	Name       string
	Subcommand string
	Strings    map[string]string
	Integers   map[string]int64
	Users      map[string]domain.Member
	Channels   map[string]platform.Channel
}

func (c Command) user(name string) (domain.Member, bool) {
	u, ok := c.Users[name]
	return u, ok
}

func (c Command) channel(name string) (platform.Channel, bool) {
	ch, ok := c.Channels[name]
	return ch, ok
}
