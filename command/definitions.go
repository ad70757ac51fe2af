package command

import "github.com/bwmarrin/discordgo"

// Names of the slash commands.
const (
	NameAddTracker  = "addtracker"
	NameEdit        = "edit"
	NameMassSuspend = "mass_suspend_users"
	NameDebug       = "debug"
	NamePing        = "ping"
)

func usernameOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "username",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
	}
}

// AddTrackerCommand defines the structure for the /addtracker command.
type AddTrackerCommand struct{}

// Definition returns the application command definition.
func (c *AddTrackerCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NameAddTracker,
		Description: "Start tracking a Reddit user",
		Options: []*discordgo.ApplicationCommandOption{
			usernameOption("The Reddit username to track"),
		},
	}
}

// EditCommand defines the structure for the /edit command.
type EditCommand struct{}

// Definition returns the application command definition.
func (c *EditCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NameEdit,
		Description: "Open the edit menu of a tracked user",
		Options: []*discordgo.ApplicationCommandOption{
			usernameOption("The tracked Reddit username"),
		},
	}
}

// MassSuspendCommand defines the structure for the /mass_suspend_users command.
type MassSuspendCommand struct{}

// Definition returns the application command definition.
func (c *MassSuspendCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NameMassSuspend,
		Description: "Suspend several tracked users at once",
	}
}

// DebugCommand defines the structure for the /debug command.
type DebugCommand struct{}

// Definition returns the application command definition.
func (c *DebugCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NameDebug,
		Description: "Maintenance tools",
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NamePing,
		Description: "Responds with Pong!",
	}
}
