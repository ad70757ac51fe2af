package utils

import (
	"tracker-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Permission levels granted through the users section of the config.
const (
	PermissionBasic      = 0
	PermissionManagement = 1
	PermissionFull       = 2
)

// Auth provides methods for authorization checks.
type Auth struct {
	levels map[string]int
}

// NewAuth builds the user id -> level table from the configured users.
func NewAuth(users map[string]models.UserConfig) *Auth {
	levels := make(map[string]int, len(users))
	for _, u := range users {
		levels[u.UserID] = u.PermissionLevel
	}
	return &Auth{levels: levels}
}

// Level returns the permission level of a user. Unknown users are basic.
func (a *Auth) Level(userID string) int {
	if level, ok := a.levels[userID]; ok {
		return level
	}
	return PermissionBasic
}

// Allowed reports whether a user holds at least the required level.
func (a *Auth) Allowed(userID string, required int) bool {
	return a.Level(userID) >= required
}

// CheckPermission checks the interaction's invoker against the required level.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, required int) bool {
	user := InteractionUser(i)
	if user == nil {
		return false
	}
	return a.Allowed(user.ID, required)
}

// InteractionUser returns the invoking user for guild and DM interactions alike.
func InteractionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
