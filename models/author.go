package models

import "strings"

// AuthorStatus governs how posts from a tracked author are handled.
type AuthorStatus int

const (
	StatusUnknown   AuthorStatus = -1
	StatusSuspended AuthorStatus = 0
	StatusActive    AuthorStatus = 1
	StatusAutomatic AuthorStatus = 2
	StatusPaused    AuthorStatus = 3
)

// String returns the label shown to moderators.
func (s AuthorStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusAutomatic:
		return "Automatic"
	case StatusPaused:
		return "Paused"
	case StatusSuspended:
		return "Inactive"
	default:
		return "Unknown"
	}
}

// Emote returns the Discord emote used in roster listings.
func (s AuthorStatus) Emote() string {
	switch s {
	case StatusActive:
		return ":green_circle:"
	case StatusAutomatic:
		return ":purple_circle:"
	case StatusPaused:
		return ":orange_circle:"
	case StatusSuspended:
		return ":red_circle:"
	default:
		return ":o:"
	}
}

// Color returns the embed colour for the status.
func (s AuthorStatus) Color() int {
	switch s {
	case StatusActive:
		return 0x39DF55
	case StatusAutomatic:
		return 0x3A30FF
	case StatusPaused:
		return 0xFF0000
	case StatusSuspended:
		return 0xFF8080
	default:
		return 0x983356
	}
}

// TrackedAuthor is one roster entry.
type TrackedAuthor struct {
	Username  string       `db:"username"`
	Expertise string       `db:"expertise"`
	Status    AuthorStatus `db:"status"`
	// Open edit menu, empty when none.
	MessageID string `db:"managing_msg"`
	ChannelID string `db:"msg_channel"`
}

// Key is the canonical roster key for a username.
func Key(username string) string {
	return strings.ToLower(username)
}

// Supervisor identifies whoever performed a moderation action.
type Supervisor struct {
	Name string
	ID   string
}

// AutomaticSupervisor is recorded for posts approved by an Automatic author status.
var AutomaticSupervisor = Supervisor{Name: "Automatic", ID: "0"}
