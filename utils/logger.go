package utils

import (
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelColors = map[string]int{
	LevelInfo:  0x00ff00,
	LevelWarn:  0xffff00,
	LevelError: 0xff0000,
}

var (
	session   *discordgo.Session
	channelID string
)

// Entry is one operational log record for the admin channel.
type Entry struct {
	Level     string
	Module    string
	Operation string
	Details   string
	// CycleID ties the record to a polling cycle; empty outside one.
	CycleID string
}

// InitLogger initializes the logger with a Discord session and the admin channel.
func InitLogger(s *discordgo.Session, adminChannelID string) {
	session = s
	channelID = adminChannelID
	if channelID == "" {
		log.Println("Warning: bot.admin_channel_id is not set. Logging to channel will be disabled.")
	}
}

// Write sends e to the process log and, when configured, to the admin channel.
func Write(e Entry) {
	if e.CycleID != "" {
		log.Printf("[%s] Module: %s, Operation: %s, Cycle: %s, Details: %s", e.Level, e.Module, e.Operation, e.CycleID, e.Details)
	} else {
		log.Printf("[%s] Module: %s, Operation: %s, Details: %s", e.Level, e.Module, e.Operation, e.Details)
	}
	if session == nil || channelID == "" {
		return
	}

	if _, err := session.ChannelMessageSendEmbed(channelID, LogEmbed(e, time.Now())); err != nil {
		log.Printf("Error sending log message to Discord: %v", err)
	}
}

// LogEmbed renders e as an admin channel embed stamped with at.
func LogEmbed(e Entry, at time.Time) *discordgo.MessageEmbed {
	color, ok := levelColors[e.Level]
	if !ok {
		color = levelColors[LevelInfo]
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Module", Value: e.Module, Inline: true},
		{Name: "Operation", Value: e.Operation, Inline: true},
	}
	if e.CycleID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Cycle", Value: e.CycleID, Inline: true})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name:  "Details",
		Value: SmartSubstring(e.Details, ' ', EmbedFieldLimit-utf8.RuneCountInString(TruncationMarker)),
	})

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", e.Level),
		Color:     color,
		Timestamp: at.Format(time.RFC3339),
		Fields:    fields,
	}
}

// Log writes an entry outside any polling cycle.
func Log(level, module, operation, details string) {
	Write(Entry{Level: level, Module: module, Operation: operation, Details: details})
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log(LevelInfo, module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log(LevelWarn, module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log(LevelError, module, operation, details)
}
