// Package bot owns the Discord session and the polling schedule.
package bot

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tracker-bot/command"

	"github.com/bwmarrin/discordgo"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session   *discordgo.Session
	guildID   string
	scheduler *Scheduler
}

// NewBot creates and initializes a new Bot instance. An empty guildID
// registers commands globally.
func NewBot(token, guildID string) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		Session: dg,
		guildID: guildID,
	}, nil
}

// SetScheduler attaches the polling schedule started by Start.
func (b *Bot) SetScheduler(s *Scheduler) {
	b.scheduler = s
}

// RegisterCommands overwrites the application's slash commands with the current set.
func (b *Bot) RegisterCommands() error {
	if b.Session.State == nil || b.Session.State.User == nil {
		return fmt.Errorf("session is not open")
	}
	defs := command.GetCommandDefinitions()
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, b.guildID, defs); err != nil {
		return fmt.Errorf("cannot register commands: %w", err)
	}
	log.Printf("Registered %d commands", len(defs))
	return nil
}

// Start opens the bot's session, registers handlers and commands and starts the scheduler.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	err := b.Session.Open()
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if err := b.RegisterCommands(); err != nil {
		log.Printf("%v", err)
	}

	if b.scheduler != nil {
		if err := b.scheduler.Start(); err != nil {
			b.Session.Close()
			return err
		}
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run starts the bot and blocks until SIGINT or SIGTERM.
func (b *Bot) Run(registerHandlers func(*Bot)) error {
	if err := b.Start(registerHandlers); err != nil {
		return err
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	b.Stop()
	return nil
}
