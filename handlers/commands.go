package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"tracker-bot/models"

	"github.com/bwmarrin/discordgo"
)

// failureMessage turns a service error into the reply shown to the moderator.
func failureMessage(action string, err error) string {
	var partial *models.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return fmt.Sprintf("⚠️ %s was saved, but %s failed: %v", action, partial.Step, partial.Err)
	case errors.Is(err, models.ErrInvalidState):
		return fmt.Sprintf("🚫 %s refused: %v", action, err)
	case errors.Is(err, models.ErrNotFound):
		return fmt.Sprintf("🚫 %s failed: nothing found (%v)", action, err)
	default:
		return fmt.Sprintf("🚫 %s failed: %v", action, err)
	}
}

func isPartial(err error) bool {
	var partial *models.PartialFailureError
	return errors.As(err, &partial)
}

func optionString(i *discordgo.InteractionCreate, name string) string {
	options := i.ApplicationCommandData().Options
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		optionMap[opt.Name] = opt
	}
	if opt, ok := optionMap[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

// handleAddTracker shows the user card of a prospective author with Confirm and Cancel.
func (h *Handler) handleAddTracker(ctx context.Context, i *discordgo.InteractionCreate) {
	username := optionString(i, "username")
	if username == "" {
		h.replyEphemeral(i, "🚫 A username is required.")
		return
	}
	if _, ok := h.service.Roster().Find(username); ok {
		h.replyEphemeral(i, "Target already exists.")
		return
	}

	// The card is deleted once answered, so it cannot be ephemeral.
	h.respond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource})

	about, err := h.service.PreviewAuthor(ctx, username)
	if err != nil {
		log.Printf("[handlers] failed to preview %s: %v", username, err)
		h.editResponse(i, failureMessage("Loading "+username, err))
		return
	}

	embeds := []*discordgo.MessageEmbed{userCardEmbed(about)}
	components := userCardComponents(about.Name)
	if _, err := h.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		log.Printf("[handlers] failed to show user card of %s: %v", username, err)
	}
}

// handleEdit opens the edit menu of a tracked author. Only one menu per author may be open.
func (h *Handler) handleEdit(ctx context.Context, i *discordgo.InteractionCreate) {
	username := optionString(i, "username")
	author, ok := h.service.Roster().Find(username)
	if !ok {
		h.replyEphemeral(i, "User doesn't exist in the Tracker.")
		return
	}
	if author.MessageID != "" {
		if _, err := h.session.ChannelMessage(author.ChannelID, author.MessageID); err == nil {
			h.replyEphemeral(i, "User already has an edit instance open.")
			return
		}
	}

	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{editMenuEmbed(author)},
			Components: editMenuComponents(author.Username),
		},
	})

	msg, err := h.session.InteractionResponse(i.Interaction)
	if err != nil {
		log.Printf("[handlers] failed to fetch edit menu of %s: %v", author.Username, err)
		return
	}
	if err := h.service.OpenEditSession(ctx, author.Username, msg.ID, msg.ChannelID); err != nil {
		log.Printf("[handlers] failed to store edit session of %s: %v", author.Username, err)
	}
}

func (h *Handler) handleMassSuspend(_ context.Context, i *discordgo.InteractionCreate) {
	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: massSuspendModal(),
	})
}

func (h *Handler) handleDebug(_ context.Context, i *discordgo.InteractionCreate) {
	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    "Debug Menu",
			Components: debugMenuComponents(),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// handlePing handles the logic for the /ping command.
func (h *Handler) handlePing(_ context.Context, i *discordgo.InteractionCreate) {
	h.replyEphemeral(i, "Pong")
}
