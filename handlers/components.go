package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"tracker-bot/command"
	"tracker-bot/models"
	"tracker-bot/tracker"
	"tracker-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// maxEmbedsPerMessage is the number of embeds Discord accepts per message.
const maxEmbedsPerMessage = 10

// moderate runs an approve or deny click. The request message is removed
// once the decision is stored, including when a later step failed.
func (h *Handler) moderate(i *discordgo.InteractionCreate, action string, err error) {
	switch {
	case err == nil:
		h.deleteSourceMessage(i)
		h.editResponse(i, "✅ "+action+" recorded.")
	case errors.Is(err, models.ErrInvalidState):
		h.deleteSourceMessage(i)
		h.editResponse(i, "🚫 The post was deleted and has been logged as invalid.")
	case isPartial(err):
		h.deleteSourceMessage(i)
		h.editResponse(i, failureMessage(action, err))
	default:
		log.Printf("[handlers] %s failed: %v", action, err)
		h.editResponse(i, failureMessage(action, err))
	}
}

func (h *Handler) handleApprovePost(ctx context.Context, i *discordgo.InteractionCreate, postID string) {
	h.deferEphemeral(i)
	h.moderate(i, "Approval", h.service.Approve(ctx, postID, supervisor(i)))
}

func (h *Handler) handleDenyPost(ctx context.Context, i *discordgo.InteractionCreate, postID string) {
	h.deferEphemeral(i)
	h.moderate(i, "Denial", h.service.Deny(ctx, postID, supervisor(i)))
}

// handleSwitchPost reverses a logged decision and answers in the log channel.
func (h *Handler) handleSwitchPost(ctx context.Context, i *discordgo.InteractionCreate, postID string) {
	h.respond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource})

	by := supervisor(i)
	status, err := h.service.Switch(ctx, postID, by)
	if err != nil && !isPartial(err) {
		log.Printf("[handlers] switch of %s failed: %v", postID, err)
		h.editResponse(i, failureMessage("Reversal", err))
		return
	}

	edit := &discordgo.WebhookEdit{Embeds: &[]*discordgo.MessageEmbed{switchEmbed(status, by)}}
	if err != nil {
		content := failureMessage("Reversal", err)
		edit.Content = &content
	}
	if _, err := h.session.InteractionResponseEdit(i.Interaction, edit); err != nil {
		log.Printf("[handlers] failed to answer switch of %s: %v", postID, err)
	}
}

func (h *Handler) handleConfirmAuthor(ctx context.Context, i *discordgo.InteractionCreate, username string) {
	h.deferEphemeral(i)
	author, err := h.service.AddAuthor(ctx, username, supervisor(i))
	switch {
	case err == nil:
		h.deleteSourceMessage(i)
		utils.Info("handlers", "add author", fmt.Sprintf("%s added %s", supervisor(i).Name, author.Username))
		h.editResponse(i, fmt.Sprintf("✅ Now tracking **%s**.", author.Username))
	case errors.Is(err, tracker.ErrAlreadyTracked):
		h.deleteSourceMessage(i)
		h.editResponse(i, "Target already exists.")
	default:
		log.Printf("[handlers] failed to add %s: %v", username, err)
		h.editResponse(i, failureMessage("Adding "+username, err))
	}
}

func (h *Handler) handleCancelAuthor(_ context.Context, i *discordgo.InteractionCreate, _ string) {
	h.respond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
	h.deleteSourceMessage(i)
}

// handleChangeStatus applies the status picked in the edit menu and refreshes the menu.
func (h *Handler) handleChangeStatus(ctx context.Context, i *discordgo.InteractionCreate, username string) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		h.replyEphemeral(i, "Invalid Status Applied.")
		return
	}
	status, ok := statusFromOption(values[0])
	if !ok {
		h.replyEphemeral(i, "Invalid Status Applied.")
		return
	}

	author, err := h.service.SetAuthorStatus(ctx, username, status, supervisor(i))
	if err != nil && !isPartial(err) {
		log.Printf("[handlers] failed to change status of %s: %v", username, err)
		h.replyEphemeral(i, failureMessage("Status change", err))
		return
	}

	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{editMenuEmbed(author)},
			Components: editMenuComponents(author.Username),
		},
	})
	if err != nil {
		h.followupEphemeral(i, failureMessage("Status change", err))
	}
}

func (h *Handler) handleEditExpertise(_ context.Context, i *discordgo.InteractionCreate, username string) {
	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: expertiseModal(username, h.opts.ExpertiseMax),
	})
}

func (h *Handler) handleExpertiseModal(ctx context.Context, i *discordgo.InteractionCreate, username string) {
	expertise := modalValue(i.ModalSubmitData(), command.ExpertiseInputID)
	if _, err := h.service.SetAuthorExpertise(ctx, username, expertise, supervisor(i)); err != nil {
		log.Printf("[handlers] failed to change expertise of %s: %v", username, err)
		h.replyEphemeral(i, failureMessage("Expertise change", err))
		return
	}
	h.replyEphemeral(i, "Expertise Changed.")
}

// handleSuspendAuthor suspends the author and replaces the edit menu with a notice.
func (h *Handler) handleSuspendAuthor(ctx context.Context, i *discordgo.InteractionCreate, username string) {
	author, err := h.service.SuspendAuthor(ctx, username, supervisor(i))
	if err != nil && !isPartial(err) {
		log.Printf("[handlers] failed to suspend %s: %v", username, err)
		h.replyEphemeral(i, failureMessage("Suspension", err))
		return
	}

	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("**%s** has been suspended.", author.Username),
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		h.followupEphemeral(i, failureMessage("Suspension", err))
	}
}

func (h *Handler) handleCloseMenu(ctx context.Context, i *discordgo.InteractionCreate, username string) {
	h.respond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
	if err := h.service.CloseEditSession(ctx, username); err != nil {
		log.Printf("[handlers] failed to close edit session of %s: %v", username, err)
	}
	h.deleteSourceMessage(i)
}

// handleMassSuspendModal suspends every newline-separated username of the modal.
func (h *Handler) handleMassSuspendModal(ctx context.Context, i *discordgo.InteractionCreate, _ string) {
	names := strings.Split(modalValue(i.ModalSubmitData(), command.MassSuspendInputID), "\n")
	h.deferEphemeral(i)

	suspended, err := h.service.MassSuspend(ctx, names, supervisor(i))
	content := fmt.Sprintf("Suspended %d users", len(suspended))
	if len(suspended) > 0 {
		content += ": " + strings.Join(suspended, ", ")
	}
	if err != nil {
		log.Printf("[handlers] mass suspend: %v", err)
		content += "\n" + utils.SmartSubstring(fmt.Sprintf("Errors: %v", err), '\n', 1500)
	}
	h.editResponse(i, content)
}

func (h *Handler) handleDebugMenu(_ context.Context, i *discordgo.InteractionCreate, _ string) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		h.replyEphemeral(i, msgUnknownCommand)
		return
	}

	switch values[0] {
	case command.DebugPing:
		h.replyEphemeral(i, "Pong!")
	case command.DebugListAuthors:
		h.listAuthors(i)
	case command.DebugForceUpdate:
		h.replyEphemeral(i, "Force Updating")
		go h.forceUpdate(supervisor(i))
	case command.DebugRegisterCommands:
		h.deferEphemeral(i)
		if h.opts.RegisterCommands == nil {
			h.editResponse(i, "🚫 Command registration is not available.")
			return
		}
		if err := h.opts.RegisterCommands(); err != nil {
			h.editResponse(i, failureMessage("Command registration", err))
			return
		}
		h.editResponse(i, "✅ Commands registered.")
	default:
		h.replyEphemeral(i, msgUnknownCommand)
	}
}

// listAuthors answers with the roster, split over as many messages as Discord requires.
func (h *Handler) listAuthors(i *discordgo.InteractionCreate) {
	h.deferEphemeral(i)
	embeds := rosterEmbeds(h.service.Roster().List())

	first := embeds[:min(maxEmbedsPerMessage, len(embeds))]
	if _, err := h.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &first}); err != nil {
		log.Printf("[handlers] failed to list authors: %v", err)
		return
	}
	for start := maxEmbedsPerMessage; start < len(embeds); start += maxEmbedsPerMessage {
		page := embeds[start:min(start+maxEmbedsPerMessage, len(embeds))]
		if _, err := h.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Embeds: page,
			Flags:  discordgo.MessageFlagsEphemeral,
		}); err != nil {
			log.Printf("[handlers] failed to list authors: %v", err)
			return
		}
	}
}

// forceUpdate runs a forced resync in the background, bound to the root context.
func (h *Handler) forceUpdate(by models.Supervisor) {
	utils.Info("handlers", "force update", fmt.Sprintf("%s started a forced update of the last %d days", by.Name, forceUpdateDays))
	n, err := h.service.ForceResync(h.ctx, forceUpdateDays, h.opts.ResyncDelay)
	if err != nil {
		utils.Error("handlers", "force update", fmt.Sprintf("forced update stopped after refreshing %d posts: %v", n, err))
		return
	}
	utils.Info("handlers", "force update", fmt.Sprintf("forced update refreshed %d posts", n))
}

func (h *Handler) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	if _, err := h.session.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		log.Printf("[handlers] failed to send followup for interaction %s: %v", i.ID, err)
	}
}
