package handlers

import (
	"context"
	"log"

	"tracker-bot/command"

	"github.com/bwmarrin/discordgo"
)

const (
	msgNoPermission   = "🚫 You do not have permission to do this."
	msgUnknownCommand = "🚫 Internal error: unknown command."
)

// InteractionCreate handles slash commands, component clicks and modal submissions.
func (h *Handler) InteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(h.ctx, interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.dispatchCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		h.dispatchAction(ctx, i, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		h.dispatchAction(ctx, i, i.ModalSubmitData().CustomID)
	}
}

// dispatchCommand performs the permission check and hands the command to its handler.
func (h *Handler) dispatchCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	route, ok := h.commands[name]
	if !ok {
		log.Printf("[handlers] unknown command %q", name)
		h.replyEphemeral(i, msgUnknownCommand)
		return
	}
	if !h.auth.CheckPermission(i, route.level) {
		h.replyEphemeral(i, msgNoPermission)
		return
	}
	route.handle(ctx, i)
}

func (h *Handler) dispatchAction(ctx context.Context, i *discordgo.InteractionCreate, customID string) {
	action, arg := command.ParseCustomID(customID)
	route, ok := h.actions[action]
	if !ok {
		log.Printf("[handlers] unknown component %q", customID)
		h.replyEphemeral(i, msgUnknownCommand)
		return
	}
	if !h.auth.CheckPermission(i, route.level) {
		h.replyEphemeral(i, msgNoPermission)
		return
	}
	route.handle(ctx, i, arg)
}

func (h *Handler) respond(i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := h.session.InteractionRespond(i.Interaction, resp); err != nil {
		log.Printf("[handlers] failed to respond to interaction %s: %v", i.ID, err)
	}
}

func (h *Handler) replyEphemeral(i *discordgo.InteractionCreate, content string) {
	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// deferEphemeral acknowledges an interaction whose answer comes through editResponse.
func (h *Handler) deferEphemeral(i *discordgo.InteractionCreate) {
	h.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (h *Handler) editResponse(i *discordgo.InteractionCreate, content string) {
	if _, err := h.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Printf("[handlers] failed to edit response of interaction %s: %v", i.ID, err)
	}
}

// deleteSourceMessage removes the message carrying the clicked component.
func (h *Handler) deleteSourceMessage(i *discordgo.InteractionCreate) {
	if i.Message == nil {
		return
	}
	if err := h.session.ChannelMessageDelete(i.Message.ChannelID, i.Message.ID); err != nil {
		log.Printf("[handlers] failed to delete message %s: %v", i.Message.ID, err)
	}
}
