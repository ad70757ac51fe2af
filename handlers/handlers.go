// Package handlers routes Discord interactions to the tracker.
package handlers

import (
	"context"
	"log"
	"time"

	"tracker-bot/bot"
	"tracker-bot/command"
	"tracker-bot/models"
	"tracker-bot/tracker"
	"tracker-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// interactionTimeout bounds the work done for a single interaction.
const interactionTimeout = 2 * time.Minute

// forceUpdateDays is the window of the debug menu's forced resync.
const forceUpdateDays = 30

// Service is the tracker surface moderators drive from Discord.
type Service interface {
	Approve(ctx context.Context, postID string, by models.Supervisor) error
	Deny(ctx context.Context, postID string, by models.Supervisor) error
	Switch(ctx context.Context, postID string, by models.Supervisor) (models.ApprovalStatus, error)

	PreviewAuthor(ctx context.Context, username string) (models.UserAbout, error)
	AddAuthor(ctx context.Context, username string, by models.Supervisor) (models.TrackedAuthor, error)
	SetAuthorStatus(ctx context.Context, username string, status models.AuthorStatus, by models.Supervisor) (models.TrackedAuthor, error)
	SetAuthorExpertise(ctx context.Context, username, expertise string, by models.Supervisor) (models.TrackedAuthor, error)
	SuspendAuthor(ctx context.Context, username string, by models.Supervisor) (models.TrackedAuthor, error)
	MassSuspend(ctx context.Context, usernames []string, by models.Supervisor) ([]string, error)
	OpenEditSession(ctx context.Context, username, messageID, channelID string) error
	CloseEditSession(ctx context.Context, username string) error
	ForceResync(ctx context.Context, days int, delay time.Duration) (int, error)
	Roster() *tracker.Roster
}

// Session is the part of *discordgo.Session the handlers use.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Options configures a Handler.
type Options struct {
	// ExpertiseMax caps the expertise text input.
	ExpertiseMax int
	// ResyncDelay is slept between threads during a forced resync.
	ResyncDelay time.Duration
	// BodyLimit caps quoted comment bodies on user cards.
	BodyLimit int
	// RegisterCommands re-registers the slash commands.
	RegisterCommands func() error
}

type commandRoute struct {
	level  int
	handle func(ctx context.Context, i *discordgo.InteractionCreate)
}

type actionRoute struct {
	level  int
	handle func(ctx context.Context, i *discordgo.InteractionCreate, arg string)
}

// Handler dispatches interactions. Long-running work started from an
// interaction outlives it and is bound to the root context instead.
type Handler struct {
	ctx     context.Context
	session Session
	service Service
	auth    *utils.Auth
	opts    Options

	commands map[string]commandRoute
	actions  map[command.Action]actionRoute
}

// New builds a Handler. ctx is the process root context.
func New(ctx context.Context, session Session, service Service, auth *utils.Auth, opts Options) *Handler {
	h := &Handler{
		ctx:     ctx,
		session: session,
		service: service,
		auth:    auth,
		opts:    opts,
	}

	h.commands = map[string]commandRoute{
		command.NameAddTracker:  {utils.PermissionManagement, h.handleAddTracker},
		command.NameEdit:        {utils.PermissionManagement, h.handleEdit},
		command.NameMassSuspend: {utils.PermissionManagement, h.handleMassSuspend},
		command.NameDebug:       {utils.PermissionFull, h.handleDebug},
		command.NamePing:        {utils.PermissionBasic, h.handlePing},
	}

	h.actions = map[command.Action]actionRoute{
		command.ActionApprovePost:      {utils.PermissionManagement, h.handleApprovePost},
		command.ActionDenyPost:         {utils.PermissionManagement, h.handleDenyPost},
		command.ActionSwitchPost:       {utils.PermissionManagement, h.handleSwitchPost},
		command.ActionConfirmAuthor:    {utils.PermissionManagement, h.handleConfirmAuthor},
		command.ActionCancelAuthor:     {utils.PermissionManagement, h.handleCancelAuthor},
		command.ActionChangeStatus:     {utils.PermissionManagement, h.handleChangeStatus},
		command.ActionEditExpertise:    {utils.PermissionManagement, h.handleEditExpertise},
		command.ActionSuspendAuthor:    {utils.PermissionManagement, h.handleSuspendAuthor},
		command.ActionCloseMenu:        {utils.PermissionManagement, h.handleCloseMenu},
		command.ActionExpertiseModal:   {utils.PermissionManagement, h.handleExpertiseModal},
		command.ActionMassSuspendModal: {utils.PermissionManagement, h.handleMassSuspendModal},
		command.ActionDebugMenu:        {utils.PermissionFull, h.handleDebugMenu},
	}
	return h
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	b.Session.AddHandler(h.InteractionCreate)

	// Add a ready handler to log when the bot is connected.
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
}

// supervisor identifies the moderator behind an interaction.
func supervisor(i *discordgo.InteractionCreate) models.Supervisor {
	user := utils.InteractionUser(i)
	if user == nil {
		return models.Supervisor{}
	}
	return models.Supervisor{Name: user.Username, ID: user.ID}
}
