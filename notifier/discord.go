// Package notifier posts approval requests and moderation logs to Discord.
package notifier

import (
	"context"
	"fmt"
	"time"

	"tracker-bot/command"
	"tracker-bot/models"
	"tracker-bot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	redditURL = "https://www.reddit.com"

	colorPending  = 0xFF8300
	colorApproved = 0x00FF00
	colorDenied   = 0xFF0000
)

// MessageSender is the part of *discordgo.Session the notifier uses.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord delivers tracker notifications to the approval and log channels.
type Discord struct {
	sender            MessageSender
	approvalChannelID string
	logChannelID      string
	bodyLimit         int
}

// NewDiscord creates a notifier. bodyLimit caps quoted post bodies.
func NewDiscord(sender MessageSender, approvalChannelID, logChannelID string, bodyLimit int) *Discord {
	return &Discord{
		sender:            sender,
		approvalChannelID: approvalChannelID,
		logChannelID:      logChannelID,
		bodyLimit:         bodyLimit,
	}
}

func (d *Discord) send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	if channelID == "" {
		return fmt.Errorf("no channel configured")
	}
	if _, err := d.sender.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// PostApprovalRequest sends an approval request with Approve and Reject buttons.
func (d *Discord) PostApprovalRequest(ctx context.Context, req models.ApprovalRequest) error {
	return d.send(ctx, d.approvalChannelID, ApprovalMessage(req, d.bodyLimit))
}

// PostModerationLog records an approve or deny decision in the log channel.
func (d *Discord) PostModerationLog(ctx context.Context, entry models.ModerationEntry) error {
	return d.send(ctx, d.logChannelID, ModerationLogMessage(entry, d.bodyLimit))
}

// PostStatusChange records an author status change in the log channel.
func (d *Discord) PostStatusChange(ctx context.Context, author models.TrackedAuthor, from models.AuthorStatus, by models.Supervisor) error {
	return d.send(ctx, d.logChannelID, StatusChangeMessage(author, from, by))
}

// PostExpertiseChange records an expertise change in the log channel.
func (d *Discord) PostExpertiseChange(ctx context.Context, author models.TrackedAuthor, by models.Supervisor) error {
	return d.send(ctx, d.logChannelID, ExpertiseChangeMessage(author, by))
}

func forumTitle(forum string) string {
	return "r/" + forum
}

// ApprovalMessage builds the approval request for a post.
func ApprovalMessage(req models.ApprovalRequest, bodyLimit int) *discordgo.MessageSend {
	p := req.Post
	quoted := "> Response to Thread"
	if req.Context != "" {
		quoted = utils.FormatForDiscord(req.Context, bodyLimit)
	}

	embed := &discordgo.MessageEmbed{
		Title:       forumTitle(p.Forum),
		Color:       colorPending,
		Description: p.Author,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Post Link", Value: redditURL + p.Permalink + "?context=1"},
			{Name: "Context", Value: quoted},
			{Name: "Post Text", Value: utils.FormatForDiscord(p.Body, bodyLimit)},
		},
		Timestamp: time.Unix(p.Created, 0).UTC().Format(time.RFC3339),
	}
	if req.Author.Expertise != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: req.Author.Expertise}
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: command.CustomID(command.ActionApprovePost, p.ID),
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: command.CustomID(command.ActionDenyPost, p.ID),
				},
			}},
		},
	}
}

// DigestLink is the absolute link to a thread's digest post.
func DigestLink(forum, threadID, digestPostID string) string {
	return fmt.Sprintf("%s/r/%s/comments/%s/-/%s/", redditURL, forum, threadID, digestPostID)
}

// ModerationLogMessage builds the log entry for a moderation decision. Valid
// entries carry a button reversing the decision.
func ModerationLogMessage(entry models.ModerationEntry, bodyLimit int) *discordgo.MessageSend {
	p := entry.Post
	color, action := colorDenied, "Denied by: "
	if entry.Approved {
		color, action = colorApproved, "Approved by: "
	}

	embed := &discordgo.MessageEmbed{
		Title:       forumTitle(entry.Forum),
		Color:       color,
		Description: p.Author,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Post Link", Value: redditURL + p.Permalink},
			{Name: "Post Text", Value: utils.FormatForDiscord(p.Body, bodyLimit)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: action + entry.Supervisor},
	}
	if entry.Approved && entry.DigestPostID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Sticky Link",
			Value: DigestLink(entry.Forum, p.ThreadID, entry.DigestPostID),
		})
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if !entry.Invalid {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Reverse Action",
					Style:    discordgo.PrimaryButton,
					CustomID: command.CustomID(command.ActionSwitchPost, p.ID),
				},
			}},
		}
	}
	return msg
}

// StatusChangeMessage builds the log entry for an author status change.
func StatusChangeMessage(author models.TrackedAuthor, from models.AuthorStatus, by models.Supervisor) *discordgo.MessageSend {
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title: "Status Changed",
		Color: author.Status.Color(),
		Fields: []*discordgo.MessageEmbedField{{
			Name:  author.Username,
			Value: fmt.Sprintf("%s ⟶ %s", from, author.Status),
		}},
		Footer: &discordgo.MessageEmbedFooter{Text: by.Name},
	}}}
}

// ExpertiseChangeMessage builds the log entry for an expertise change.
func ExpertiseChangeMessage(author models.TrackedAuthor, by models.Supervisor) *discordgo.MessageSend {
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title: "Expertise Changed",
		Fields: []*discordgo.MessageEmbedField{{
			Name:  author.Username,
			Value: "Assigned: " + author.Expertise,
		}},
		Footer: &discordgo.MessageEmbedFooter{Text: by.Name},
	}}}
}
