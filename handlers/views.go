package handlers

import (
	"fmt"
	"strings"

	"tracker-bot/command"
	"tracker-bot/models"
	"tracker-bot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPending  = 0xFF8300
	colorUserCard = 0xFF0000
	colorSwitch   = 0xD133FF

	// embedFieldLimit is the number of fields Discord accepts per embed.
	embedFieldLimit = 25
	// userCardCommentLimit caps each recent comment on a user card.
	userCardCommentLimit = 150
)

// userCardEmbed shows a source account with its recent comments.
func userCardEmbed(about models.UserAbout) *discordgo.MessageEmbed {
	profile := fmt.Sprintf("https://www.reddit.com/user/%s/", about.Name)

	var recent strings.Builder
	recent.WriteString(">>> ")
	if len(about.Comments) == 0 {
		recent.WriteString("No Recent Comments")
	}
	for _, c := range about.Comments {
		fmt.Fprintf(&recent, "%s\n%s\n\n", utils.DiscordTimestamp(c.Created), utils.SmartSubstring(c.Body, '.', userCardCommentLimit))
	}

	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    about.Name,
			URL:     profile,
			IconURL: about.IconURL,
		},
		Color:       colorUserCard,
		Description: fmt.Sprintf("Account Created: %s\n%s", utils.DiscordTimestamp(about.Created), profile),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Recent Comments", Value: strings.TrimRight(recent.String(), "\n")},
		},
	}
}

func userCardComponents(username string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Confirm",
				Style:    discordgo.SuccessButton,
				CustomID: command.CustomID(command.ActionConfirmAuthor, username),
			},
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.DangerButton,
				CustomID: command.CustomID(command.ActionCancelAuthor, ""),
			},
		}},
	}
}

// editMenuEmbed summarises a tracked author in the edit menu.
func editMenuEmbed(author models.TrackedAuthor) *discordgo.MessageEmbed {
	expertise := author.Expertise
	if expertise == "" {
		expertise = "Unassigned"
	}
	return &discordgo.MessageEmbed{
		Title:       author.Username,
		Color:       author.Status.Color(),
		Description: "Expertise: " + expertise,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: author.Status.Emote() + " " + author.Status.String()},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Changes are applied immediately"},
	}
}

func editMenuComponents(username string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    command.CustomID(command.ActionChangeStatus, username),
				Placeholder: "Change Status",
				Options: []discordgo.SelectMenuOption{
					{Label: "Enable", Value: command.StatusOptionEnable, Description: "Enable Tracking", Emoji: &discordgo.ComponentEmoji{Name: "🟢"}},
					{Label: "Disable", Value: command.StatusOptionDisable, Description: "Disable Tracking", Emoji: &discordgo.ComponentEmoji{Name: "🟠"}},
					{Label: "Automatic", Value: command.StatusOptionAuto, Description: "Automatically Approve All Posts", Emoji: &discordgo.ComponentEmoji{Name: "🟣"}},
				},
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Edit Expertise",
				Style:    discordgo.PrimaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "📝"},
				CustomID: command.CustomID(command.ActionEditExpertise, username),
			},
			discordgo.Button{
				Label:    "Suspend User",
				Style:    discordgo.DangerButton,
				CustomID: command.CustomID(command.ActionSuspendAuthor, username),
			},
			discordgo.Button{
				Label:    "Close Menu",
				Style:    discordgo.SecondaryButton,
				CustomID: command.CustomID(command.ActionCloseMenu, username),
			},
		}},
	}
}

// statusFromOption maps an edit menu select value to an author status.
func statusFromOption(value string) (models.AuthorStatus, bool) {
	switch value {
	case command.StatusOptionEnable:
		return models.StatusActive, true
	case command.StatusOptionDisable:
		return models.StatusPaused, true
	case command.StatusOptionAuto:
		return models.StatusAutomatic, true
	default:
		return models.StatusUnknown, false
	}
}

func expertiseModal(username string, maxLen int) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: command.CustomID(command.ActionExpertiseModal, username),
		Title:    "Edit Expertise",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  command.ExpertiseInputID,
					Label:     "Expertise",
					Style:     discordgo.TextInputShort,
					MaxLength: maxLen,
				},
			}},
		},
	}
}

func massSuspendModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: command.CustomID(command.ActionMassSuspendModal, ""),
		Title:    "Mass Remove Users (Separate with newline)",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  command.MassSuspendInputID,
					Label:     "Mass Remove Users",
					Style:     discordgo.TextInputParagraph,
					Required:  true,
					MinLength: 1,
					MaxLength: 1000,
				},
			}},
		},
	}
}

func debugMenuComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    command.CustomID(command.ActionDebugMenu, ""),
				Placeholder: "Debug Action",
				Options: []discordgo.SelectMenuOption{
					{Label: "Ping", Value: command.DebugPing},
					{Label: "List Tracked Users", Value: command.DebugListAuthors},
					{Label: fmt.Sprintf("Force Update Posts <%d Days", forceUpdateDays), Value: command.DebugForceUpdate},
					{Label: "Register Commands", Value: command.DebugRegisterCommands},
				},
			},
		}},
	}
}

// rosterEmbeds lists the roster as a header embed followed by pages of at
// most embedFieldLimit fields.
func rosterEmbeds(authors []models.TrackedAuthor) []*discordgo.MessageEmbed {
	embeds := []*discordgo.MessageEmbed{{
		Title: fmt.Sprintf("%d Users Tracked", len(authors)),
		Color: colorPending,
	}}
	for start := 0; start < len(authors); start += embedFieldLimit {
		end := min(start+embedFieldLimit, len(authors))
		page := &discordgo.MessageEmbed{}
		for _, a := range authors[start:end] {
			page.Fields = append(page.Fields, &discordgo.MessageEmbedField{
				Name:   a.Username,
				Value:  fmt.Sprintf("%s\n%s %s", a.Expertise, a.Status.Emote(), a.Status),
				Inline: true,
			})
		}
		embeds = append(embeds, page)
	}
	return embeds
}

func switchEmbed(status models.ApprovalStatus, by models.Supervisor) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:  "Comment Status Changed",
		Color:  colorSwitch,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Changed to %s by: %s", status, by.Name)},
	}
}

// modalValue returns the value of the text input with the given id.
func modalValue(data discordgo.ModalSubmitInteractionData, id string) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == id {
				return input.Value
			}
		}
	}
	return ""
}
