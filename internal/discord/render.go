package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Discord component limits.
const (
	maxRows          = 5
	maxButtonsPerRow = 5
	maxSelectOptions = 25
)

func embedOf(e nav.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if out.Color == 0 {
		out.Color = nav.ColorDefault
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return out
}

// componentsOf converts action rows. The result is never nil so an edit with
// no rows clears the previous controls.
func componentsOf(rows []nav.Row) []discordgo.MessageComponent {
	out := []discordgo.MessageComponent{}
	for _, row := range rows {
		if len(out) == maxRows {
			break
		}
		var comps []discordgo.MessageComponent
		for _, c := range row {
			if c.Kind == nav.KindSelect {
				// A select fills its row on its own.
				out = appendRow(out, comps)
				comps = nil
				if len(out) < maxRows {
					out = append(out, discordgo.ActionsRow{Components: []discordgo.MessageComponent{selectOf(c)}})
				}
				continue
			}
			if len(comps) == maxButtonsPerRow {
				out = appendRow(out, comps)
				comps = nil
			}
			comps = append(comps, buttonOf(c))
		}
		out = appendRow(out, comps)
	}
	return out
}

func appendRow(rows []discordgo.MessageComponent, comps []discordgo.MessageComponent) []discordgo.MessageComponent {
	if len(comps) == 0 || len(rows) == maxRows {
		return rows
	}
	return append(rows, discordgo.ActionsRow{Components: comps})
}

func buttonOf(c nav.Control) discordgo.Button {
	b := discordgo.Button{
		Label:    c.Label,
		Style:    buttonStyle(c.Style),
		CustomID: c.CustomID,
		Disabled: c.Disabled,
	}
	if c.Emoji != "" {
		b.Emoji = &discordgo.ComponentEmoji{Name: c.Emoji}
	}
	return b
}

func selectOf(c nav.Control) discordgo.SelectMenu {
	m := discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    c.CustomID,
		Placeholder: c.Placeholder,
		Disabled:    c.Disabled,
	}
	for i, o := range c.Options {
		if i == maxSelectOptions {
			break
		}
		m.Options = append(m.Options, discordgo.SelectMenuOption{
			Label:       o.Label,
			Value:       o.Value,
			Description: o.Description,
			Default:     o.Default,
		})
	}
	return m
}

func buttonStyle(s nav.Style) discordgo.ButtonStyle {
	switch s {
	case nav.StyleSecondary:
		return discordgo.SecondaryButton
	case nav.StyleSuccess:
		return discordgo.SuccessButton
	case nav.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// messageData is the response body for a payload.
func messageData(p nav.Payload, flags discordgo.MessageFlags) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embedOf(p.Embed)},
		Components: componentsOf(p.Rows),
		Flags:      flags,
	}
}

// responseOf maps a router response onto the interaction reply.
func responseOf(r nav.Response) *discordgo.InteractionResponse {
	switch r.Kind {
	case nav.ResponseUpdate:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: messageData(r.Payload, 0),
		}
	case nav.ResponseClose:
		p := r.Payload
		p.Rows = nil
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: messageData(p, 0),
		}
	default:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: r.Notice,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}
}
