package discord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

// onMessageCreate runs prefix commands. A mention of the bot works as a
// prefix too.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID != "" && b.cfg.Blacklisted(m.GuildID) {
		return
	}

	msg := &command.Message{
		ID:       m.ID,
		Content:  m.Content,
		Username: m.Author.Username,
		Reply: &messageReplier{
			b:         b,
			channelID: m.ChannelID,
			ref:       m.Reference(),
		},
	}
	c := b.router.Deps().Context(m.Author.ID, m.GuildID, m.ChannelID)

	for _, prefix := range b.prefixes(m.GuildID) {
		if b.dispatcher.Prefix(b.ctx, c, msg, prefix) {
			return
		}
	}
}

func (b *Bot) prefixes(guildID string) []string {
	out := []string{b.cfg.CommandPrefix}
	if guildID != "" {
		out[0] = b.settings.Prefix(guildID, b.cfg.CommandPrefix)
	}
	if b.dg.State != nil && b.dg.State.User != nil {
		id := b.dg.State.User.ID
		out = append(out, "<@"+id+">", "<@!"+id+">")
	}
	return out
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID != "" && b.cfg.Blacklisted(i.GuildID) {
		return
	}
	user := interactionUser(i.Interaction)
	if user == nil {
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleSlash(i.Interaction, user)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(i.Interaction, user)
	}
}

func (b *Bot) handleSlash(i *discordgo.Interaction, user *discordgo.User) {
	data := i.ApplicationCommandData()
	inv := &command.Invocation{
		Name:     data.Name,
		Username: user.Username,
		Options:  optionValues(data.Options),
		Reply:    &interactionReplier{b: b, i: i},
	}
	c := b.router.Deps().Context(user.ID, i.GuildID, i.ChannelID)
	b.dispatcher.Slash(b.ctx, c, inv)
}

func (b *Bot) handleComponent(i *discordgo.Interaction, user *discordgo.User) {
	if i.Message == nil {
		return
	}
	data := i.MessageComponentData()
	resp := b.router.Dispatch(b.ctx, nav.Callback{
		UserID:    user.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		MessageID: i.Message.ID,
		CustomID:  data.CustomID,
		Values:    data.Values,
	})
	if resp.Err != nil {
		log.Debug().Err(resp.Err).Str("user", user.ID).Str("custom_id", data.CustomID).Msg("Callback not served")
	}

	// The reply gets its own budget.
	ctx, cancel := context.WithTimeout(b.ctx, nav.DefaultDeadline)
	defer cancel()
	err := b.call(ctx, func(opts ...discordgo.RequestOption) error {
		return b.dg.InteractionRespond(i, responseOf(resp), opts...)
	})
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Str("message", i.Message.ID).Msg("Failed to answer component")
	}
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// optionValues flattens slash options into strings keyed by name.
func optionValues(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionString:
			out[o.Name] = o.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			out[o.Name] = strconv.FormatInt(o.IntValue(), 10)
		case discordgo.ApplicationCommandOptionBoolean:
			out[o.Name] = strconv.FormatBool(o.BoolValue())
		default:
			// Users, channels and roles arrive as snowflakes.
			out[o.Name] = fmt.Sprint(o.Value)
		}
	}
	return out
}
