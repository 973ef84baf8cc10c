package discord

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/saga-bot/internal/ui/nav"
	"github.com/keshon/saga-bot/pkg/retrylimit"
)

// interactionReplier answers a slash command. The first reply uses the
// interaction response; later ones become followups.
type interactionReplier struct {
	b *Bot
	i *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

func (r *interactionReplier) Reply(ctx context.Context, p nav.Payload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.responded {
		return r.followup(ctx, p, 0)
	}
	if err := r.respond(ctx, messageData(p, 0)); err != nil {
		return "", err
	}
	var msg *discordgo.Message
	err := r.b.call(ctx, func(opts ...discordgo.RequestOption) (err error) {
		msg, err = r.b.dg.InteractionResponse(r.i, opts...)
		return err
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (r *interactionReplier) ReplyEphemeral(ctx context.Context, p nav.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.responded {
		_, err := r.followup(ctx, p, discordgo.MessageFlagsEphemeral)
		return err
	}
	return r.respond(ctx, messageData(p, discordgo.MessageFlagsEphemeral))
}

func (r *interactionReplier) respond(ctx context.Context, data *discordgo.InteractionResponseData) error {
	err := r.b.call(ctx, func(opts ...discordgo.RequestOption) error {
		return r.b.dg.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}, opts...)
	})
	if err == nil {
		r.responded = true
	}
	return err
}

func (r *interactionReplier) followup(ctx context.Context, p nav.Payload, flags discordgo.MessageFlags) (string, error) {
	var msg *discordgo.Message
	err := r.b.call(ctx, func(opts ...discordgo.RequestOption) (err error) {
		msg, err = r.b.dg.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
			Embeds:     []*discordgo.MessageEmbed{embedOf(p.Embed)},
			Components: componentsOf(p.Rows),
			Flags:      flags,
		}, opts...)
		return err
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// messageReplier answers a prefix command by replying to the message.
// Plain messages have no ephemeral variant, so both methods post visibly.
type messageReplier struct {
	b         *Bot
	channelID string
	ref       *discordgo.MessageReference
}

func (r *messageReplier) Reply(ctx context.Context, p nav.Payload) (string, error) {
	var msg *discordgo.Message
	err := r.b.call(ctx, func(opts ...discordgo.RequestOption) (err error) {
		msg, err = r.b.dg.ChannelMessageSendComplex(r.channelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{embedOf(p.Embed)},
			Components: componentsOf(p.Rows),
			Reference:  r.ref,
		}, opts...)
		return err
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (r *messageReplier) ReplyEphemeral(ctx context.Context, p nav.Payload) error {
	_, err := r.Reply(ctx, p)
	return err
}

// classifyREST reads the status of Discord REST failures. Rate limit errors
// are throttling; the rest follows the default rules.
func classifyREST(err error) retrylimit.Class {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return retrylimit.Throttled
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return retrylimit.ClassifyStatus(re.Response.StatusCode)
	}
	return retrylimit.DefaultClassifier(err)
}
