package core

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

type Ping struct {
	// Latency reports the gateway heartbeat latency.
	Latency func() time.Duration
}

func (c *Ping) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "ping",
		Description: "Check bot latency",
		Category:    command.CategoryInfo,
	}
}

func (c *Ping) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	return inv.Reply.ReplyEphemeral(ctx, c.payload())
}

func (c *Ping) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	_, err := msg.Reply.Reply(ctx, c.payload())
	return err
}

func (c *Ping) payload() nav.Payload {
	var ms int64
	if c.Latency != nil {
		ms = c.Latency().Milliseconds()
	}
	return nav.Payload{Embed: nav.Embed{
		Description: fmt.Sprintf("🏓 Pong! %dms", ms),
		Color:       nav.ColorDefault,
	}}
}
