package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
	"github.com/keshon/saga-bot/pkg/util"
)

// HistorySource returns the recent commands of a guild, oldest first.
type HistorySource interface {
	CommandHistory(guildID string) ([]storage.CommandHistoryRecord, error)
}

type History struct {
	Store HistorySource
}

func (c *History) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "history",
		Description: "Show recent commands used on this server",
		Category:    command.CategoryInfo,
		Aliases:     []string{"log"},
	}
}

func (c *History) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	p, err := c.payload(bag)
	if err != nil {
		return err
	}
	return inv.Reply.ReplyEphemeral(ctx, p)
}

func (c *History) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	p, err := c.payload(bag)
	if err != nil {
		return err
	}
	_, err = msg.Reply.Reply(ctx, p)
	return err
}

func (c *History) payload(bag *nav.Context) (nav.Payload, error) {
	if bag.GuildID == "" {
		return nav.Payload{}, command.Fail("History is only kept for servers.")
	}
	recs, err := c.Store.CommandHistory(bag.GuildID)
	if err != nil {
		return nav.Payload{}, fmt.Errorf("read history: %w", err)
	}
	if len(recs) == 0 {
		return nav.Notice("History", "No commands yet."), nil
	}

	var sb strings.Builder
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		line := fmt.Sprintf("`%s` **%s** used `%s`", util.FormatDateTpl(r.Datetime, "DD.MM hh:mm"), r.Username, r.Command)
		if r.Param != "" {
			line += " " + r.Param
		}
		sb.WriteString(line + "\n")
	}
	return nav.Payload{Embed: nav.Embed{
		Title:       "Recent commands",
		Description: sb.String(),
		Color:       nav.ColorDefault,
	}}, nil
}
