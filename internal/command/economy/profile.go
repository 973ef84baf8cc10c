package economy

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

type Profile struct{}

func (c *Profile) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "profile",
		Description: "Show coins, level and inventory",
		Category:    command.CategoryEconomy,
		Aliases:     []string{"p", "bal"},
		Options: []command.Option{
			{Name: "user", Description: "Whose profile to show", Type: command.OptionUser},
		},
	}
}

func (c *Profile) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	p, err := c.payload(ctx, bag, inv.String("user"))
	if err != nil {
		return err
	}
	_, err = inv.Reply.Reply(ctx, p)
	return err
}

func (c *Profile) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	return c.RunSlash(ctx, bag, command.FromMessage(c.Register(), msg, args))
}

func (c *Profile) payload(ctx context.Context, bag *nav.Context, target string) (nav.Payload, error) {
	userID := bag.UserID
	if target != "" {
		userID = parseMention(target)
	}
	p, err := bag.DB.Player(ctx, userID)
	if err != nil {
		return nav.Payload{}, err
	}
	items, err := bag.DB.Inventory(ctx, userID)
	if err != nil {
		return nav.Payload{}, err
	}

	inv := "Empty"
	if len(items) > 0 {
		lines := make([]string, len(items))
		for i, it := range items {
			lines[i] = fmt.Sprintf("%s ×%d", bag.Content.ItemName(it.ID), it.Qty)
		}
		inv = strings.Join(lines, "\n")
	}
	return nav.Payload{Embed: nav.Embed{
		Title:       "Profile",
		Description: fmt.Sprintf("<@%s>", userID),
		Color:       nav.ColorDefault,
		Fields: []nav.Field{
			{Name: "Coins", Value: fmt.Sprintf("%d 🪙", p.Balance), Inline: true},
			{Name: "Level", Value: fmt.Sprintf("%d (%d xp)", p.Level(), p.XP), Inline: true},
			{Name: "Health", Value: fmt.Sprintf("%d/%d", p.HP, p.MaxHP), Inline: true},
			{Name: "Inventory", Value: inv},
		},
	}}, nil
}
