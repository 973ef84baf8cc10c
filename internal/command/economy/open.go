package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Open unpacks a loot container from the player's inventory.
type Open struct {
	Dice *content.Dice
	// Containers feeds the slash option choices.
	Containers []content.Container
}

func (c *Open) Register() command.Descriptor {
	opt := command.Option{Name: "item", Description: "Container to open", Type: command.OptionString}
	for _, ct := range c.Containers {
		opt.Choices = append(opt.Choices, command.Choice{Name: ct.Name, Value: ct.ID})
	}
	return command.Descriptor{
		Name:        "open",
		Description: "Open a crate or chest from your inventory",
		Category:    command.CategoryEconomy,
		Aliases:     []string{"unbox"},
		Options:     []command.Option{opt},
	}
}

func (c *Open) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	id := inv.String("item")
	if id == "" {
		var err error
		if id, err = c.firstContainer(ctx, bag); err != nil {
			return err
		}
	}
	ct, ok := bag.Content.Container(id)
	if !ok {
		return command.Fail("`%s` cannot be opened.", id)
	}

	roll := c.Dice.Loot(ct)
	err := bag.DB.OpenContainer(ctx, bag.UserID, ct.ID, storage.Loot{Item: roll.Item, Qty: roll.Qty, Coins: roll.Coins})
	if errors.Is(err, storage.ErrNoItem) {
		return command.Fail("You have no %s.", ct.Name)
	}
	if err != nil {
		return err
	}

	_, err = inv.Reply.Reply(ctx, nav.Payload{Embed: nav.Embed{
		Title:       "You open the " + ct.Name,
		Description: describeLoot(bag.Content, roll),
		Color:       nav.ColorDefault,
	}})
	return err
}

func (c *Open) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	return c.RunSlash(ctx, bag, command.FromMessage(c.Register(), msg, args))
}

func (c *Open) firstContainer(ctx context.Context, bag *nav.Context) (string, error) {
	items, err := bag.DB.Inventory(ctx, bag.UserID)
	if err != nil {
		return "", err
	}
	for _, it := range items {
		if _, ok := bag.Content.Container(it.ID); ok {
			return it.ID, nil
		}
	}
	return "", command.Fail("You have nothing to open.")
}

func describeLoot(cat *content.Catalog, l content.LootEntry) string {
	switch {
	case l.Item != "" && l.Coins != 0:
		return fmt.Sprintf("Inside: **%s ×%d** and **%d** 🪙", cat.ItemName(l.Item), l.Qty, l.Coins)
	case l.Item != "":
		return fmt.Sprintf("Inside: **%s ×%d**", cat.ItemName(l.Item), l.Qty)
	}
	return fmt.Sprintf("Inside: **%d** 🪙", l.Coins)
}
