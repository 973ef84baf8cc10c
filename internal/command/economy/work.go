package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
	"github.com/keshon/saga-bot/pkg/util"
)

type Work struct {
	Dice *content.Dice
}

func (c *Work) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "work",
		Description: "Take a shift and earn some coins",
		Category:    command.CategoryEconomy,
		Aliases:     []string{"w"},
	}
}

func (c *Work) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	job, pay := c.Dice.Job(bag.Content)
	p, err := bag.DB.Work(ctx, bag.UserID, pay, WorkCooldown)
	var cd *storage.CooldownError
	if errors.As(err, &cd) {
		return command.Fail("You are still tired. Come back in %s.", util.HumanDuration(cd.Remaining))
	}
	if err != nil {
		return err
	}
	_, err = inv.Reply.Reply(ctx, nav.Payload{Embed: nav.Embed{
		Title:       job.Name,
		Description: fmt.Sprintf("You earned **%d** 🪙. Balance: %d 🪙", pay, p.Balance),
		Color:       nav.ColorDefault,
	}})
	return err
}

func (c *Work) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	return c.RunSlash(ctx, bag, command.FromMessage(c.Register(), msg, args))
}
