// Package saga is the adventure hub: a root menu leading to the tavern and
// the quest board.
package saga

import (
	"context"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

const (
	RootID   = "saga.root"
	TavernID = "saga.tavern"
	QuestsID = "saga.quests"
)

// Saga opens the hub menu.
type Saga struct {
	Table *nav.Table
}

func (c *Saga) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "saga",
		Description: "Open the adventure hub",
		Category:    command.CategoryAdventure,
		Aliases:     []string{"hub"},
	}
}

func (c *Saga) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	return command.Open(ctx, c.Table, bag, inv.Reply, NewRoot())
}

func (c *Saga) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	return command.Open(ctx, c.Table, bag, msg.Reply, NewRoot())
}
