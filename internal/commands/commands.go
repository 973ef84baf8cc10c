// Package commands assembles the command set shared by the bot and the
// documentation generator.
package commands

import (
	"time"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/command/core"
	"github.com/keshon/saga-bot/internal/command/economy"
	"github.com/keshon/saga-bot/internal/command/party"
	"github.com/keshon/saga-bot/internal/command/poker"
	"github.com/keshon/saga-bot/internal/command/saga"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

type Deps struct {
	Registry *command.Registry
	Prefix   string
	Latency  func() time.Duration
	History  core.HistorySource
	Catalog  *content.Catalog
	Dice     *content.Dice
	Table    *nav.Table
}

// All returns every command in display order.
func All(d Deps) []command.Command {
	var containers []content.Container
	if d.Catalog != nil {
		containers = d.Catalog.Containers
	}
	return []command.Command{
		&core.Help{Registry: d.Registry, Prefix: d.Prefix},
		&core.Ping{Latency: d.Latency},
		&core.History{Store: d.History},
		&economy.Profile{},
		&economy.Work{Dice: d.Dice},
		&economy.Open{Dice: d.Dice, Containers: containers},
		&saga.Saga{Table: d.Table},
		&party.Party{Table: d.Table, Dice: d.Dice},
		&poker.Poker{Table: d.Table},
	}
}

// Register adds every command to d.Registry behind mws.
func Register(d Deps, mws ...command.Middleware) error {
	for _, c := range All(d) {
		if err := d.Registry.Register(c, mws...); err != nil {
			return err
		}
	}
	return nil
}
