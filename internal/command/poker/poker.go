// Package poker runs the casino lobby. Seats and stacks are persisted, so
// every player looking at a table sees the same state on refresh. Dealing
// and hand evaluation are not part of this package.
package poker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

const (
	LobbyID = "poker.lobby"
	TableID = "poker.table"
)

type Poker struct {
	Table *nav.Table
}

func (c *Poker) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "poker",
		Description: "Find a seat at the poker tables",
		Category:    command.CategoryCasino,
		Aliases:     []string{"casino"},
	}
}

func (c *Poker) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	return command.Open(ctx, c.Table, bag, inv.Reply, &Lobby{})
}

func (c *Poker) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	return command.Open(ctx, c.Table, bag, msg.Reply, &Lobby{})
}

// Lobby lists the tables and their occupancy.
type Lobby struct{}

func (s *Lobby) ID() string { return LobbyID }

func (s *Lobby) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	counts, err := c.DB.SeatCounts(ctx)
	if err != nil {
		return nav.Payload{}, err
	}
	var lines []string
	var opts []nav.SelectOption
	for _, t := range c.Content.Tables {
		lines = append(lines, fmt.Sprintf("**%s** · buy-in %d 🪙 · %d/%d seated", t.Name, t.BuyIn, counts[t.ID], t.Seats))
		opts = append(opts, nav.SelectOption{Label: t.Name, Value: t.ID, Description: fmt.Sprintf("%d/%d seated", counts[t.ID], t.Seats)})
	}
	rows := []nav.Row{}
	if len(opts) > 0 {
		rows = append(rows, nav.Row{c.Select(LobbyID, "table", "Pick a table…", opts)})
	}
	rows = append(rows, nav.Row{c.Button(LobbyID, nav.ActionRefresh, "", "Refresh", nav.StyleSecondary), c.CloseButton(LobbyID)})
	return nav.Payload{
		Embed: nav.Embed{Title: "Poker lobby", Description: strings.Join(lines, "\n"), Color: nav.ColorDefault},
		Rows:  rows,
	}, nil
}

func (s *Lobby) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	if act.Name != "table" {
		return fmt.Errorf("%s: unknown action %q", LobbyID, act.Name)
	}
	if len(act.Values) == 0 {
		return nil
	}
	if _, ok := c.Content.Table(act.Values[0]); !ok {
		return fmt.Errorf("%s: unknown table %q", LobbyID, act.Values[0])
	}
	return n.Push(&Table{table: act.Values[0]})
}

// Table shows one table's seats and lets the player sit down or stand up.
type Table struct {
	table string
	note  string
}

func (s *Table) ID() string { return TableID }

func (s *Table) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	t, ok := c.Content.Table(s.table)
	if !ok {
		return nav.Payload{}, fmt.Errorf("unknown table %q", s.table)
	}
	seats, err := c.DB.Seats(ctx, t.ID)
	if err != nil {
		return nav.Payload{}, err
	}

	seated := false
	lines := make([]string, 0, t.Seats)
	for i := 0; i < t.Seats; i++ {
		if i < len(seats) {
			lines = append(lines, fmt.Sprintf("%d. <@%s> · %d 🪙", i+1, seats[i].UserID, seats[i].Stack))
			seated = seated || seats[i].UserID == c.UserID
		} else {
			lines = append(lines, fmt.Sprintf("%d. *empty*", i+1))
		}
	}
	desc := strings.Join(lines, "\n")
	if s.note != "" {
		desc = s.note + "\n\n" + desc
	}

	sit := c.Button(TableID, "sit", "", fmt.Sprintf("Sit (%d🪙)", t.BuyIn), nav.StyleSuccess)
	sit.Disabled = seated || len(seats) >= t.Seats
	stand := c.Button(TableID, "stand", "", "Stand up", nav.StyleDanger)
	stand.Disabled = !seated

	return nav.Payload{
		Embed: nav.Embed{Title: t.Name, Description: desc, Color: nav.ColorDefault, Footer: "Waiting for players"},
		Rows: []nav.Row{{
			sit, stand,
			c.Button(TableID, nav.ActionRefresh, "", "Refresh", nav.StyleSecondary),
			c.BackButton(TableID),
		}},
	}, nil
}

func (s *Table) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	t, ok := c.Content.Table(s.table)
	if !ok {
		return fmt.Errorf("unknown table %q", s.table)
	}
	s.note = ""
	switch act.Name {
	case "sit":
		err := c.DB.Sit(ctx, t.ID, c.UserID, t.BuyIn, t.Seats)
		switch {
		case errors.Is(err, storage.ErrInsufficientFunds):
			s.note = "You cannot cover the buy-in."
		case errors.Is(err, storage.ErrTableFull):
			s.note = "The table is full."
		case errors.Is(err, storage.ErrAlreadySeated):
			s.note = "You are already seated."
		case err != nil:
			return err
		default:
			s.note = "You take a seat."
		}
		return nil
	case "stand":
		stack, err := c.DB.Stand(ctx, t.ID, c.UserID)
		if errors.Is(err, storage.ErrNotSeated) {
			s.note = "You are not seated."
			return nil
		}
		if err != nil {
			return err
		}
		s.note = fmt.Sprintf("You cash out %d 🪙.", stack)
		return nil
	}
	return fmt.Errorf("%s: unknown action %q", TableID, act.Name)
}
