package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Tavern sells drinks that restore health.
type Tavern struct {
	note string
}

func (s *Tavern) ID() string { return TavernID }

func (s *Tavern) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	p, err := c.DB.Player(ctx, c.UserID)
	if err != nil {
		return nav.Payload{}, err
	}

	var drinks nav.Row
	for _, d := range c.Content.Drinks {
		b := c.Button(TavernID, "drink", d.ID, fmt.Sprintf("%s (%d🪙)", d.Name, d.Price), nav.StyleSuccess)
		b.Disabled = p.Balance < d.Price
		drinks = append(drinks, b)
		if len(drinks) == 5 {
			break
		}
	}

	desc := "A fire crackles. The barkeep nods at you."
	if s.note != "" {
		desc = s.note
	}
	return nav.Payload{
		Embed: nav.Embed{
			Title:       "The Prancing Boar",
			Description: desc,
			Color:       nav.ColorDefault,
			Footer:      fmt.Sprintf("Coins: %d · Health: %d/%d", p.Balance, p.HP, p.MaxHP),
		},
		Rows: []nav.Row{
			drinks,
			{c.BackButton(TavernID), c.Button(TavernID, "leave", "", "Leave", nav.StyleSecondary)},
		},
	}, nil
}

func (s *Tavern) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	switch act.Name {
	case "drink":
		d, ok := c.Content.Drink(act.Payload)
		if !ok {
			return fmt.Errorf("%s: unknown drink %q", TavernID, act.Payload)
		}
		p, err := c.DB.Rest(ctx, c.UserID, d.Price, d.Heal)
		if errors.Is(err, storage.ErrInsufficientFunds) {
			s.note = "You cannot afford that."
			return nil
		}
		if err != nil {
			return err
		}
		s.note = fmt.Sprintf("You drink the %s. Health %d/%d.", d.Name, p.HP, p.MaxHP)
		return nil
	case "leave":
		n.Pop()
		return nil
	}
	return fmt.Errorf("%s: unknown action %q", TavernID, act.Name)
}
