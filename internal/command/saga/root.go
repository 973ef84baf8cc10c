package saga

import (
	"context"
	"fmt"

	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Root is the hub menu. It remembers how often the tavern was visited during
// this navigation.
type Root struct {
	visits int
}

func NewRoot() *Root { return &Root{} }

func (s *Root) ID() string { return RootID }

func (s *Root) Visits() int { return s.visits }

func (s *Root) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	p, err := c.DB.Player(ctx, c.UserID)
	if err != nil {
		return nav.Payload{}, err
	}
	desc := "The road forks at the old inn. Where to?"
	if s.visits > 0 {
		desc += fmt.Sprintf("\n*Tavern visits this trip: %d*", s.visits)
	}
	return nav.Payload{
		Embed: nav.Embed{
			Title:       "Saga",
			Description: desc,
			Color:       nav.ColorDefault,
			Fields: []nav.Field{
				{Name: "Coins", Value: fmt.Sprintf("%d 🪙", p.Balance), Inline: true},
				{Name: "Health", Value: fmt.Sprintf("%d/%d", p.HP, p.MaxHP), Inline: true},
				{Name: "Level", Value: fmt.Sprint(p.Level()), Inline: true},
			},
		},
		Rows: []nav.Row{{
			c.Button(RootID, "tavern", "", "Tavern", nav.StylePrimary),
			c.Button(RootID, "quests", "", "Quest board", nav.StylePrimary),
			c.CloseButton(RootID),
		}},
	}, nil
}

func (s *Root) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	switch act.Name {
	case "tavern":
		if err := n.Push(&Tavern{}); err != nil {
			return err
		}
		s.visits++
		return nil
	case "quests":
		return n.Push(&Quests{})
	}
	return fmt.Errorf("%s: unknown action %q", RootID, act.Name)
}
