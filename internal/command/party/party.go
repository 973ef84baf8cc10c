// Package party manages the player's companions. The roster travels with the
// player; the army stays behind as garrison. Both views share one message and
// swap in place.
package party

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

const (
	RosterID = "party.roster"
	ArmyID   = "party.army"
)

type Party struct {
	Table *nav.Table
	Dice  *content.Dice
}

func (c *Party) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "party",
		Description: "Manage your roster and army",
		Category:    command.CategoryAdventure,
		Aliases:     []string{"roster"},
	}
}

func (c *Party) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	return command.Open(ctx, c.Table, bag, inv.Reply, NewRoster(c.Dice))
}

func (c *Party) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	return command.Open(ctx, c.Table, bag, msg.Reply, NewRoster(c.Dice))
}

// view is shared by the roster and the army screens.
type view struct {
	id      string
	role    string
	other   string
	dice    *content.Dice
	note    string
	members []storage.Member
}

func NewRoster(d *content.Dice) nav.Screen {
	return &view{id: RosterID, role: storage.RoleRoster, other: storage.RoleArmy, dice: d}
}

func NewArmy(d *content.Dice) nav.Screen {
	return &view{id: ArmyID, role: storage.RoleArmy, other: storage.RoleRoster, dice: d}
}

func (s *view) ID() string { return s.id }

func (s *view) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	members, err := c.DB.Members(ctx, c.UserID, s.role)
	if err != nil {
		return nav.Payload{}, err
	}
	p, err := c.DB.Player(ctx, c.UserID)
	if err != nil {
		return nav.Payload{}, err
	}

	title, switchAction, switchLabel := "Roster", "switch-army", "Army ⇄"
	if s.role == storage.RoleArmy {
		title, switchAction, switchLabel = "Army", "switch-roster", "Roster ⇄"
	}

	var lines []string
	var opts []nav.SelectOption
	power := 0
	for _, m := range members {
		power += m.Power
		lines = append(lines, fmt.Sprintf("**%s** · power %d", m.Name, m.Power))
		opts = append(opts, nav.SelectOption{Label: m.Name, Value: strconv.FormatInt(m.ID, 10), Description: fmt.Sprintf("power %d", m.Power)})
	}
	desc := "Nobody here yet."
	if len(lines) > 0 {
		desc = strings.Join(lines, "\n")
	}
	if s.note != "" {
		desc = s.note + "\n\n" + desc
	}

	rows := []nav.Row{}
	if len(opts) > 0 {
		rows = append(rows,
			nav.Row{c.Select(s.id, "move", "Send to "+otherTitle(s.other)+"…", opts)},
			nav.Row{c.Select(s.id, "dismiss", "Dismiss…", opts)},
		)
	}
	buttons := nav.Row{c.Button(s.id, switchAction, "", switchLabel, nav.StylePrimary)}
	if s.role == storage.RoleRoster {
		recruit := c.Button(s.id, "recruit", "", fmt.Sprintf("Recruit (%d🪙)", c.Content.Party.RecruitCost), nav.StyleSuccess)
		recruit.Disabled = len(members) >= c.Content.Party.MaxMembers || p.Balance < c.Content.Party.RecruitCost
		buttons = append(buttons, recruit)
	}
	buttons = append(buttons, c.CloseButton(s.id))
	rows = append(rows, buttons)

	return nav.Payload{
		Embed: nav.Embed{
			Title:       title,
			Description: desc,
			Color:       nav.ColorDefault,
			Footer:      fmt.Sprintf("%d members · total power %d · %d 🪙", len(members), power, p.Balance),
		},
		Rows: rows,
	}, nil
}

func (s *view) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	s.note = ""
	switch act.Name {
	case "switch-army":
		return n.ReplaceTop(NewArmy(s.dice))
	case "switch-roster":
		return n.ReplaceTop(NewRoster(s.dice))
	case "recruit":
		return s.recruit(ctx, c)
	case "move", "dismiss":
		if len(act.Values) == 0 {
			return nil
		}
		id, err := strconv.ParseInt(act.Values[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%s: bad member id %q", s.id, act.Values[0])
		}
		if act.Name == "move" {
			err = c.DB.Reassign(ctx, c.UserID, id, s.other, c.Content.Party.MaxMembers)
			s.note = "Sent to the " + otherTitle(s.other) + "."
		} else {
			err = c.DB.Dismiss(ctx, c.UserID, id)
			s.note = "Dismissed."
		}
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.note = "That companion is gone already."
			return nil
		case errors.Is(err, storage.ErrPartyFull):
			s.note = "Your roster is full."
			return nil
		}
		return err
	}
	return fmt.Errorf("%s: unknown action %q", s.id, act.Name)
}

func (s *view) recruit(ctx context.Context, c *nav.Context) error {
	rules := c.Content.Party
	name := rules.Names[s.dice.IntN(len(rules.Names))]
	power := 1 + s.dice.IntN(5)
	m, err := c.DB.Recruit(ctx, c.UserID, name, s.role, power, rules.RecruitCost, rules.MaxMembers)
	switch {
	case errors.Is(err, storage.ErrPartyFull):
		s.note = "Your roster is full."
		return nil
	case errors.Is(err, storage.ErrInsufficientFunds):
		s.note = "You cannot afford a recruit."
		return nil
	case err != nil:
		return err
	}
	s.note = fmt.Sprintf("**%s** joins you (power %d).", m.Name, m.Power)
	return nil
}

func otherTitle(role string) string {
	if role == storage.RoleArmy {
		return "army"
	}
	return "roster"
}
