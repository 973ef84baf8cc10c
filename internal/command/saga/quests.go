package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
	"github.com/keshon/saga-bot/pkg/util"
)

const questsPerPage = 3

// Quests is the paged quest board.
type Quests struct {
	page int
	note string
}

func (s *Quests) ID() string { return QuestsID }

func (s *Quests) Page() int { return s.page }

func (s *Quests) pages(c *nav.Context) int {
	n := (len(c.Content.Quests) + questsPerPage - 1) / questsPerPage
	return max(n, 1)
}

func (s *Quests) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	states, err := c.DB.Quests(ctx, c.UserID)
	if err != nil {
		return nav.Payload{}, err
	}

	start := s.page * questsPerPage
	end := min(start+questsPerPage, len(c.Content.Quests))
	var fields []nav.Field
	var actions nav.Row
	for _, q := range c.Content.Quests[start:end] {
		status, ctl := s.questLine(c, q, states[q.ID])
		fields = append(fields, nav.Field{
			Name:  q.Name,
			Value: fmt.Sprintf("%s\nReward: %d 🪙 · %d xp · %s\n%s", q.Description, q.Reward, q.XP, util.HumanDuration(q.Duration.Duration), status),
		})
		actions = append(actions, ctl)
	}

	desc := fmt.Sprintf("Page %d/%d", s.page+1, s.pages(c))
	if s.note != "" {
		desc = s.note + "\n" + desc
	}
	prev := c.Button(QuestsID, "prev", "", "◀", nav.StyleSecondary)
	prev.Disabled = s.page == 0
	next := c.Button(QuestsID, "next", "", "▶", nav.StyleSecondary)
	next.Disabled = s.page >= s.pages(c)-1

	rows := []nav.Row{{prev, next, c.BackButton(QuestsID)}}
	if len(actions) > 0 {
		rows = append([]nav.Row{actions}, rows...)
	}
	return nav.Payload{
		Embed: nav.Embed{Title: "Quest board", Description: desc, Color: nav.ColorDefault, Fields: fields},
		Rows:  rows,
	}, nil
}

func (s *Quests) questLine(c *nav.Context, q content.Quest, st storage.QuestState) (string, nav.Control) {
	short := truncate(q.Name, 60)
	switch st.Status {
	case storage.QuestDone:
		b := c.Button(QuestsID, "noop", q.ID, "Done: "+short, nav.StyleSecondary)
		b.Disabled = true
		return "✅ Completed", b
	case storage.QuestActive:
		return "⏳ In progress", c.Button(QuestsID, "turnin", q.ID, "Turn in: "+short, nav.StyleSuccess)
	}
	return "📜 Available", c.Button(QuestsID, "accept", q.ID, "Accept: "+short, nav.StylePrimary)
}

func (s *Quests) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	s.note = ""
	switch act.Name {
	case "prev":
		s.page = max(s.page-1, 0)
		return nil
	case "next":
		s.page = min(s.page+1, s.pages(c)-1)
		return nil
	case "accept":
		q, ok := c.Content.Quest(act.Payload)
		if !ok {
			return fmt.Errorf("%s: unknown quest %q", QuestsID, act.Payload)
		}
		err := c.DB.AcceptQuest(ctx, c.UserID, q.ID)
		if errors.Is(err, storage.ErrQuestTaken) {
			s.note = "You already took that quest."
			return nil
		}
		if err != nil {
			return err
		}
		s.note = fmt.Sprintf("You set out: **%s**.", q.Name)
		return nil
	case "turnin":
		q, ok := c.Content.Quest(act.Payload)
		if !ok {
			return fmt.Errorf("%s: unknown quest %q", QuestsID, act.Payload)
		}
		err := c.DB.CompleteQuest(ctx, c.UserID, q.ID, q.Duration.Duration, q.Reward, q.XP)
		var cd *storage.CooldownError
		switch {
		case errors.As(err, &cd):
			s.note = fmt.Sprintf("Not done yet. %s to go.", util.HumanDuration(cd.Remaining))
			return nil
		case errors.Is(err, storage.ErrNotFound):
			s.note = "That quest is not in progress."
			return nil
		case err != nil:
			return err
		}
		s.note = fmt.Sprintf("**%s** complete! +%d 🪙, +%d xp.", q.Name, q.Reward, q.XP)
		return nil
	}
	return fmt.Errorf("%s: unknown action %q", QuestsID, act.Name)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n-1])) + "…"
}
