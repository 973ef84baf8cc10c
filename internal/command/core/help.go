package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Help lists the commands of a registry grouped by category.
type Help struct {
	Registry *command.Registry
	Prefix   string
}

func (c *Help) Register() command.Descriptor {
	return command.Descriptor{
		Name:        "help",
		Description: "Get a list of available commands",
		Category:    command.CategoryInfo,
		Aliases:     []string{"h", "commands"},
	}
}

func (c *Help) RunSlash(ctx context.Context, bag *nav.Context, inv *command.Invocation) error {
	return inv.Reply.ReplyEphemeral(ctx, c.payload(false))
}

func (c *Help) RunPrefix(ctx context.Context, bag *nav.Context, msg *command.Message, args []string) error {
	_, err := msg.Reply.Reply(ctx, c.payload(true))
	return err
}

func (c *Help) payload(prefix bool) nav.Payload {
	byCat := make(map[string][]command.Descriptor)
	for _, d := range c.Registry.Descriptors() {
		if d.PrefixOnly && !prefix {
			continue
		}
		byCat[d.Category] = append(byCat[d.Category], d)
	}

	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := command.CategoryWeights[cats[i]], command.CategoryWeights[cats[j]]
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	lead := "/"
	if prefix {
		lead = c.Prefix
	}
	p := nav.Payload{Embed: nav.Embed{Title: "Saga Help", Color: nav.ColorDefault}}
	for _, cat := range cats {
		var sb strings.Builder
		for _, d := range byCat[cat] {
			fmt.Fprintf(&sb, "`%s%s` - %s\n", lead, d.Name, d.Description)
		}
		name := cat
		if name == "" {
			name = "Other"
		}
		p.Embed.Fields = append(p.Embed.Fields, nav.Field{Name: name, Value: sb.String()})
	}
	if prefix {
		p.Embed.Footer = fmt.Sprintf("Slash commands work too. Prefix: %s", c.Prefix)
	}
	return p
}
