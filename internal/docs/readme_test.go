package docs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/saga-bot/internal/command"
)

func TestCommandSections(t *testing.T) {
	descs := []command.Descriptor{
		{Name: "poker", Description: "Casino", Category: command.CategoryCasino},
		{Name: "work", Description: "Earn coins", Category: command.CategoryEconomy, Aliases: []string{"w"}},
		{Name: "help", Description: "Commands", Category: command.CategoryInfo},
		{Name: "debug", Description: "Internal", Category: command.CategoryInfo, PrefixOnly: true},
	}
	out := CommandSections(descs, "!")

	assert.Less(t, strings.Index(out, command.CategoryInfo), strings.Index(out, command.CategoryEconomy))
	assert.Less(t, strings.Index(out, command.CategoryEconomy), strings.Index(out, command.CategoryCasino))
	assert.Less(t, strings.Index(out, "**!debug**"), strings.Index(out, "**/help**"))
	assert.Contains(t, out, "- **/work** — Earn coins (aliases: w)\n")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "# Bot\n\n{{.CommandSections}}", []command.Descriptor{
		{Name: "ping", Description: "Latency", Category: command.CategoryInfo},
	}, "!")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "# Bot\n\n### "+command.CategoryInfo)
	assert.Contains(t, buf.String(), "**/ping**")

	assert.Error(t, Render(&buf, "{{.Broken", nil, "!"))
}
