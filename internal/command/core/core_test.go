package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

type replier struct {
	public    []nav.Payload
	ephemeral []nav.Payload
}

func (r *replier) Reply(ctx context.Context, p nav.Payload) (string, error) {
	r.public = append(r.public, p)
	return "m1", nil
}

func (r *replier) ReplyEphemeral(ctx context.Context, p nav.Payload) error {
	r.ephemeral = append(r.ephemeral, p)
	return nil
}

type hiddenCmd struct{ Ping }

func (hiddenCmd) Register() command.Descriptor {
	return command.Descriptor{Name: "debug", Description: "dev only", PrefixOnly: true, Category: command.CategoryInfo}
}

func TestHelpHidesPrefixOnlyFromSlash(t *testing.T) {
	reg := command.NewRegistry()
	help := &Help{Registry: reg, Prefix: "!"}
	require.NoError(t, reg.Register(help))
	require.NoError(t, reg.Register(&Ping{}))
	require.NoError(t, reg.Register(&hiddenCmd{}))

	r := &replier{}
	bag := nav.Deps{}.Context("u1", "g1", "c1")
	require.NoError(t, help.RunSlash(context.Background(), bag, &command.Invocation{Reply: r}))
	require.Len(t, r.ephemeral, 1)
	fields := r.ephemeral[0].Embed.Fields
	require.Len(t, fields, 1)
	assert.Contains(t, fields[0].Value, "`/ping`")
	assert.NotContains(t, fields[0].Value, "debug")

	require.NoError(t, help.RunPrefix(context.Background(), bag, &command.Message{Reply: r}, nil))
	assert.Contains(t, r.public[0].Embed.Fields[0].Value, "`!debug`")
}

func TestPing(t *testing.T) {
	r := &replier{}
	p := &Ping{Latency: func() time.Duration { return 42 * time.Millisecond }}
	require.NoError(t, p.RunSlash(context.Background(), nav.Deps{}.Context("u", "g", "c"), &command.Invocation{Reply: r}))
	assert.Contains(t, r.ephemeral[0].Embed.Description, "42ms")
}

type fakeHistory []storage.CommandHistoryRecord

func (f fakeHistory) CommandHistory(string) ([]storage.CommandHistoryRecord, error) { return f, nil }

func TestHistoryNewestFirst(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &History{Store: fakeHistory{
		{Username: "ann", Command: "work", Datetime: at},
		{Username: "bob", Command: "open", Param: "item=wooden-crate", Datetime: at.Add(time.Minute)},
	}}
	r := &replier{}
	require.NoError(t, h.RunSlash(context.Background(), nav.Deps{}.Context("u", "g", "c"), &command.Invocation{Reply: r}))

	desc := r.ephemeral[0].Embed.Description
	assert.Less(t, strings.Index(desc, "bob"), strings.Index(desc, "ann"))
	assert.Contains(t, desc, "item=wooden-crate")

	err := h.RunSlash(context.Background(), nav.Deps{}.Context("u", "", "c"), &command.Invocation{Reply: r})
	_, ok := command.AsUserError(err)
	assert.True(t, ok)
}

