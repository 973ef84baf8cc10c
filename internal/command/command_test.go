package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

type fakeReplier struct {
	mu        sync.Mutex
	next      int
	replies   []nav.Payload
	ephemeral []nav.Payload
}

func (f *fakeReplier) Reply(ctx context.Context, p nav.Payload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.replies = append(f.replies, p)
	return "msg" + strconv.Itoa(f.next), nil
}

func (f *fakeReplier) ReplyEphemeral(ctx context.Context, p nav.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemeral = append(f.ephemeral, p)
	return nil
}

func (f *fakeReplier) snapshot() (replies, ephemeral []nav.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.replies), slices.Clone(f.ephemeral)
}

type stubCommand struct {
	desc  Descriptor
	err   error
	calls int
	args  []string
	run   func()
}

func (s *stubCommand) Register() Descriptor { return s.desc }

func (s *stubCommand) RunSlash(ctx context.Context, c *nav.Context, inv *Invocation) error {
	s.calls++
	if s.run != nil {
		s.run()
	}
	return s.err
}

func (s *stubCommand) RunPrefix(ctx context.Context, c *nav.Context, msg *Message, args []string) error {
	s.calls++
	s.args = args
	if s.run != nil {
		s.run()
	}
	return s.err
}

func stub(name string, aliases ...string) *stubCommand {
	return &stubCommand{desc: Descriptor{Name: name, Description: name, Aliases: aliases}}
}

func bag() *nav.Context {
	return nav.Deps{}.Context("u1", "g1", "c1")
}

func TestRegistryCollision(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stub("open")))

	err := reg.Register(stub("open"))
	assert.ErrorIs(t, err, ErrRegistrationCollision)

	err = reg.Register(stub("unbox", "OPEN"))
	assert.ErrorIs(t, err, ErrRegistrationCollision)

	require.NoError(t, reg.Register(stub("work", "w")))
	err = reg.Register(stub("w"))
	assert.ErrorIs(t, err, ErrRegistrationCollision)

	assert.Len(t, reg.All(), 2)
	assert.Panics(t, func() { reg.MustRegister(stub("work")) })
}

func TestRegistryCollisionWithinDescriptor(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Register(stub("party", "Party")), ErrRegistrationCollision)
	assert.ErrorIs(t, reg.Register(stub("party", "p", "P")), ErrRegistrationCollision)
	assert.ErrorIs(t, reg.Register(stub("party", "")), ErrRegistrationCollision)
	assert.Empty(t, reg.All())

	require.NoError(t, reg.Register(stub("party", "p")))
	c, ok := reg.Get("p")
	require.True(t, ok)
	assert.Equal(t, "party", c.Register().Name)
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stub("profile", "p")))
	hidden := stub("debug")
	hidden.desc.PrefixOnly = true
	require.NoError(t, reg.Register(hidden))

	c, ok := reg.Get("P")
	require.True(t, ok)
	assert.Equal(t, "profile", c.Register().Name)

	slash := reg.Slash()
	require.Len(t, slash, 1)
	assert.Equal(t, "profile", slash[0].Register().Name)
	assert.Len(t, reg.Descriptors(), 2)

	s, ok := reg.Suggest("proflie")
	assert.True(t, ok)
	assert.Equal(t, "profile", s)
	_, ok = reg.Suggest("zzzzzzzz")
	assert.False(t, ok)
}

func TestApplyOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, b *nav.Context, call Call, next func(context.Context) error) error {
				order = append(order, name)
				return next(ctx)
			})
		}
	}
	inner := stub("ping")
	c := Apply(inner, mark("outer"), mark("inner"))

	require.NoError(t, c.RunSlash(context.Background(), bag(), &Invocation{Name: "ping"}))
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Same(t, inner, Root(c))
	assert.Equal(t, "ping", c.Register().Name)
}

func TestWithRecover(t *testing.T) {
	c := stub("boom")
	c.run = func() { panic("kaboom") }

	err := Apply(c, WithRecover()).RunSlash(context.Background(), bag(), &Invocation{Name: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWithRateLimit(t *testing.T) {
	c := stub("work")
	wrapped := Apply(c, WithRateLimit(rate.Limit(0.001), 2))
	ctx := context.Background()

	require.NoError(t, wrapped.RunSlash(ctx, bag(), &Invocation{}))
	require.NoError(t, wrapped.RunSlash(ctx, bag(), &Invocation{}))
	err := wrapped.RunSlash(ctx, bag(), &Invocation{})
	_, isUser := AsUserError(err)
	assert.True(t, isUser)
	assert.Equal(t, 2, c.calls)

	// Another user has their own budget.
	other := nav.Deps{}.Context("u2", "g1", "c1")
	assert.NoError(t, wrapped.RunSlash(ctx, other, &Invocation{}))
}

func TestLimiterSetEvictsIdleUsers(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	set := newLimiterSet(rate.Limit(0.1), 2, func() time.Time { return now })
	assert.Equal(t, time.Minute, set.idle)

	assert.True(t, set.allow("u1"))
	assert.True(t, set.allow("u1"))
	assert.False(t, set.allow("u1"))
	assert.True(t, set.allow("u2"))
	assert.Equal(t, 2, set.len())

	now = now.Add(30 * time.Second)
	assert.True(t, set.allow("u3"))
	assert.Equal(t, 3, set.len())

	// u1 and u2 went quiet a minute ago, u3 did not.
	now = now.Add(40 * time.Second)
	assert.True(t, set.allow("u3"))
	assert.Equal(t, 1, set.len())
	assert.True(t, set.allow("u1"))
	assert.Equal(t, 2, set.len())
}

type memHistory struct {
	recs []storage.CommandHistoryRecord
}

func (m *memHistory) AppendCommandHistory(guildID string, rec storage.CommandHistoryRecord) error {
	m.recs = append(m.recs, rec)
	return nil
}

func TestWithCommandLogger(t *testing.T) {
	hist := &memHistory{}
	c := Apply(stub("open"), WithCommandLogger(hist))

	inv := &Invocation{Name: "open", Username: "ann", Options: map[string]string{"item": "wooden-crate"}}
	require.NoError(t, c.RunSlash(context.Background(), bag(), inv))
	require.NoError(t, c.RunPrefix(context.Background(), bag(), &Message{Username: "ann"}, []string{"iron-chest"}))

	require.Len(t, hist.recs, 2)
	assert.Equal(t, "item=wooden-crate", hist.recs[0].Param)
	assert.Equal(t, "iron-chest", hist.recs[1].Param)
	assert.Equal(t, "open", hist.recs[1].Command)
	assert.Equal(t, "u1", hist.recs[0].UserID)
}

type fakeDisabled map[string]bool

func (f fakeDisabled) IsDisabled(guildID, name string) (bool, error) { return f[name], nil }

func TestWithEnabledCheck(t *testing.T) {
	c := stub("poker")
	err := Apply(c, WithEnabledCheck(fakeDisabled{"poker": true})).RunSlash(context.Background(), bag(), &Invocation{})
	msg, ok := AsUserError(err)
	require.True(t, ok)
	assert.Contains(t, msg, "disabled")
	assert.Zero(t, c.calls)
}

func TestDispatcherSlash(t *testing.T) {
	reg := NewRegistry()
	ok := stub("ping")
	broken := stub("profile")
	broken.err = errors.New("db gone")
	picky := stub("work")
	picky.err = Fail("Come back later.")
	hidden := stub("debug")
	hidden.desc.PrefixOnly = true
	for _, c := range []Command{ok, broken, picky, hidden} {
		require.NoError(t, reg.Register(c))
	}
	d := NewDispatcher(reg)
	ctx := context.Background()

	r := &fakeReplier{}
	d.Slash(ctx, bag(), &Invocation{Name: "ping", Reply: r})
	assert.Equal(t, 1, ok.calls)
	assert.Empty(t, r.ephemeral)

	d.Slash(ctx, bag(), &Invocation{Name: "nope", Reply: r})
	require.Len(t, r.ephemeral, 1)
	assert.Equal(t, MsgUnknownCommand, r.ephemeral[0].Embed.Description)

	d.Slash(ctx, bag(), &Invocation{Name: "work", Reply: r})
	assert.Equal(t, "Come back later.", r.ephemeral[1].Embed.Description)

	d.Slash(ctx, bag(), &Invocation{Name: "profile", Reply: r})
	assert.Contains(t, r.ephemeral[2].Embed.Description, "Reference")
	assert.NotContains(t, r.ephemeral[2].Embed.Description, "db gone")
}

func TestDispatcherSlashIgnoresNonSlashNames(t *testing.T) {
	reg := NewRegistry()
	hidden := stub("debug")
	hidden.desc.PrefixOnly = true
	work := stub("work", "w")
	require.NoError(t, reg.Register(hidden))
	require.NoError(t, reg.Register(work))
	d := NewDispatcher(reg)
	r := &fakeReplier{}

	d.Slash(context.Background(), bag(), &Invocation{Name: "debug", Reply: r})
	d.Slash(context.Background(), bag(), &Invocation{Name: "w", Reply: r})
	assert.Zero(t, hidden.calls)
	assert.Zero(t, work.calls)
	assert.Empty(t, r.ephemeral)
	assert.Empty(t, r.replies)

	// Both stay reachable by prefix.
	assert.True(t, d.Prefix(context.Background(), bag(), &Message{Content: "!debug", Reply: r}, "!"))
	assert.True(t, d.Prefix(context.Background(), bag(), &Message{Content: "!w", Reply: r}, "!"))
	assert.Equal(t, 1, hidden.calls)
	assert.Equal(t, 1, work.calls)
}

// openCommand opens its screen on every call.
type openCommand struct {
	table  *nav.Table
	screen nav.Screen
}

func (o *openCommand) Register() Descriptor { return Descriptor{Name: "saga", Description: "saga"} }

func (o *openCommand) RunSlash(ctx context.Context, c *nav.Context, inv *Invocation) error {
	return Open(ctx, o.table, c, inv.Reply, o.screen)
}

func (o *openCommand) RunPrefix(ctx context.Context, c *nav.Context, msg *Message, args []string) error {
	return Open(ctx, o.table, c, msg.Reply, o.screen)
}

func TestDispatcherSlowFirstRender(t *testing.T) {
	table := nav.NewTable()
	rendered := make(chan struct{})
	slow := &stubScreen{id: "saga.root", render: func(context.Context) {
		defer close(rendered)
		time.Sleep(200 * time.Millisecond)
	}}
	reg := NewRegistry()
	require.NoError(t, reg.Register(&openCommand{table: table, screen: slow}))
	d := NewDispatcher(reg, WithDeadline(30*time.Millisecond))
	r := &fakeReplier{}

	start := time.Now()
	d.Slash(context.Background(), bag(), &Invocation{Name: "saga", Reply: r})
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	replies, ephemeral := r.snapshot()
	assert.Empty(t, replies)
	require.Len(t, ephemeral, 1)
	assert.Equal(t, nav.MsgTimedOut, ephemeral[0].Embed.Description)

	// The late render posts nothing and opens no session.
	<-rendered
	assert.Never(t, func() bool {
		replies, ephemeral := r.snapshot()
		return len(replies) > 0 || len(ephemeral) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
	_, ok := table.Owner("msg1")
	assert.False(t, ok)
}

func TestDispatcherDeadlineAfterReply(t *testing.T) {
	reg := NewRegistry()
	c := stub("work")
	var reply Replier
	c.run = func() {
		_, _ = reply.Reply(context.Background(), nav.Payload{Embed: nav.Embed{Title: "done"}})
		time.Sleep(80 * time.Millisecond)
	}
	require.NoError(t, reg.Register(Wrap(c, func(ctx context.Context, b *nav.Context, call Call, next func(context.Context) error) error {
		reply = call.Reply
		return next(ctx)
	})))
	d := NewDispatcher(reg, WithDeadline(20*time.Millisecond))
	r := &fakeReplier{}

	d.Slash(context.Background(), bag(), &Invocation{Name: "work", Reply: r})
	replies, ephemeral := r.snapshot()
	require.Len(t, replies, 1)
	assert.Equal(t, "done", replies[0].Embed.Title)
	assert.Empty(t, ephemeral)
}

func TestDispatcherMapsDeadlineErrors(t *testing.T) {
	reg := NewRegistry()
	c := stub("profile")
	c.err = fmt.Errorf("load profile: %w", context.DeadlineExceeded)
	require.NoError(t, reg.Register(c))
	r := &fakeReplier{}

	NewDispatcher(reg).Slash(context.Background(), bag(), &Invocation{Name: "profile", Reply: r})
	require.Len(t, r.ephemeral, 1)
	assert.Equal(t, nav.MsgTimedOut, r.ephemeral[0].Embed.Description)
}

func TestDispatcherPrefix(t *testing.T) {
	reg := NewRegistry()
	work := stub("work", "w")
	require.NoError(t, reg.Register(work))
	d := NewDispatcher(reg)
	ctx := context.Background()
	r := &fakeReplier{}

	assert.False(t, d.Prefix(ctx, bag(), &Message{Content: "hello", Reply: r}, "!"))
	assert.False(t, d.Prefix(ctx, bag(), &Message{Content: "!", Reply: r}, "!"))

	assert.True(t, d.Prefix(ctx, bag(), &Message{Content: "!w hard now", Reply: r}, "!"))
	assert.Equal(t, 1, work.calls)
	assert.Equal(t, []string{"hard", "now"}, work.args)

	assert.True(t, d.Prefix(ctx, bag(), &Message{Content: "!wrok", Reply: r}, "!"))
	require.Len(t, r.ephemeral, 1)
	assert.Contains(t, r.ephemeral[0].Embed.Description, "Did you mean `!work`?")
}

func TestPositionalOptions(t *testing.T) {
	d := Descriptor{Options: []Option{{Name: "table"}, {Name: "note"}}}
	assert.Equal(t, map[string]string{"table": "gold", "note": "big blind please"},
		PositionalOptions(d, []string{"gold", "big", "blind", "please"}))
	assert.Equal(t, map[string]string{"table": "gold"}, PositionalOptions(d, []string{"gold"}))
	assert.Empty(t, PositionalOptions(Descriptor{}, []string{"x"}))

	inv := FromMessage(Descriptor{Name: "open", Options: []Option{{Name: "count"}}}, &Message{Username: "ann"}, []string{"3"})
	assert.Equal(t, 3, inv.Int("count", 1))
	assert.Equal(t, 1, inv.Int("missing", 1))
}

func TestOpenStartsSession(t *testing.T) {
	table := nav.NewTable()
	r := &fakeReplier{}
	s := &stubScreen{id: "saga.root"}

	require.NoError(t, Open(context.Background(), table, bag(), r, s))
	require.Len(t, r.replies, 1)
	assert.Equal(t, "saga.root", r.replies[0].Embed.Title)

	owner, ok := table.Owner("msg1")
	require.True(t, ok)
	assert.Equal(t, "u1", owner)
}

type stubScreen struct {
	id     string
	render func(context.Context)
}

func (s *stubScreen) ID() string { return s.id }

func (s *stubScreen) Render(ctx context.Context, c *nav.Context) (nav.Payload, error) {
	if s.render != nil {
		s.render(ctx)
	}
	return nav.Payload{Embed: nav.Embed{Title: s.id}}, nil
}

func (s *stubScreen) Handle(ctx context.Context, c *nav.Context, n nav.Navigator, act nav.Action) error {
	return nil
}
