package nav

import (
	"context"
	"sync"
	"time"
)

type testScreen struct {
	id       string
	note     string
	handled  int
	onHandle func(ctx context.Context, c *Context, n Navigator, act Action) error
	onRender func(ctx context.Context, c *Context) (Payload, error)
}

func screen(id string) *testScreen { return &testScreen{id: id} }

func (s *testScreen) ID() string { return s.id }

func (s *testScreen) Render(ctx context.Context, c *Context) (Payload, error) {
	if s.onRender != nil {
		return s.onRender(ctx, c)
	}
	return Payload{Embed: Embed{Title: s.id, Description: s.note}}, nil
}

func (s *testScreen) Handle(ctx context.Context, c *Context, n Navigator, act Action) error {
	s.handled++
	if s.onHandle != nil {
		return s.onHandle(ctx, c, n, act)
	}
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
