// Package nav is the navigation layer behind every interactive command: a
// stack of screens per session, a table of live sessions and the router that
// turns component callbacks into stack transitions and re-renders.
//
// Screens never talk to Discord. They render platform-neutral payloads whose
// controls carry "<screen>:<action>[:<payload>]" custom ids; the adapter in
// internal/discord draws them and feeds callbacks back through Router.Dispatch.
package nav

import "context"

// Reserved actions handled by the router for every screen.
const (
	ActionBack    = "back"
	ActionClose   = "close"
	ActionRefresh = "refresh"
)

// Action is a decoded control callback addressed to the top screen.
type Action struct {
	Name    string
	Payload string
	// Values holds the picked options of a select control.
	Values []string
}

// Navigator is the view of the stack a screen handler may mutate.
type Navigator interface {
	Push(Screen) error
	Pop() (Screen, bool)
	ReplaceTop(Screen) error
	Len() int
}

// Screen is one renderable page of a navigation.
//
// ID must be constant per screen kind. Render must not touch the stack;
// navigation happens only in Handle, through the Navigator.
type Screen interface {
	ID() string
	Render(ctx context.Context, c *Context) (Payload, error)
	Handle(ctx context.Context, c *Context, nav Navigator, act Action) error
}
