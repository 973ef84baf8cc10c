// Package command defines the contract every chat command implements and the
// registry, middleware and dispatcher that sit between the chat adapter and
// the commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Categories used by the help listing, in display order.
const (
	CategoryInfo      = "🕯️ Information"
	CategoryEconomy   = "💰 Economy"
	CategoryAdventure = "⚔️ Adventure"
	CategoryCasino    = "🎲 Casino"
)

var CategoryWeights = map[string]int{
	CategoryInfo:      0,
	CategoryEconomy:   10,
	CategoryAdventure: 20,
	CategoryCasino:    30,
}

type OptionType int

const (
	OptionString OptionType = iota
	OptionInteger
	OptionUser
	OptionBool
)

type Choice struct {
	Name  string
	Value string
}

type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Choices     []Choice
}

// Descriptor is what a command advertises about itself.
type Descriptor struct {
	Name        string
	Description string
	Category    string
	Options     []Option
	Aliases     []string
	// PrefixOnly commands are not advertised as slash commands.
	PrefixOnly bool
}

// Replier sends messages back to wherever the command came from.
type Replier interface {
	// Reply posts a visible message and returns its id.
	Reply(ctx context.Context, p nav.Payload) (string, error)
	// ReplyEphemeral answers only the invoking user.
	ReplyEphemeral(ctx context.Context, p nav.Payload) error
}

// Invocation is a slash command call with its resolved options.
type Invocation struct {
	Name     string
	Username string
	Options  map[string]string
	Reply    Replier
}

func (inv *Invocation) String(name string) string {
	return inv.Options[name]
}

func (inv *Invocation) Int(name string, def int) int {
	v, err := strconv.Atoi(inv.Options[name])
	if err != nil {
		return def
	}
	return v
}

// Message is a prefix command call.
type Message struct {
	ID       string
	Content  string
	Username string
	Reply    Replier
}

// Command is implemented by every chat command module.
type Command interface {
	Register() Descriptor
	RunSlash(ctx context.Context, c *nav.Context, inv *Invocation) error
	RunPrefix(ctx context.Context, c *nav.Context, msg *Message, args []string) error
}

// UserError carries a message meant for the invoking user rather than the logs.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string { return e.Msg }

// Fail returns a UserError with a formatted message.
func Fail(format string, args ...any) error {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}

// AsUserError reports whether err carries a user-facing message.
func AsUserError(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg, true
	}
	return "", false
}

// PositionalOptions maps prefix arguments onto declared options in order.
// The last option swallows the remaining arguments.
func PositionalOptions(d Descriptor, args []string) map[string]string {
	out := make(map[string]string, len(d.Options))
	for i, opt := range d.Options {
		if i >= len(args) {
			break
		}
		if i == len(d.Options)-1 {
			out[opt.Name] = strings.Join(args[i:], " ")
			break
		}
		out[opt.Name] = args[i]
	}
	return out
}

// FromMessage turns a prefix call into an Invocation so a command can share
// one code path for both surfaces.
func FromMessage(d Descriptor, msg *Message, args []string) *Invocation {
	return &Invocation{
		Name:     d.Name,
		Username: msg.Username,
		Options:  PositionalOptions(d, args),
		Reply:    msg.Reply,
	}
}

// Open renders the first screen of a navigation, posts it and starts a
// session keyed by the posted message. A failed render still opens the
// session so its retry control works. Nothing is posted once ctx is done.
func Open(ctx context.Context, table *nav.Table, c *nav.Context, r Replier, s nav.Screen) error {
	// Render errors are already logged and replaced with an error payload.
	p, _ := nav.Render(ctx, c, s)
	if ctx.Err() != nil {
		return fmt.Errorf("render %s: %w", s.ID(), nav.ErrDeadlineExceeded)
	}
	msgID, err := r.Reply(ctx, p)
	if err != nil {
		return fmt.Errorf("post %s: %w", s.ID(), err)
	}
	if err := table.Open(nav.Key{UserID: c.UserID, MessageID: msgID}, s); err != nil {
		return fmt.Errorf("open %s: %w", s.ID(), err)
	}
	return nil
}
