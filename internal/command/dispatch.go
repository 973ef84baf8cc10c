package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/keshon/saga-bot/internal/ui/nav"
)

const (
	MsgUnknownCommand = "Unknown command."
	MsgFailed         = "Something went wrong. Reference: `%s`"
)

// Dispatcher routes slash and prefix invocations to registered commands and
// turns their failures into short replies.
type Dispatcher struct {
	reg      *Registry
	deadline time.Duration
}

type DispatcherOption func(*Dispatcher)

// WithDeadline bounds every command run, first render included.
func WithDeadline(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.deadline = d
		}
	}
}

func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{reg: reg, deadline: nav.DefaultDeadline}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Registry() *Registry { return d.reg }

// Slash runs a slash command. Names that are not advertised as slash
// commands (prefix-only commands and aliases) are ignored without a reply.
func (d *Dispatcher) Slash(ctx context.Context, c *nav.Context, inv *Invocation) {
	cmd, ok := d.reg.Get(inv.Name)
	if !ok {
		replyFailure(ctx, inv.Reply, nav.ErrorPayload(MsgUnknownCommand))
		return
	}
	if desc := cmd.Register(); desc.PrefixOnly || !strings.EqualFold(desc.Name, inv.Name) {
		log.Debug().Str("command", inv.Name).Str("user", c.UserID).Msg("Ignored slash call to a non-slash name")
		return
	}
	d.run(ctx, c, inv.Name, inv.Reply, func(ctx context.Context, r Replier) error {
		call := *inv
		call.Reply = r
		return cmd.RunSlash(ctx, c, &call)
	})
}

// Prefix runs a message command if content starts with prefix. It reports
// whether the message was addressed to the bot.
func (d *Dispatcher) Prefix(ctx context.Context, c *nav.Context, msg *Message, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(msg.Content, prefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Content, prefix))
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]

	cmd, ok := d.reg.Get(name)
	if !ok {
		text := MsgUnknownCommand
		if s, ok := d.reg.Suggest(name); ok {
			text += fmt.Sprintf(" Did you mean `%s%s`?", prefix, s)
		}
		replyFailure(ctx, msg.Reply, nav.ErrorPayload(text))
		return true
	}
	d.run(ctx, c, name, msg.Reply, func(ctx context.Context, r Replier) error {
		call := *msg
		call.Reply = r
		return cmd.RunPrefix(ctx, c, &call, args)
	})
	return true
}

// run executes fn under the dispatcher deadline. If the deadline passes
// before fn has replied, the user is told the interaction timed out and any
// later reply from fn is dropped.
func (d *Dispatcher) run(ctx context.Context, c *nav.Context, name string, r Replier, fn func(context.Context, Replier) error) {
	runCtx, cancel := context.WithTimeout(ctx, d.deadline)
	guard := &deadlineReplier{Replier: r}
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- fn(runCtx, guard)
	}()

	select {
	case err := <-done:
		d.finish(ctx, c, name, r, err)
		return
	case <-runCtx.Done():
	}

	select {
	case err := <-done:
		d.finish(ctx, c, name, r, err)
		return
	default:
	}
	if !guard.expire() {
		// fn already answered; report its outcome once it returns.
		go func() { d.finish(ctx, c, name, r, <-done) }()
		return
	}
	log.Warn().Str("command", name).Str("user", c.UserID).Dur("deadline", d.deadline).Msg("Command abandoned after deadline")
	replyFailure(ctx, r, nav.ErrorPayload(nav.MsgTimedOut))
}

func (d *Dispatcher) finish(ctx context.Context, c *nav.Context, name string, r Replier, err error) {
	if err == nil {
		return
	}
	if text, ok := AsUserError(err); ok {
		replyFailure(ctx, r, nav.ErrorPayload(text))
		return
	}
	if errors.Is(err, nav.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Str("command", name).Str("user", c.UserID).Msg("Command timed out")
		replyFailure(ctx, r, nav.ErrorPayload(nav.MsgTimedOut))
		return
	}
	ref := uuid.NewString()[:8]
	log.Error().Err(err).
		Str("command", name).
		Str("user", c.UserID).
		Str("guild", c.GuildID).
		Str("correlation_id", ref).
		Msg("Command failed")
	replyFailure(ctx, r, nav.ErrorPayload(fmt.Sprintf(MsgFailed, ref)))
}

func replyFailure(ctx context.Context, r Replier, p nav.Payload) {
	if r == nil {
		return
	}
	if err := r.ReplyEphemeral(ctx, p); err != nil {
		log.Warn().Err(err).Msg("Failed to send error reply")
	}
}

// deadlineReplier lets either the command or the timeout notice answer,
// whichever comes first.
type deadlineReplier struct {
	Replier

	mu      sync.Mutex
	sent    bool
	expired bool
}

func (r *deadlineReplier) claim() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.expired {
		return nav.ErrDeadlineExceeded
	}
	r.sent = true
	return nil
}

func (r *deadlineReplier) Reply(ctx context.Context, p nav.Payload) (string, error) {
	if err := r.claim(); err != nil {
		return "", err
	}
	return r.Replier.Reply(ctx, p)
}

func (r *deadlineReplier) ReplyEphemeral(ctx context.Context, p nav.Payload) error {
	if err := r.claim(); err != nil {
		return err
	}
	return r.Replier.ReplyEphemeral(ctx, p)
}

// expire reports whether nothing has been sent yet and blocks later replies.
func (r *deadlineReplier) expire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return false
	}
	r.expired = true
	return true
}
