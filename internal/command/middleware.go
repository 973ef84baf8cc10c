package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

// Middleware wraps a command (logging, rate limiting, recovery).
type Middleware func(Command) Command

// Apply applies middlewares in order; the first in the list is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// Call describes one execution as seen by middleware, whichever surface it
// came from.
type Call struct {
	Command  string
	Username string
	Param    string
	Prefix   bool
	Reply    Replier
}

// Hook runs around a command; next executes the wrapped command.
type Hook func(ctx context.Context, c *nav.Context, call Call, next func(context.Context) error) error

// Wrapped wraps a command with a hook. The inner command is exposed via
// Unwrap.
type Wrapped struct {
	Inner Command
	Hook  Hook
}

func (w *Wrapped) Register() Descriptor { return w.Inner.Register() }

func (w *Wrapped) RunSlash(ctx context.Context, c *nav.Context, inv *Invocation) error {
	call := Call{
		Command:  w.Inner.Register().Name,
		Username: inv.Username,
		Param:    formatOptions(inv.Options),
		Reply:    inv.Reply,
	}
	return w.Hook(ctx, c, call, func(ctx context.Context) error {
		return w.Inner.RunSlash(ctx, c, inv)
	})
}

func (w *Wrapped) RunPrefix(ctx context.Context, c *nav.Context, msg *Message, args []string) error {
	call := Call{
		Command:  w.Inner.Register().Name,
		Username: msg.Username,
		Param:    strings.Join(args, " "),
		Prefix:   true,
		Reply:    msg.Reply,
	}
	return w.Hook(ctx, c, call, func(ctx context.Context) error {
		return w.Inner.RunPrefix(ctx, c, msg, args)
	})
}

func (w *Wrapped) Unwrap() Command { return w.Inner }

// Wrap returns a command that runs through h.
func Wrap(c Command, h Hook) Command {
	return &Wrapped{Inner: c, Hook: h}
}

// Root unwraps a command until the underlying command is not wrapped.
func Root(c Command) Command {
	for {
		w, ok := c.(*Wrapped)
		if !ok {
			return c
		}
		c = w.Inner
	}
}

// HistoryStore records executed commands per guild.
type HistoryStore interface {
	AppendCommandHistory(guildID string, rec storage.CommandHistoryRecord) error
}

// WithCommandLogger logs every execution and appends it to the guild history.
func WithCommandLogger(store HistoryStore) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx context.Context, c *nav.Context, call Call, next func(context.Context) error) error {
			start := time.Now()
			err := next(ctx)

			ev := log.Info()
			if err != nil {
				if _, ok := AsUserError(err); !ok {
					ev = log.Warn().Err(err)
				}
			}
			ev.Str("command", call.Command).
				Str("user", c.UserID).
				Str("guild", c.GuildID).
				Bool("prefix", call.Prefix).
				Dur("took", time.Since(start)).
				Msg("Command executed")

			if store != nil && c.GuildID != "" {
				rec := storage.CommandHistoryRecord{
					ChannelID: c.ChannelID,
					GuildID:   c.GuildID,
					UserID:    c.UserID,
					Username:  call.Username,
					Command:   call.Command,
					Param:     call.Param,
					Datetime:  start,
				}
				if e := store.AppendCommandHistory(c.GuildID, rec); e != nil {
					log.Warn().Err(e).Str("command", call.Command).Msg("Failed to log command")
				}
			}
			return err
		})
	}
}

// WithRateLimit allows each user r commands per second with the given burst.
// Limited calls get an ephemeral notice and do not run.
func WithRateLimit(r rate.Limit, burst int) Middleware {
	users := newLimiterSet(r, burst, time.Now)
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx context.Context, c *nav.Context, call Call, next func(context.Context) error) error {
			if !users.allow(c.UserID) {
				return Fail("Slow down a little.")
			}
			return next(ctx)
		})
	}
}

// limiterSet holds one limiter per user. A limiter idle long enough to
// refill its whole burst is dropped, a fresh one behaves the same.
type limiterSet struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	users     map[string]*userLimiter
	lastSweep time.Time
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiterSet(r rate.Limit, burst int, now func() time.Time) *limiterSet {
	idle := time.Hour
	if r > 0 && r != rate.Inf {
		idle = max(time.Duration(float64(burst)/float64(r)*float64(time.Second)), time.Minute)
	}
	return &limiterSet{
		limit:     r,
		burst:     burst,
		idle:      idle,
		now:       now,
		users:     make(map[string]*userLimiter),
		lastSweep: now(),
	}
}

func (s *limiterSet) allow(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		for id, u := range s.users {
			if now.Sub(u.seen) >= s.idle {
				delete(s.users, id)
			}
		}
		s.lastSweep = now
	}
	u, ok := s.users[userID]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(s.limit, s.burst)}
		s.users[userID] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// DisabledChecker reports whether a command is switched off in a guild.
type DisabledChecker interface {
	IsDisabled(guildID, name string) (bool, error)
}

// WithEnabledCheck refuses commands a guild has disabled.
func WithEnabledCheck(settings DisabledChecker) Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx context.Context, c *nav.Context, call Call, next func(context.Context) error) error {
			if c.GuildID != "" {
				off, err := settings.IsDisabled(c.GuildID, call.Command)
				if err != nil {
					log.Warn().Err(err).Str("guild", c.GuildID).Msg("Failed to read disabled commands")
				}
				if off {
					return Fail("`%s` is disabled on this server.", call.Command)
				}
			}
			return next(ctx)
		})
	}
}

// WithRecover turns a panic inside a command into an error.
func WithRecover() Middleware {
	return func(cmd Command) Command {
		return Wrap(cmd, func(ctx context.Context, c *nav.Context, call Call, next func(context.Context) error) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("command", call.Command).Bytes("stack", debug.Stack()).Msgf("Command panicked: %v", r)
					err = fmt.Errorf("command %s panicked: %v", call.Command, r)
				}
			}()
			return next(ctx)
		})
	}
}

func formatOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + opts[k]
	}
	return strings.Join(parts, " ")
}
