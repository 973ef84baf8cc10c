package nav

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultDeadline matches the lifetime of a Discord interaction token.
const DefaultDeadline = 3 * time.Second

// Replies shown to users when a callback cannot be served.
const (
	MsgSessionExpired = "Session expired. Run the command again."
	MsgStale          = "Outdated control, please reopen."
	MsgNotOwner       = "This menu belongs to someone else."
	MsgTimedOut       = "Interaction timed out."
	MsgTooDeep        = "Too deep. Go back first."
	MsgBadControl     = "Unknown control."
)

// Callback is a component interaction as delivered by the adapter.
type Callback struct {
	UserID    string
	GuildID   string
	ChannelID string
	MessageID string
	CustomID  string
	Values    []string
}

type ResponseKind int

const (
	// ResponseUpdate edits the session message with Payload.
	ResponseUpdate ResponseKind = iota
	// ResponseNotice answers only the clicking user with Notice.
	ResponseNotice
	// ResponseClose edits the message with Payload and strips its controls.
	ResponseClose
)

// Response tells the adapter what to do with a callback.
type Response struct {
	Kind    ResponseKind
	Payload Payload
	Notice  string
	// Err is the recovered failure, if any. It is informational only.
	Err           error
	CorrelationID string
}

// Router resolves callbacks to sessions and drives their screens.
type Router struct {
	table    *Table
	deps     Deps
	deadline time.Duration
}

type RouterOption func(*Router)

func WithDeadline(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.deadline = d
		}
	}
}

func NewRouter(table *Table, deps Deps, opts ...RouterOption) *Router {
	r := &Router{table: table, deps: deps, deadline: DefaultDeadline}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) Table() *Table { return r.table }

func (r *Router) Deps() Deps { return r.deps }

// Dispatch serves one callback. It never returns an error: every failure is
// folded into a Response the adapter can show.
func (r *Router) Dispatch(ctx context.Context, cb Callback) Response {
	id, err := ParseCustomID(cb.CustomID)
	if err != nil {
		return notice(MsgBadControl, err)
	}
	payload := id.Payload
	if r.deps.Vault != nil {
		var ok bool
		if payload, ok = r.deps.Vault.Resolve(id.Payload); !ok {
			return notice(MsgSessionExpired, fmt.Errorf("payload %s: %w", id.Payload, ErrSessionUnknown))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	key := Key{UserID: cb.UserID, MessageID: cb.MessageID}
	sess, err := r.table.Acquire(ctx, key)
	switch {
	case errors.Is(err, ErrSessionUnknown):
		if owner, ok := r.table.Owner(cb.MessageID); ok && owner != cb.UserID {
			return notice(MsgNotOwner, fmt.Errorf("%s on %s: %w", cb.UserID, cb.MessageID, ErrNotOwner))
		}
		return notice(MsgSessionExpired, err)
	case err != nil:
		return notice(MsgTimedOut, err)
	}

	bag := r.deps.Context(cb.UserID, cb.GuildID, cb.ChannelID)
	act := Action{Name: id.Action, Payload: payload, Values: cb.Values}

	g := &gate{}
	done := make(chan Response, 1)
	go func() {
		defer sess.Release()
		done <- r.serve(ctx, g, sess, bag, id.Screen, act)
	}()

	select {
	case resp := <-done:
		return resp
	case <-ctx.Done():
	}
	if !g.abandon() {
		// serve committed its changes and is about to reply.
		return <-done
	}
	log.Warn().Str("session", key.String()).Str("custom_id", cb.CustomID).Msg("Callback abandoned after deadline")
	return notice(MsgTimedOut, fmt.Errorf("%s: %w", cb.CustomID, ErrDeadlineExceeded))
}

// gate settles the race between a callback finishing and its deadline.
// Exactly one of commit and abandon succeeds.
type gate struct {
	state atomic.Int32
}

const (
	gateOpen int32 = iota
	gateCommitted
	gateAbandoned
)

func (g *gate) commit() bool  { return g.state.CompareAndSwap(gateOpen, gateCommitted) }
func (g *gate) abandon() bool { return g.state.CompareAndSwap(gateOpen, gateAbandoned) }

// serve runs with the session held. Stack changes are rolled back unless the
// callback completes without error and commits through g before Dispatch
// gives up on it.
func (r *Router) serve(ctx context.Context, g *gate, sess *Session, bag *Context, screenID string, act Action) Response {
	st := sess.Stack()
	top, ok := st.Top()
	if !ok {
		r.table.Close(sess.Key())
		return notice(MsgSessionExpired, ErrSessionUnknown)
	}
	if top.ID() != screenID {
		return notice(MsgStale, fmt.Errorf("%s on %s: %w", screenID, top.ID(), ErrStaleCallback))
	}

	snap := st.snapshot()
	if err := r.handle(ctx, top, bag, st, act); err != nil {
		st.restore(snap)
		if errors.Is(err, ErrNavDepthExceeded) {
			return notice(MsgTooDeep, err)
		}
		if ctx.Err() != nil {
			return notice(MsgTimedOut, fmt.Errorf("%s: %w", screenID, ErrDeadlineExceeded))
		}
		cid := uuid.NewString()
		log.Error().Err(err).
			Str("correlation_id", cid).
			Str("session", sess.Key().String()).
			Str("screen", screenID).
			Str("action", act.Name).
			Msg("Screen handler failed")
		return Response{
			Kind:          ResponseNotice,
			Notice:        fmt.Sprintf("Something went wrong (ref `%s`).", cid[:8]),
			Err:           fmt.Errorf("%s:%s: %w: %v", screenID, act.Name, ErrHandlerFailed, err),
			CorrelationID: cid,
		}
	}

	if st.Len() == 0 {
		if ctx.Err() != nil || !g.commit() {
			st.restore(snap)
			return notice(MsgTimedOut, ErrDeadlineExceeded)
		}
		r.table.Close(sess.Key())
		return Response{Kind: ResponseClose, Payload: Notice("Closed", "This menu is closed.")}
	}

	next, _ := st.Top()
	p, err := next.Render(ctx, bag)
	if ctx.Err() != nil || !g.commit() {
		st.restore(snap)
		return notice(MsgTimedOut, fmt.Errorf("%s: %w", next.ID(), ErrDeadlineExceeded))
	}
	if err != nil {
		log.Error().Err(err).Str("session", sess.Key().String()).Str("screen", next.ID()).Msg("Screen render failed")
		return Response{
			Kind:    ResponseUpdate,
			Payload: RenderErrorPayload(bag, next.ID(), st.Len()),
			Err:     fmt.Errorf("%s: %w: %v", next.ID(), ErrRenderFailed, err),
		}
	}
	return Response{Kind: ResponseUpdate, Payload: p}
}

func (r *Router) handle(ctx context.Context, top Screen, bag *Context, st *Stack, act Action) error {
	switch act.Name {
	case ActionBack:
		st.Pop()
		return nil
	case ActionClose:
		for st.Len() > 0 {
			st.Pop()
		}
		return nil
	case ActionRefresh:
		return nil
	}
	return top.Handle(ctx, bag, st, act)
}

// Render draws the top screen of a freshly opened navigation. Failures are
// turned into an error payload so the caller always has something to send.
func Render(ctx context.Context, c *Context, s Screen) (Payload, error) {
	p, err := s.Render(ctx, c)
	if err != nil {
		log.Error().Err(err).Str("screen", s.ID()).Str("user", c.UserID).Msg("Screen render failed")
		return RenderErrorPayload(c, s.ID(), 1), fmt.Errorf("%s: %w: %v", s.ID(), ErrRenderFailed, err)
	}
	return p, nil
}

// RenderErrorPayload keeps the navigation usable after a failed render.
func RenderErrorPayload(c *Context, screenID string, depth int) Payload {
	p := ErrorPayload("This page could not be loaded. Try again in a moment.")
	row := Row{c.Button(screenID, ActionRefresh, "", "Retry", StylePrimary)}
	if depth > 1 {
		row = append(row, c.BackButton(screenID))
	}
	row = append(row, c.CloseButton(screenID))
	p.Rows = []Row{row}
	return p
}

func notice(text string, err error) Response {
	return Response{Kind: ResponseNotice, Notice: text, Err: err}
}
