package nav

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultIdle is how long an untouched session stays alive.
	DefaultIdle = 15 * time.Minute
	// DefaultSweepInterval is how often Run looks for idle sessions.
	DefaultSweepInterval = time.Minute
)

// Key identifies a session: the user driving it and the message showing it.
type Key struct {
	UserID    string
	MessageID string
}

func (k Key) String() string { return k.UserID + "/" + k.MessageID }

// Session is a live navigation bound to one rendered message.
type Session struct {
	key     Key
	stack   *Stack
	lock    chan struct{}
	touched atomic.Int64
	closed  atomic.Bool
}

func (s *Session) Key() Key { return s.key }

// Stack is only safe to use between Acquire and Release.
func (s *Session) Stack() *Stack { return s.stack }

// Release hands the session to the next waiting callback.
func (s *Session) Release() {
	select {
	case <-s.lock:
	default:
	}
}

func (s *Session) tryLock() bool {
	select {
	case s.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

// Table is the process-wide index of live sessions. The map lock only guards
// membership; each session carries its own lock so unrelated sessions never
// wait on each other.
type Table struct {
	mu        sync.RWMutex
	sessions  map[Key]*Session
	byMessage map[string]Key

	idle     time.Duration
	sweep    time.Duration
	maxDepth int
	now      func() time.Time
}

type TableOption func(*Table)

func WithIdle(d time.Duration) TableOption {
	return func(t *Table) {
		if d > 0 {
			t.idle = d
		}
	}
}

func WithSweepInterval(d time.Duration) TableOption {
	return func(t *Table) {
		if d > 0 {
			t.sweep = d
		}
	}
}

func WithMaxDepth(n int) TableOption {
	return func(t *Table) { t.maxDepth = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TableOption {
	return func(t *Table) { t.now = now }
}

func NewTable(opts ...TableOption) *Table {
	t := &Table{
		sessions:  make(map[Key]*Session),
		byMessage: make(map[string]Key),
		idle:      DefaultIdle,
		sweep:     DefaultSweepInterval,
		maxDepth:  DefaultMaxDepth,
		now:       time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Table) Idle() time.Duration { return t.idle }

// Open creates a session whose stack holds the initial screen.
func (t *Table) Open(key Key, initial Screen) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[key]; ok {
		if !t.expired(s) {
			return fmt.Errorf("open %s: %w", key, ErrSessionExists)
		}
		t.dropLocked(s)
	}

	s := &Session{key: key, stack: NewStack(t.maxDepth), lock: make(chan struct{}, 1)}
	if err := s.stack.Push(initial); err != nil {
		return err
	}
	s.touched.Store(t.now().UnixNano())
	t.sessions[key] = s
	t.byMessage[key.MessageID] = key
	return nil
}

// Acquire waits for exclusive use of a session. Callers must Release it.
// An idle session is dropped here rather than handed out.
func (t *Table) Acquire(ctx context.Context, key Key) (*Session, error) {
	t.mu.RLock()
	s, ok := t.sessions[key]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("acquire %s: %w", key, ErrSessionUnknown)
	}

	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire %s: %w", key, ErrDeadlineExceeded)
	}

	if s.closed.Load() {
		s.Release()
		return nil, fmt.Errorf("acquire %s: %w", key, ErrSessionUnknown)
	}
	if t.expired(s) {
		t.drop(s)
		s.Release()
		return nil, fmt.Errorf("acquire %s: %w", key, ErrSessionUnknown)
	}
	s.touched.Store(t.now().UnixNano())
	return s, nil
}

// Close drops a session and its screens. Safe to call while holding it.
func (t *Table) Close(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[key]; ok {
		t.dropLocked(s)
	}
}

// Owner reports which user drives the session shown on a message.
func (t *Table) Owner(messageID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, ok := t.byMessage[messageID]
	return key.UserID, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Sweep evicts idle sessions. Sessions busy with a callback are skipped.
func (t *Table) Sweep() int {
	t.mu.RLock()
	candidates := make([]*Session, 0)
	for _, s := range t.sessions {
		if t.expired(s) {
			candidates = append(candidates, s)
		}
	}
	t.mu.RUnlock()

	n := 0
	for _, s := range candidates {
		if !s.tryLock() {
			continue
		}
		if t.expired(s) && !s.closed.Load() {
			t.drop(s)
			n++
		}
		s.Release()
	}
	return n
}

// Run sweeps idle sessions until ctx is done, then drops everything.
func (t *Table) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.sweep)
	defer ticker.Stop()
	log.Info().Dur("idle", t.idle).Dur("interval", t.sweep).Msg("Session sweeper started")

	for {
		select {
		case <-ctx.Done():
			t.Shutdown()
			log.Info().Msg("Session sweeper stopped")
			return nil
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Int("live", t.Len()).Msg("Evicted idle sessions")
			}
		}
	}
}

// Shutdown drops every session.
func (t *Table) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		s.closed.Store(true)
	}
	t.sessions = make(map[Key]*Session)
	t.byMessage = make(map[string]Key)
}

func (t *Table) expired(s *Session) bool {
	last := time.Unix(0, s.touched.Load())
	return t.now().Sub(last) >= t.idle
}

func (t *Table) drop(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked(s)
}

func (t *Table) dropLocked(s *Session) {
	s.closed.Store(true)
	if cur, ok := t.sessions[s.key]; ok && cur == s {
		delete(t.sessions, s.key)
		if t.byMessage[s.key.MessageID] == s.key {
			delete(t.byMessage, s.key.MessageID)
		}
	}
}
