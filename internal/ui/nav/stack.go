package nav

import "fmt"

// DefaultMaxDepth caps how deep a single navigation may go.
const DefaultMaxDepth = 16

// Stack is a LIFO of screens owned by one session. It is not safe for
// concurrent use; the session lock guards it.
type Stack struct {
	screens  []Screen
	maxDepth int
}

// NewStack returns an empty stack capped at maxDepth (DefaultMaxDepth if <= 0).
func NewStack(maxDepth int) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Stack{maxDepth: maxDepth}
}

// Push puts s on top. A full stack is left untouched.
func (st *Stack) Push(s Screen) error {
	if len(st.screens) >= st.maxDepth {
		return fmt.Errorf("push %s: %w (max %d)", s.ID(), ErrNavDepthExceeded, st.maxDepth)
	}
	st.screens = append(st.screens, s)
	return nil
}

// Pop removes and returns the top screen.
func (st *Stack) Pop() (Screen, bool) {
	n := len(st.screens)
	if n == 0 {
		return nil, false
	}
	top := st.screens[n-1]
	st.screens[n-1] = nil
	st.screens = st.screens[:n-1]
	return top, true
}

// Top returns the visible screen.
func (st *Stack) Top() (Screen, bool) {
	if len(st.screens) == 0 {
		return nil, false
	}
	return st.screens[len(st.screens)-1], true
}

// ReplaceTop swaps the top screen in place, keeping the depth.
func (st *Stack) ReplaceTop(s Screen) error {
	if len(st.screens) == 0 {
		return fmt.Errorf("replace with %s: %w", s.ID(), ErrStackEmpty)
	}
	st.screens[len(st.screens)-1] = s
	return nil
}

func (st *Stack) Len() int { return len(st.screens) }

// IDs lists screen ids bottom to top.
func (st *Stack) IDs() []string {
	ids := make([]string, len(st.screens))
	for i, s := range st.screens {
		ids[i] = s.ID()
	}
	return ids
}

func (st *Stack) snapshot() []Screen {
	return append([]Screen(nil), st.screens...)
}

func (st *Stack) restore(snap []Screen) {
	st.screens = snap
}
