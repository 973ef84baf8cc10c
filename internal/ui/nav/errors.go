package nav

import "errors"

var (
	// ErrNavDepthExceeded is returned by Push on a full stack.
	ErrNavDepthExceeded = errors.New("navigation too deep")
	// ErrStackEmpty is returned by ReplaceTop when there is nothing to replace.
	ErrStackEmpty = errors.New("navigation stack is empty")

	ErrSessionUnknown   = errors.New("session unknown")
	ErrSessionExists    = errors.New("session already exists")
	ErrNotOwner         = errors.New("session belongs to another user")
	ErrStaleCallback    = errors.New("stale callback")
	ErrRenderFailed     = errors.New("render failed")
	ErrHandlerFailed    = errors.New("handler failed")
	ErrDeadlineExceeded = errors.New("interaction deadline exceeded")
	ErrBadCustomID      = errors.New("malformed custom id")
)
