package nav

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCustomIDLen is Discord's limit for a component custom id.
const MaxCustomIDLen = 100

const sep = ":"

// CallbackID is a parsed "<screen>:<action>[:<payload>]" custom id.
type CallbackID struct {
	Screen  string
	Action  string
	Payload string
}

// EncodeCustomID builds a custom id. Screen and action must be non-empty
// printable text (spaces allowed) without ':'; the payload is opaque.
func EncodeCustomID(screen, action, payload string) (string, error) {
	if !validToken(screen) {
		return "", fmt.Errorf("%w: screen %q", ErrBadCustomID, screen)
	}
	if !validToken(action) {
		return "", fmt.Errorf("%w: action %q", ErrBadCustomID, action)
	}
	id := screen + sep + action
	if payload != "" {
		id += sep + payload
	}
	if len(id) > MaxCustomIDLen {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrBadCustomID, len(id), MaxCustomIDLen)
	}
	return id, nil
}

// ParseCustomID splits a custom id. Everything after the second ':' is payload.
func ParseCustomID(s string) (CallbackID, error) {
	if len(s) > MaxCustomIDLen {
		return CallbackID{}, fmt.Errorf("%w: too long", ErrBadCustomID)
	}
	parts := strings.SplitN(s, sep, 3)
	if len(parts) < 2 || !validToken(parts[0]) || !validToken(parts[1]) {
		return CallbackID{}, fmt.Errorf("%w: %q", ErrBadCustomID, s)
	}
	id := CallbackID{Screen: parts[0], Action: parts[1]}
	if len(parts) == 3 {
		id.Payload = parts[2]
	}
	return id, nil
}

func (id CallbackID) String() string {
	s := id.Screen + sep + id.Action
	if id.Payload != "" {
		s += sep + id.Payload
	}
	return s
}

// validToken accepts printable text without ':'. Space counts as printable.
func validToken(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) || r == ':' {
			return false
		}
	}
	return true
}
