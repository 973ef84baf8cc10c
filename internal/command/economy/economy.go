// Package economy holds the stateless money commands: profile, work and open.
package economy

import (
	"strings"
	"time"
)

// WorkCooldown is the wait between two paid shifts.
const WorkCooldown = time.Hour

// parseMention accepts a raw user id or a <@id> / <@!id> mention.
func parseMention(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	return strings.TrimSuffix(s, ">")
}
