package nav

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// vaultMarker prefixes payloads that were parked server-side.
const vaultMarker = "@"

type vaultEntry struct {
	value   string
	expires time.Time
}

// Vault keeps control payloads that do not fit into a custom id.
// Entries live as long as an idle session would.
type Vault struct {
	mu      sync.Mutex
	entries map[string]vaultEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewVault(ttl time.Duration) *Vault {
	if ttl <= 0 {
		ttl = DefaultIdle
	}
	return &Vault{entries: make(map[string]vaultEntry), ttl: ttl, now: time.Now}
}

// Put stores value and returns the reference to embed in a custom id.
func (v *Vault) Put(value string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	v.mu.Lock()
	v.entries[token] = vaultEntry{value: value, expires: v.now().Add(v.ttl)}
	v.mu.Unlock()
	return vaultMarker + token
}

// Resolve turns a payload back into its value. Payloads without the marker
// are returned as is.
func (v *Vault) Resolve(payload string) (string, bool) {
	if !strings.HasPrefix(payload, vaultMarker) {
		return payload, true
	}
	token := strings.TrimPrefix(payload, vaultMarker)
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[token]
	if !ok || v.now().After(e.expires) {
		delete(v.entries, token)
		return "", false
	}
	e.expires = v.now().Add(v.ttl)
	v.entries[token] = e
	return e.value, true
}

// Sweep drops expired entries and reports how many went away.
func (v *Vault) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	n := 0
	for k, e := range v.entries {
		if now.After(e.expires) {
			delete(v.entries, k)
			n++
		}
	}
	return n
}

func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}
