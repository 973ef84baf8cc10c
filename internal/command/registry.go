package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// ErrRegistrationCollision is returned when two commands claim the same name
// or alias.
var ErrRegistrationCollision = errors.New("command name collision")

// Registry stores commands by name and alias.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds c wrapped with mws. The first middleware is the outermost.
func (r *Registry) Register(c Command, mws ...Middleware) error {
	d := c.Register()
	name := strings.ToLower(d.Name)
	if name == "" {
		return fmt.Errorf("command without a name: %T", Root(c))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	claims := append([]string{name}, lowerAll(d.Aliases)...)
	seen := make(map[string]bool, len(claims))
	for _, n := range claims {
		if n == "" {
			return fmt.Errorf("%w: %q has an empty alias", ErrRegistrationCollision, name)
		}
		if seen[n] {
			return fmt.Errorf("%w: %q is claimed twice by %q", ErrRegistrationCollision, n, name)
		}
		seen[n] = true
		if owner, ok := r.owner(n); ok {
			return fmt.Errorf("%w: %q is already taken by %q", ErrRegistrationCollision, n, owner)
		}
	}
	r.commands[name] = Apply(c, mws...)
	for _, a := range claims[1:] {
		r.aliases[a] = name
	}
	return nil
}

// MustRegister panics on collisions; registration mistakes are fatal at startup.
func (r *Registry) MustRegister(c Command, mws ...Middleware) {
	if err := r.Register(c, mws...); err != nil {
		panic(err)
	}
}

func (r *Registry) owner(n string) (string, bool) {
	if _, ok := r.commands[n]; ok {
		return n, true
	}
	owner, ok := r.aliases[n]
	return owner, ok
}

// Get resolves a name or alias.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name = strings.ToLower(name)
	if c, ok := r.commands[name]; ok {
		return c, true
	}
	if owner, ok := r.aliases[name]; ok {
		return r.commands[owner], true
	}
	return nil, false
}

// All returns every command sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Register().Name < list[j].Register().Name
	})
	return list
}

// Slash returns the commands advertised to the platform as slash commands.
func (r *Registry) Slash() []Command {
	var out []Command
	for _, c := range r.All() {
		if !c.Register().PrefixOnly {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Descriptors() []Descriptor {
	all := r.All()
	out := make([]Descriptor, len(all))
	for i, c := range all {
		out[i] = c.Register()
	}
	return out
}

// Suggest returns the closest known name or alias to an unknown one.
func (r *Registry) Suggest(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	best, bestDist := "", 3
	consider := func(candidate string) {
		d := levenshtein.ComputeDistance(name, candidate)
		if d < bestDist || (d == bestDist && candidate < best) {
			best, bestDist = candidate, d
		}
	}
	for n := range r.commands {
		consider(n)
	}
	for a := range r.aliases {
		consider(a)
	}
	return best, best != ""
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
