package content

import (
	"math/rand/v2"
	"sync"
)

// Dice is a random source safe for use by concurrent commands.
type Dice struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewDice wraps src, or a randomly seeded source when src is nil.
func NewDice(src rand.Source) *Dice {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Dice{r: rand.New(src)}
}

func (d *Dice) IntN(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.IntN(n)
}

func (d *Dice) Job(c *Catalog) (Job, int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return c.RandomJob(d.r)
}

func (d *Dice) Loot(ct Container) LootEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ct.Roll(d.r)
}
