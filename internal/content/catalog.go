// Package content holds the static game data: jobs, quests, the tavern menu,
// loot containers and poker tables.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultCatalog []byte

// Duration decodes TOML strings such as "45m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Job struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	MinPay int64  `toml:"min_pay"`
	MaxPay int64  `toml:"max_pay"`
}

type Quest struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Duration    Duration `toml:"duration"`
	Reward      int64    `toml:"reward"`
	XP          int64    `toml:"xp"`
}

type Drink struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Price int64  `toml:"price"`
	Heal  int    `toml:"heal"`
}

// LootEntry is one weighted outcome of opening a container.
type LootEntry struct {
	Item   string `toml:"item"`
	Qty    int    `toml:"qty"`
	Coins  int64  `toml:"coins"`
	Weight int    `toml:"weight"`
}

type Container struct {
	ID   string      `toml:"id"`
	Name string      `toml:"name"`
	Loot []LootEntry `toml:"loot"`
}

type Table struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	BuyIn int64  `toml:"buy_in"`
	Seats int    `toml:"seats"`
}

type PartyRules struct {
	RecruitCost int64    `toml:"recruit_cost"`
	MaxMembers  int      `toml:"max_members"`
	Names       []string `toml:"names"`
}

type Catalog struct {
	Party      PartyRules  `toml:"party"`
	Jobs       []Job       `toml:"job"`
	Quests     []Quest     `toml:"quest"`
	Drinks     []Drink     `toml:"drink"`
	Containers []Container `toml:"container"`
	Tables     []Table     `toml:"table"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are unique and every number is usable.
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	check := func(kind, id string) {
		key := kind + "/" + id
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("%s without id", kind))
		case seen[key]:
			errs = append(errs, fmt.Errorf("duplicate %s %q", kind, id))
		}
		seen[key] = true
	}

	if len(c.Jobs) == 0 {
		errs = append(errs, errors.New("no jobs defined"))
	}
	for _, j := range c.Jobs {
		check("job", j.ID)
		if j.MinPay <= 0 || j.MaxPay < j.MinPay {
			errs = append(errs, fmt.Errorf("job %q: bad pay range %d-%d", j.ID, j.MinPay, j.MaxPay))
		}
	}
	for _, q := range c.Quests {
		check("quest", q.ID)
		if q.Duration.Duration <= 0 {
			errs = append(errs, fmt.Errorf("quest %q: duration must be positive", q.ID))
		}
	}
	for _, d := range c.Drinks {
		check("drink", d.ID)
		if d.Price < 0 || d.Heal <= 0 {
			errs = append(errs, fmt.Errorf("drink %q: bad price or heal", d.ID))
		}
	}
	for _, ct := range c.Containers {
		check("container", ct.ID)
		if len(ct.Loot) == 0 {
			errs = append(errs, fmt.Errorf("container %q: empty loot table", ct.ID))
		}
		for _, l := range ct.Loot {
			if l.Weight <= 0 {
				errs = append(errs, fmt.Errorf("container %q: loot weight must be positive", ct.ID))
			}
			if l.Item == "" && l.Coins == 0 {
				errs = append(errs, fmt.Errorf("container %q: loot entry yields nothing", ct.ID))
			}
		}
	}
	for _, t := range c.Tables {
		check("table", t.ID)
		if t.Seats < 2 || t.BuyIn <= 0 {
			errs = append(errs, fmt.Errorf("table %q: needs 2+ seats and a buy-in", t.ID))
		}
	}
	if c.Party.RecruitCost <= 0 || c.Party.MaxMembers <= 0 || len(c.Party.Names) == 0 {
		errs = append(errs, errors.New("party: recruit_cost, max_members and names are required"))
	}
	return errors.Join(errs...)
}

func (c *Catalog) Quest(id string) (Quest, bool) {
	for _, q := range c.Quests {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}

func (c *Catalog) Drink(id string) (Drink, bool) {
	for _, d := range c.Drinks {
		if d.ID == id {
			return d, true
		}
	}
	return Drink{}, false
}

func (c *Catalog) Container(id string) (Container, bool) {
	for _, ct := range c.Containers {
		if ct.ID == id {
			return ct, true
		}
	}
	return Container{}, false
}

func (c *Catalog) Table(id string) (Table, bool) {
	for _, t := range c.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// RandomJob picks a job and a pay within its range.
func (c *Catalog) RandomJob(r *rand.Rand) (Job, int64) {
	j := c.Jobs[r.IntN(len(c.Jobs))]
	return j, j.MinPay + r.Int64N(j.MaxPay-j.MinPay+1)
}

// Roll picks a loot entry proportionally to its weight.
func (ct Container) Roll(r *rand.Rand) LootEntry {
	total := 0
	for _, l := range ct.Loot {
		total += l.Weight
	}
	n := r.IntN(total)
	for _, l := range ct.Loot {
		if n < l.Weight {
			return l
		}
		n -= l.Weight
	}
	return ct.Loot[len(ct.Loot)-1]
}

// ItemName turns an item id into display text, using container names where known.
func (c *Catalog) ItemName(id string) string {
	if ct, ok := c.Container(id); ok {
		return ct.Name
	}
	return id
}
