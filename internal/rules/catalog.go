package rules

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/roach88/modset/internal/modifier"
)

// Built-in kinds.
const (
	KindInclude   = "include"
	KindTags      = "tags"
	KindRandomise = "randomise"
)

// Factory builds a fresh Rules value for one set.
type Factory func() modifier.Rules

// Catalog maps kind names to factories.
type Catalog struct {
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Default returns a catalog with every built-in kind. Randomise draws
// from a PCG source seeded with seed, shared by every randomise set, so a
// fixed seed gives reproducible selections.
func Default(seed uint64) *Catalog {
	rng := rand.New(rand.NewPCG(seed, seed))
	c := NewCatalog()
	c.MustRegister(KindInclude, func() modifier.Rules { return Include{} })
	c.MustRegister(KindTags, func() modifier.Rules { return Tags{} })
	c.MustRegister(KindRandomise, func() modifier.Rules { return NewRandomise(rng) })
	return c
}

// Register adds a kind. Registering a kind twice is an error.
func (c *Catalog) Register(kind string, f Factory) error {
	if kind == "" {
		return fmt.Errorf("register rule: empty kind")
	}
	if _, ok := c.factories[kind]; ok {
		return fmt.Errorf("register rule %q: already registered", kind)
	}
	c.factories[kind] = f
	return nil
}

// MustRegister is Register that panics on error.
func (c *Catalog) MustRegister(kind string, f Factory) {
	if err := c.Register(kind, f); err != nil {
		panic(err)
	}
}

// New builds the rules for kind.
func (c *Catalog) New(kind string) (modifier.Rules, error) {
	f, ok := c.factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule kind %q (known: %v)", kind, c.Kinds())
	}
	return f(), nil
}

// Has reports whether kind is registered.
func (c *Catalog) Has(kind string) bool {
	_, ok := c.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
