package rules

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/tree"
)

// Randomise keeps "count" children chosen at random. A persisted
// selection is restored first (the live one, then the one kept by the
// last reset) and topped up at random if children have since dropped out.
//
// With "reshuffle_on_reset" set, an explicit reset of the node discards
// the remembered selection and the next setup draws afresh.
type Randomise struct {
	rng       *rand.Rand
	count     int
	reshuffle bool
	fresh     bool
}

// NewRandomise creates a randomise rule drawing from rng.
func NewRandomise(rng *rand.Rand) *Randomise {
	return &Randomise{rng: rng}
}

// InitConfig implements modifier.ConfigInitializer.
func (r *Randomise) InitConfig(s *modifier.Set) error {
	cfg := s.Config()
	count := cfg.Int("count", 0)
	if count < 0 {
		return fmt.Errorf("count must not be negative, got %d", count)
	}
	r.count = count
	r.reshuffle = cfg.Bool("reshuffle_on_reset", false)
	return nil
}

// SetupListeners implements modifier.ListenerInitializer.
func (r *Randomise) SetupListeners(s *modifier.Set) error {
	s.On(tree.EventReset, func(tree.Notification) {
		if r.reshuffle {
			r.fresh = true
		}
	})
	return nil
}

// SetupModels implements modifier.Rules.
func (r *Randomise) SetupModels(ctx context.Context, s *modifier.Set) error {
	pool := s.Models()
	if !s.IsEnabled() || len(pool) == 0 {
		s.SetModels(pool)
		return nil
	}

	var saved []*tree.Node
	if !r.fresh {
		saved = s.SavedNodes(ctx)
		if len(saved) == 0 {
			saved = s.ResetNodes(ctx)
		}
	}
	r.fresh = false

	chosen := make(map[*tree.Node]bool)
	for _, m := range saved {
		if len(chosen) == r.count {
			break
		}
		chosen[m] = true
	}

	for _, i := range r.rng.Perm(len(pool)) {
		if len(chosen) >= r.count {
			break
		}
		chosen[pool[i]] = true
	}

	keep := slices.DeleteFunc(slices.Clone(pool), func(m *tree.Node) bool {
		return !chosen[m]
	})
	s.SetModels(keep)

	s.Logger().Debug("randomise selection",
		"count", r.count,
		"restored", len(saved),
		"selected", len(keep),
	)
	return s.Persist(ctx)
}
