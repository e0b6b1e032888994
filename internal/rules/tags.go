package rules

import (
	"context"
	"slices"

	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/tree"
)

// Tags keeps the children carrying every tag under "require" and none of
// the tags under "exclude".
type Tags struct{}

// SetupModels implements modifier.Rules.
func (Tags) SetupModels(ctx context.Context, s *modifier.Set) error {
	if !s.IsEnabled() {
		s.SetModels(s.Models())
		return nil
	}

	cfg := s.Config()
	require := cfg.Strings("require")
	exclude := cfg.Strings("exclude")

	var keep []*tree.Node
	for _, m := range s.Models() {
		if !m.HasTags(require...) {
			continue
		}
		if slices.ContainsFunc(exclude, func(tag string) bool { return m.HasTags(tag) }) {
			continue
		}
		keep = append(keep, m)
	}
	s.SetModels(keep)
	return s.Persist(ctx)
}
