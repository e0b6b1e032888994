package rules

import (
	"context"
	"slices"

	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/tree"
)

// Include keeps the children whose tracking id is listed under "ids".
type Include struct{}

// SetupModels implements modifier.Rules.
func (Include) SetupModels(ctx context.Context, s *modifier.Set) error {
	if !s.IsEnabled() {
		s.SetModels(s.Models())
		return nil
	}

	ids := s.Config().Strings("ids")
	var keep []*tree.Node
	for _, m := range s.Models() {
		if slices.Contains(ids, string(m.TrackingID())) {
			keep = append(keep, m)
		}
	}
	s.SetModels(keep)
	return s.Persist(ctx)
}
