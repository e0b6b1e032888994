package course

import (
	"fmt"

	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/tree"
)

// RulesFactory builds the rules for a modifier kind.
type RulesFactory interface {
	New(kind string) (modifier.Rules, error)
}

// Built is a course turned into live objects.
type Built struct {
	Tree *tree.Tree
	// Sets in creation order (pre-order over the tree, then modifier order
	// within a node). Registration order differs: a node's sets register
	// when its children are ready, so inner nodes register first.
	Sets []*modifier.Set
}

// Build creates the tree for c and a modifier set for every modifier
// spec, bound to reg. c should already be validated.
func Build(c *Course, reg *modifier.Registry, factory RulesFactory) (*Built, error) {
	b := &Built{Tree: tree.New()}
	if err := b.addNode("", &c.Root, reg, factory); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Built) addNode(parent tree.ID, spec *NodeSpec, reg *modifier.Registry, factory RulesFactory) error {
	n, err := b.Tree.AddNode(parent, tree.NodeSpec{
		ID:          tree.ID(spec.ID),
		TrackingID:  tree.TrackingID(spec.Tracking()),
		Tags:        spec.Tags,
		Unavailable: spec.Unavailable,
	})
	if err != nil {
		return fmt.Errorf("build course: %w", err)
	}
	n.SetInteractionComplete(spec.Complete)
	for _, m := range spec.Modifiers {
		cfg := m.Config
		if cfg == nil {
			cfg = map[string]any{}
		}
		n.SetConfig(m.Kind, cfg)
	}

	hasChildren := len(spec.Children) > 0
	if hasChildren {
		if err := b.Tree.BeginChildren(n.ID()); err != nil {
			return fmt.Errorf("build course: %w", err)
		}
	}

	for _, m := range spec.Modifiers {
		rules, err := factory.New(m.Kind)
		if err != nil {
			return fmt.Errorf("build course: node %q: %w", spec.ID, err)
		}
		s, err := modifier.New(reg, modifier.Options{
			Kind:  m.Kind,
			Node:  n,
			Order: m.Order,
			Rules: rules,
		})
		if err != nil {
			return fmt.Errorf("build course: node %q: %w", spec.ID, err)
		}
		b.Sets = append(b.Sets, s)
	}

	if !hasChildren {
		return nil
	}
	for i := range spec.Children {
		if err := b.addNode(n.ID(), &spec.Children[i], reg, factory); err != nil {
			return err
		}
	}
	if err := b.Tree.EndChildren(n.ID()); err != nil {
		return fmt.Errorf("build course: %w", err)
	}
	return nil
}
