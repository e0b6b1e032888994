package modifier

import (
	"context"
	"fmt"

	"github.com/roach88/modset/internal/tree"
)

// ResetSuffix is appended to a kind to form the namespace that holds the
// selection a set had before its last Reset.
const ResetSuffix = "#reset"

// StateStore is the namespaced key/value backend for selections.
//
// A record maps node id to a token produced by Serialize. Set replaces
// the whole namespace.
type StateStore interface {
	Get(ctx context.Context, namespace string) (map[string]string, error)
	Set(ctx context.Context, namespace string, record map[string]string) error
	Serialize(ids []tree.TrackingID) (string, error)
	Deserialize(token string) ([]tree.TrackingID, error)
}

// Persist writes the current selection under the set's namespace. An
// empty selection deletes the entry instead of storing an empty list.
// Without a store this is a no-op.
func (s *Set) Persist(ctx context.Context) error {
	if s.reg.store == nil {
		return nil
	}
	if err := s.writeState(ctx, s.SaveStateName(), s.SaveState()); err != nil {
		return s.errorf("persist", err)
	}
	return nil
}

// persistReset drops the set's entry and keeps the pre-reset selection
// under the reset marker. An empty selection leaves the marker as it was,
// so it always holds the last non-empty selection.
func (s *Set) persistReset(ctx context.Context) error {
	if s.reg.store == nil {
		return nil
	}
	state := s.SaveState()
	if err := s.writeState(ctx, s.SaveStateName(), nil); err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	return s.writeState(ctx, s.SaveStateName()+ResetSuffix, state)
}

func (s *Set) writeState(ctx context.Context, namespace string, state []tree.TrackingID) error {
	st := s.reg.store
	record, err := st.Get(ctx, namespace)
	if err != nil {
		return fmt.Errorf("read %q: %w", namespace, err)
	}
	if record == nil {
		record = make(map[string]string)
	}

	key := string(s.node.ID())
	if state == nil {
		if _, ok := record[key]; !ok {
			return nil
		}
		delete(record, key)
	} else {
		token, err := st.Serialize(state)
		if err != nil {
			return fmt.Errorf("serialize: %w", err)
		}
		record[key] = token
	}

	if err := st.Set(ctx, namespace, record); err != nil {
		return fmt.Errorf("write %q: %w", namespace, err)
	}
	return nil
}

// SavedNodes restores the persisted selection against the currently
// available children. Unknown ids are dropped. Returns nil when nothing
// is saved or the state cannot be read.
func (s *Set) SavedNodes(ctx context.Context) []*tree.Node {
	return s.loadNodes(ctx, s.SaveStateName())
}

// ResetNodes restores the selection recorded by the last Reset.
func (s *Set) ResetNodes(ctx context.Context) []*tree.Node {
	return s.loadNodes(ctx, s.SaveStateName()+ResetSuffix)
}

func (s *Set) loadNodes(ctx context.Context, namespace string) []*tree.Node {
	st := s.reg.store
	if st == nil {
		return nil
	}

	record, err := st.Get(ctx, namespace)
	if err != nil {
		s.Logger().Warn("saved state unreadable, ignoring",
			"namespace", namespace,
			"error", err,
		)
		return nil
	}
	token, ok := record[string(s.node.ID())]
	if !ok {
		return nil
	}
	ids, err := st.Deserialize(token)
	if err != nil {
		s.Logger().Warn("saved state undecodable, ignoring",
			"namespace", namespace,
			"error", err,
		)
		return nil
	}

	pool := s.Models()
	var out []*tree.Node
	for _, id := range ids {
		if n, ok := tree.FindByTrackingID(pool, id); ok {
			out = append(out, n)
		}
	}
	return out
}
