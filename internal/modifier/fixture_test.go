package modifier_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/modset/internal/engine"
	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/testutil"
	"github.com/roach88/modset/internal/tree"
)

// pick keeps the pool entries whose tracking id is listed under "ids",
// then persists.
type pick struct {
	calls int
}

func (p *pick) SetupModels(ctx context.Context, s *modifier.Set) error {
	p.calls++
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

type fixture struct {
	t      *testing.T
	ctx    context.Context
	tr     *tree.Tree
	p      *tree.Node
	e      *engine.Engine
	mt     *engine.ManualTime
	reg    *modifier.Registry
	store  *testutil.MemoryStore
	waiter *testutil.RecordingWaiter
	rec    *testutil.Recorder
}

// newFixture builds root -> P -> {A,B,C} and a registry on manual time.
func newFixture(t *testing.T, opts ...modifier.Option) *fixture {
	t.Helper()
	tr, p := testutil.ABC(t)
	f := newBareFixture(t, opts...)
	f.tr, f.p = tr, p
	return f
}

// newBareFixture builds the registry only.
func newBareFixture(t *testing.T, opts ...modifier.Option) *fixture {
	t.Helper()
	e, mt := testutil.NewManualEngine()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		e:      e,
		mt:     mt,
		store:  testutil.NewMemoryStore(),
		waiter: &testutil.RecordingWaiter{},
		rec:    &testutil.Recorder{},
	}
	base := []modifier.Option{
		modifier.WithStore(f.store),
		modifier.WithWaiter(f.waiter),
		modifier.WithObserver(f.rec),
		modifier.WithLogger(testutil.DiscardLogger()),
		modifier.WithPassIDGenerator(engine.NewSequentialGenerator("")),
	}
	f.reg = modifier.NewRegistry(e, append(base, opts...)...)
	t.Cleanup(f.reg.Close)
	return f
}

// setOn configures kind on node with ids and creates a pick set for it.
func (f *fixture) setOn(node *tree.Node, kind string, order int, ids ...string) *modifier.Set {
	f.t.Helper()
	if ids == nil {
		ids = []string{}
	}
	node.SetConfig(kind, map[string]any{"enabled": true, "ids": ids})
	s, err := modifier.New(f.reg, modifier.Options{
		Kind:  kind,
		Node:  node,
		Order: order,
		Rules: &pick{},
	})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) set(kind string, order int, ids ...string) *modifier.Set {
	f.t.Helper()
	return f.setOn(f.p, kind, order, ids...)
}

func (f *fixture) node(id tree.ID) *tree.Node {
	f.t.Helper()
	return testutil.Node(f.t, f.tr, id)
}

// start signals startup and storage, then settles.
func (f *fixture) start() {
	f.t.Helper()
	f.reg.Start(f.ctx)
	f.reg.StorageReady(f.ctx)
	f.settle()
}

func (f *fixture) settle() {
	f.t.Helper()
	testutil.Settle(f.t, f.e)
}
