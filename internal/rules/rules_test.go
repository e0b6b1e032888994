package rules_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modset/internal/engine"
	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/rules"
	"github.com/roach88/modset/internal/testutil"
	"github.com/roach88/modset/internal/tree"
)

type env struct {
	ctx   context.Context
	e     *engine.Engine
	reg   *modifier.Registry
	store *testutil.MemoryStore
	tr    *tree.Tree
	p     *tree.Node
}

func newEnv(t *testing.T, store *testutil.MemoryStore) *env {
	t.Helper()
	e, _ := testutil.NewManualEngine()
	if store == nil {
		store = testutil.NewMemoryStore()
	}
	reg := modifier.NewRegistry(e,
		modifier.WithStore(store),
		modifier.WithLogger(testutil.DiscardLogger()),
	)
	t.Cleanup(reg.Close)
	tr, p := testutil.ABC(t)
	return &env{ctx: context.Background(), e: e, reg: reg, store: store, tr: tr, p: p}
}

func (v *env) add(t *testing.T, kind string, r modifier.Rules, cfg map[string]any) *modifier.Set {
	t.Helper()
	v.p.SetConfig(kind, cfg)
	s, err := modifier.New(v.reg, modifier.Options{Kind: kind, Node: v.p, Rules: r})
	require.NoError(t, err)
	return s
}

func (v *env) start(t *testing.T) {
	t.Helper()
	v.reg.Start(v.ctx)
	v.reg.StorageReady(v.ctx)
	testutil.Settle(t, v.e)
}

func TestCatalog(t *testing.T) {
	c := rules.Default(1)
	assert.Equal(t, []string{rules.KindInclude, rules.KindRandomise, rules.KindTags}, c.Kinds())
	assert.True(t, c.Has(rules.KindTags))

	r, err := c.New(rules.KindInclude)
	require.NoError(t, err)
	assert.IsType(t, rules.Include{}, r)

	_, err = c.New("missing")
	assert.ErrorContains(t, err, "unknown rule kind")

	assert.Error(t, c.Register(rules.KindInclude, func() modifier.Rules { return rules.Include{} }))
	assert.Error(t, c.Register("", nil))
	assert.Panics(t, func() { c.MustRegister(rules.KindTags, nil) })
}

func TestCatalog_RandomiseInstancesAreIndependent(t *testing.T) {
	c := rules.Default(1)
	a, err := c.New(rules.KindRandomise)
	require.NoError(t, err)
	b, err := c.New(rules.KindRandomise)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestInclude(t *testing.T) {
	v := newEnv(t, nil)
	v.add(t, rules.KindInclude, rules.Include{}, map[string]any{"enabled": true, "ids": []any{"1", "3"}})
	v.start(t)

	assert.Equal(t, []tree.ID{"A", "C"}, testutil.Available(v.p))
	tok, ok := v.store.Token(rules.KindInclude, "P")
	require.True(t, ok)
	assert.Equal(t, `["1","3"]`, tok)
}

func TestInclude_DisabledKeepsPool(t *testing.T) {
	v := newEnv(t, nil)
	v.add(t, rules.KindInclude, rules.Include{}, map[string]any{"enabled": false, "ids": []any{"1"}})
	v.start(t)

	assert.Len(t, v.p.AvailableChildren(), 3)
	assert.Equal(t, 0, v.store.Namespaces(), "disabled rules do not persist")
}

func TestTags(t *testing.T) {
	v := newEnv(t, nil)
	v.add(t, rules.KindTags, rules.Tags{}, map[string]any{
		"enabled": true,
		"require": []any{"core"},
		"exclude": []any{"extra"},
	})
	v.start(t)

	assert.Equal(t, []tree.ID{"A"}, testutil.Available(v.p))
}

func TestRandomise_SelectsCountAndPersists(t *testing.T) {
	v := newEnv(t, nil)
	cfg := map[string]any{"enabled": true, "count": 2}
	v.add(t, rules.KindRandomise, rules.NewRandomise(rand.New(rand.NewPCG(1, 2))), cfg)
	v.start(t)

	chosen := testutil.Available(v.p)
	require.Len(t, chosen, 2)
	_, ok := v.store.Token(rules.KindRandomise, "P")
	assert.True(t, ok)

	// A refresh pass restores the selection through the reset marker.
	v.p.Trigger(tree.EventRefresh)
	testutil.Settle(t, v.e)
	assert.Equal(t, chosen, testutil.Available(v.p))
}

func TestRandomise_RestoresAcrossSessions(t *testing.T) {
	store := testutil.NewMemoryStore()
	cfg := map[string]any{"enabled": true, "count": 2}

	first := newEnv(t, store)
	first.add(t, rules.KindRandomise, rules.NewRandomise(rand.New(rand.NewPCG(1, 1))), cfg)
	first.start(t)
	chosen := testutil.Available(first.p)

	second := newEnv(t, store)
	second.add(t, rules.KindRandomise, rules.NewRandomise(rand.New(rand.NewPCG(99, 99))), cfg)
	second.start(t)
	assert.Equal(t, chosen, testutil.Available(second.p))
}

func TestRandomise_TopsUpDroppedSelection(t *testing.T) {
	v := newEnv(t, nil)
	v.store.Put(rules.KindRandomise, "P", `["3","9"]`)
	v.add(t, rules.KindRandomise, rules.NewRandomise(rand.New(rand.NewPCG(5, 5))), map[string]any{"enabled": true, "count": 2})
	v.start(t)

	got := testutil.Available(v.p)
	require.Len(t, got, 2)
	assert.Contains(t, got, tree.ID("C"), "restored id kept")
}

func TestRandomise_NegativeCountIsReported(t *testing.T) {
	v := newEnv(t, nil)
	rec := &testutil.Recorder{}
	reg := modifier.NewRegistry(v.e, modifier.WithObserver(rec), modifier.WithLogger(testutil.DiscardLogger()))
	t.Cleanup(reg.Close)

	v.p.SetConfig(rules.KindRandomise, map[string]any{"enabled": true, "count": -1})
	_, err := modifier.New(reg, modifier.Options{
		Kind:  rules.KindRandomise,
		Node:  v.p,
		Rules: rules.NewRandomise(rand.New(rand.NewPCG(1, 1))),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count(modifier.EventSetupError))
}

func TestRandomise_ReshuffleOnResetSkipsSavedState(t *testing.T) {
	v := newEnv(t, nil)
	s := v.add(t, rules.KindRandomise, rules.NewRandomise(rand.New(rand.NewPCG(3, 3))), map[string]any{
		"enabled":            true,
		"count":              1,
		"reshuffle_on_reset": true,
	})
	v.store.Put(rules.KindRandomise, "P", `["1"]`)

	gets := v.store.Gets
	require.NoError(t, s.Refresh(v.ctx))
	assert.Equal(t, []tree.ID{"A"}, testutil.Available(v.p))
	assert.Equal(t, 2, v.store.Gets-gets, "saved state read, then persisted")

	require.NoError(t, s.Reset(v.ctx))
	v.p.Trigger(tree.EventReset)

	gets = v.store.Gets
	require.NoError(t, s.Refresh(v.ctx))
	assert.Len(t, testutil.Available(v.p), 1)
	assert.Equal(t, 1, v.store.Gets-gets, "saved state ignored after reset")
}

func TestRandomise_CloseDetachesResetListener(t *testing.T) {
	v := newEnv(t, nil)
	v.add(t, rules.KindRandomise, rules.NewRandomise(rand.New(rand.NewPCG(3, 3))),
		map[string]any{"enabled": true, "count": 1, "reshuffle_on_reset": true})
	v.start(t)
	require.Positive(t, v.tr.Listeners(v.p.ID(), tree.EventReset))

	v.reg.Close()
	assert.Equal(t, 0, v.tr.Listeners(v.p.ID(), tree.EventReset))
}
