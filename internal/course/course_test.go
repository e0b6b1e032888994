package course_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modset/internal/course"
	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/rules"
	"github.com/roach88/modset/internal/testutil"
	"github.com/roach88/modset/internal/tree"
)

func assertBranching(t *testing.T, c *course.Course) {
	t.Helper()
	assert.Equal(t, "branching", c.Name)
	assert.Equal(t, uint64(7), c.Seed)
	require.Len(t, c.Root.Children, 2)

	page1 := c.Root.Children[0]
	require.Len(t, page1.Modifiers, 2)
	assert.Equal(t, "tags", page1.Modifiers[0].Kind)
	assert.Equal(t, 1, page1.Modifiers[0].Order)
	assert.Equal(t, true, page1.Modifiers[0].Config["enabled"])
	assert.Equal(t, []string{"core"}, modifier.Config(page1.Modifiers[0].Config).Strings("require"))
	assert.Equal(t, []string{"2", "3"}, modifier.Config(page1.Modifiers[1].Config).Strings("ids"))
	require.Len(t, page1.Children, 3)
	assert.Equal(t, "1", page1.Children[0].Tracking())

	page2 := c.Root.Children[1]
	assert.True(t, page2.Complete)
	assert.Equal(t, "d", page2.Children[0].Tracking(), "tracking id defaults to id")
}

func TestLoadYAML(t *testing.T) {
	c, err := course.LoadYAML("testdata/branching.yaml")
	require.NoError(t, err)
	assertBranching(t, c)
}

func TestLoadCUE(t *testing.T) {
	c, err := course.LoadCUE("testdata/branching")
	require.NoError(t, err)
	assertBranching(t, c)
}

func TestLoad_DispatchesOnPath(t *testing.T) {
	c, err := course.Load("testdata/branching")
	require.NoError(t, err)
	assert.Equal(t, "branching", c.Name)

	c, err = course.Load("testdata/branching/course.cue")
	require.NoError(t, err)
	assert.Equal(t, "branching", c.Name)

	c, err = course.Load("testdata/branching.yaml")
	require.NoError(t, err)
	assert.Equal(t, "branching", c.Name)

	_, err = course.Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestLoadYAML_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nroot:\n  id: r\n  colour: red\n"), 0o644))

	_, err := course.LoadYAML(path)
	assert.Error(t, err)
}

func TestCompileCUE_NoCourseValue(t *testing.T) {
	_, err := course.CompileCUE(`other: 1`)
	assert.ErrorIs(t, err, course.ErrNoCourse)

	_, err = course.CompileCUE(`course: name: string`)
	assert.Error(t, err, "non-concrete course")
}

func TestValidate_Valid(t *testing.T) {
	c, err := course.LoadYAML("testdata/branching.yaml")
	require.NoError(t, err)
	assert.Empty(t, course.Validate(c, rules.Default(0)))
}

func codes(errs []course.ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "missing name",
			src:  "root: {id: r}",
			want: []string{course.ErrCodeInvalidField},
		},
		{
			name: "bad node id",
			src:  "name: x\nroot: {id: 'has space'}",
			want: []string{course.ErrCodeInvalidField},
		},
		{
			name: "duplicate id",
			src:  "name: x\nroot: {id: r, children: [{id: a, tracking_id: '1'}, {id: a, tracking_id: '2'}]}",
			want: []string{course.ErrCodeDuplicateID},
		},
		{
			name: "duplicate tracking id",
			src:  "name: x\nroot: {id: r, children: [{id: a, tracking_id: '1'}, {id: b, tracking_id: '1'}]}",
			want: []string{course.ErrCodeDuplicateTracking},
		},
		{
			name: "unknown kind",
			src:  "name: x\nroot: {id: r, modifiers: [{kind: shuffle}]}",
			want: []string{course.ErrCodeUnknownKind},
		},
		{
			name: "duplicate kind",
			src:  "name: x\nroot: {id: r, modifiers: [{kind: tags}, {kind: tags}]}",
			want: []string{course.ErrCodeDuplicateKind},
		},
		{
			name: "enabled not a bool",
			src:  "name: x\nroot: {id: r, modifiers: [{kind: tags, config: {enabled: 'yes'}}]}",
			want: []string{course.ErrCodeInvalidModifierCfg},
		},
		{
			name: "negative order",
			src:  "name: x\nroot: {id: r, modifiers: [{kind: tags, order: -1}]}",
			want: []string{course.ErrCodeInvalidField},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := course.ParseYAML([]byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(course.Validate(c, rules.Default(0))))
		})
	}
}

func TestValidate_NilKindsSkipsKindCheck(t *testing.T) {
	c, err := course.ParseYAML([]byte("name: x\nroot: {id: r, modifiers: [{kind: shuffle}]}"))
	require.NoError(t, err)
	assert.Empty(t, course.Validate(c, nil))
}

func TestBuild(t *testing.T) {
	c, err := course.LoadYAML("testdata/branching.yaml")
	require.NoError(t, err)

	e, _ := testutil.NewManualEngine()
	reg := modifier.NewRegistry(e, modifier.WithLogger(testutil.DiscardLogger()))
	built, err := course.Build(c, reg, rules.Default(c.Seed))
	require.NoError(t, err)

	assert.Equal(t, 7, built.Tree.Len())
	require.Len(t, built.Sets, 2)
	for _, s := range built.Sets {
		assert.True(t, s.IsWired(), "%s wired once children were ready", s.Kind())
		assert.Len(t, s.OriginalModels(), 3)
	}
	assert.Equal(t, 2, built.Sets[1].Order())

	page2 := testutil.Node(t, built.Tree, "page2")
	assert.True(t, page2.IsInteractionComplete())
	assert.Equal(t, []string{"extra"}, testutil.Node(t, built.Tree, "d").Tags())
	assert.Equal(t, tree.TrackingID("d"), testutil.Node(t, built.Tree, "d").TrackingID())

	reg.Start(t.Context())
	reg.StorageReady(t.Context())
	testutil.Settle(t, e)

	// tags keeps a and b, then include narrows to b.
	assert.Equal(t, []tree.ID{"b"}, testutil.Available(testutil.Node(t, built.Tree, "page1")))
}

func TestBuild_UnknownKind(t *testing.T) {
	c, err := course.ParseYAML([]byte("name: x\nroot: {id: r, modifiers: [{kind: shuffle}]}"))
	require.NoError(t, err)

	e, _ := testutil.NewManualEngine()
	reg := modifier.NewRegistry(e)
	_, err = course.Build(c, reg, rules.Default(0))
	assert.Error(t, err)
}
