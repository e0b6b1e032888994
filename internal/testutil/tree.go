package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/modset/internal/tree"
)

// ChildSpec describes a leaf added by BuildTree.
type ChildSpec struct {
	ID         tree.ID
	TrackingID tree.TrackingID
	Tags       []string
}

// BuildTree creates root -> parent -> children, using the begin/end
// children protocol on parent. Returns the tree and the parent node.
func BuildTree(t *testing.T, parent tree.ID, children ...ChildSpec) (*tree.Tree, *tree.Node) {
	t.Helper()
	tr := tree.New()
	_, err := tr.AddNode("", tree.NodeSpec{ID: "root", TrackingID: "root"})
	require.NoError(t, err)
	p, err := tr.AddNode("root", tree.NodeSpec{ID: parent, TrackingID: tree.TrackingID(parent)})
	require.NoError(t, err)
	require.NoError(t, tr.BeginChildren(parent))
	for _, c := range children {
		_, err := tr.AddNode(parent, tree.NodeSpec{ID: c.ID, TrackingID: c.TrackingID, Tags: c.Tags})
		require.NoError(t, err)
	}
	require.NoError(t, tr.EndChildren(parent))
	return tr, p
}

// ABC is the three-child fixture: A, B, C with tracking ids 1, 2, 3.
func ABC(t *testing.T) (*tree.Tree, *tree.Node) {
	t.Helper()
	return BuildTree(t, "P",
		ChildSpec{ID: "A", TrackingID: "1", Tags: []string{"core"}},
		ChildSpec{ID: "B", TrackingID: "2", Tags: []string{"core", "extra"}},
		ChildSpec{ID: "C", TrackingID: "3"},
	)
}

// Node looks up id and fails the test if it is missing.
func Node(t *testing.T, tr *tree.Tree, id tree.ID) *tree.Node {
	t.Helper()
	n, ok := tr.Node(id)
	require.True(t, ok, "node %s", id)
	return n
}

// Available returns the ids of n's available children.
func Available(n *tree.Node) []tree.ID {
	var out []tree.ID
	for _, c := range n.AvailableChildren() {
		out = append(out, c.ID())
	}
	return out
}
