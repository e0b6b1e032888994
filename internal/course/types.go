package course

// Course is a content tree with modifier configuration.
type Course struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	// Seed feeds the randomise rule. Zero is a valid seed.
	Seed uint64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	Root NodeSpec `yaml:"root" json:"root"`
}

// NodeSpec describes one node and its subtree.
type NodeSpec struct {
	ID string `yaml:"id" json:"id" validate:"required,nodeid"`
	// TrackingID defaults to ID.
	TrackingID  string         `yaml:"tracking_id,omitempty" json:"tracking_id,omitempty" validate:"omitempty,nodeid"`
	Tags        []string       `yaml:"tags,omitempty" json:"tags,omitempty" validate:"dive,required"`
	Unavailable bool           `yaml:"unavailable,omitempty" json:"unavailable,omitempty"`
	Complete    bool           `yaml:"complete,omitempty" json:"complete,omitempty"`
	Modifiers   []ModifierSpec `yaml:"modifiers,omitempty" json:"modifiers,omitempty" validate:"dive"`
	Children    []NodeSpec     `yaml:"children,omitempty" json:"children,omitempty" validate:"dive"`
}

// ModifierSpec attaches one modifier set to a node.
type ModifierSpec struct {
	Kind   string         `yaml:"kind" json:"kind" validate:"required"`
	Order  int            `yaml:"order,omitempty" json:"order,omitempty" validate:"gte=0"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Tracking returns the node's tracking id, defaulting to its id.
func (n NodeSpec) Tracking() string {
	if n.TrackingID != "" {
		return n.TrackingID
	}
	return n.ID
}

// Walk visits n and its descendants depth-first. path is the dotted field
// path of each node, for error messages.
func (n *NodeSpec) Walk(fn func(node *NodeSpec, path string)) {
	n.walk("root", fn)
}

func (n *NodeSpec) walk(path string, fn func(node *NodeSpec, path string)) {
	fn(n, path)
	for i := range n.Children {
		n.Children[i].walk(childPath(path, i), fn)
	}
}
