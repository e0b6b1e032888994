package modifier

import (
	"errors"
	"fmt"

	"github.com/roach88/modset/internal/tree"
)

// ErrSetupModelsNotImplemented is reported when a set has no rule behind
// SetupModels. It is logged, never fatal.
var ErrSetupModelsNotImplemented = errors.New("setupModels must be overridden")

// SetError describes a failure inside one set's operation.
type SetError struct {
	Kind string
	Node tree.ID
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *SetError) Error() string {
	return fmt.Sprintf("%s set on %s: %s: %v", e.Kind, e.Node, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SetError) Unwrap() error {
	return e.Err
}

func (s *Set) errorf(op string, err error) *SetError {
	return &SetError{Kind: s.kind, Node: s.node.ID(), Op: op, Err: err}
}
