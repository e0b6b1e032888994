package course

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Validation error codes (E200-E299)
const (
	ErrCodeInvalidField       = "E201" // struct tag validation failed
	ErrCodeDuplicateID        = "E202" // node id used twice
	ErrCodeDuplicateTracking  = "E203" // tracking id used twice
	ErrCodeUnknownKind        = "E204" // modifier kind not in catalog
	ErrCodeDuplicateKind      = "E205" // same kind twice on one node
	ErrCodeInvalidModifierCfg = "E206" // modifier config malformed
)

// ValidationError is one problem found in a course.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var nodeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// courseValidate is shared; validator caches struct metadata.
var courseValidate *validator.Validate

func init() {
	courseValidate = validator.New()
	_ = courseValidate.RegisterValidation("nodeid", func(fl validator.FieldLevel) bool {
		return nodeIDPattern.MatchString(fl.Field().String())
	})
}

// KindChecker reports whether a modifier kind is known.
type KindChecker interface {
	Has(kind string) bool
}

// Validate checks c and returns every problem found. kinds may be nil to
// skip the known-kind check.
func Validate(c *Course, kinds KindChecker) []ValidationError {
	var errs []ValidationError

	if err := courseValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, ValidationError{
					Field:   fe.Namespace(),
					Message: fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
					Code:    ErrCodeInvalidField,
				})
			}
		} else {
			errs = append(errs, ValidationError{Field: "course", Message: err.Error(), Code: ErrCodeInvalidField})
		}
	}

	ids := make(map[string]string)
	tracking := make(map[string]string)
	c.Root.Walk(func(n *NodeSpec, path string) {
		if n.ID != "" {
			if prev, ok := ids[n.ID]; ok {
				errs = append(errs, ValidationError{
					Field:   path + ".id",
					Message: fmt.Sprintf("duplicate node id %q (first at %s)", n.ID, prev),
					Code:    ErrCodeDuplicateID,
				})
			} else {
				ids[n.ID] = path
			}
		}

		if t := n.Tracking(); t != "" {
			if prev, ok := tracking[t]; ok {
				errs = append(errs, ValidationError{
					Field:   path + ".tracking_id",
					Message: fmt.Sprintf("duplicate tracking id %q (first at %s)", t, prev),
					Code:    ErrCodeDuplicateTracking,
				})
			} else {
				tracking[t] = path
			}
		}

		seen := make(map[string]bool)
		for i, m := range n.Modifiers {
			field := path + ".modifiers[" + strconv.Itoa(i) + "]"
			if m.Kind == "" {
				continue
			}
			if seen[m.Kind] {
				errs = append(errs, ValidationError{
					Field:   field + ".kind",
					Message: fmt.Sprintf("kind %q appears twice on node %q", m.Kind, n.ID),
					Code:    ErrCodeDuplicateKind,
				})
			}
			seen[m.Kind] = true
			if kinds != nil && !kinds.Has(m.Kind) {
				errs = append(errs, ValidationError{
					Field:   field + ".kind",
					Message: fmt.Sprintf("unknown modifier kind %q", m.Kind),
					Code:    ErrCodeUnknownKind,
				})
			}
			if v, ok := m.Config["enabled"]; ok {
				if _, isBool := v.(bool); !isBool {
					errs = append(errs, ValidationError{
						Field:   field + ".config.enabled",
						Message: fmt.Sprintf("enabled must be a bool, got %T", v),
						Code:    ErrCodeInvalidModifierCfg,
					})
				}
			}
		}
	})

	return errs
}

func childPath(parent string, i int) string {
	return parent + ".children[" + strconv.Itoa(i) + "]"
}
