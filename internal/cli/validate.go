package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modset/internal/course"
	"github.com/roach88/modset/internal/rules"
)

// ErrCodeValidation reports a course that failed validation. The
// individual problems carry their own E2xx codes.
const ErrCodeValidation = "E200"

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                     `json:"valid"`
	Course    string                   `json:"course,omitempty"`
	Nodes     int                      `json:"nodes"`
	Modifiers int                      `json:"modifiers"`
	Errors    []course.ValidationError `json:"errors,omitempty"`
}

// String renders the text form.
func (r ValidationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ course %q is valid (%d nodes, %d modifier sets)", r.Course, r.Nodes, r.Modifiers)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ course %q has %d problem(s)", r.Course, len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s", e.Error())
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <course>",
		Short: "Validate a course definition",
		Long: `Validate a course file (YAML) or CUE package directory.

Checks required fields, node id syntax, unique node and tracking ids,
known modifier kinds and modifier config shape.

Exit codes:
  0 - Course is valid
  1 - Course has validation problems
  2 - Course could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	c, err := loadCourse(formatter, path)
	if err != nil {
		return err
	}

	result := ValidationResult{Course: c.Name}
	c.Root.Walk(func(n *course.NodeSpec, _ string) {
		result.Nodes++
		result.Modifiers += len(n.Modifiers)
	})

	result.Errors = course.Validate(c, rules.Default(c.Seed))
	result.Valid = len(result.Errors) == 0
	if result.Valid {
		return formatter.Success(result)
	}

	if opts.Format == "json" {
		if err := formatter.Error(ErrCodeValidation, fmt.Sprintf("%d validation error(s)", len(result.Errors)), result.Errors); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, result)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("course %q is invalid", c.Name))
}

// loadCourse loads path, reporting failures through the formatter.
func loadCourse(formatter *OutputFormatter, path string) (*course.Course, error) {
	formatter.VerboseLog("Loading course from %s", path)
	c, err := course.Load(path)
	if err == nil {
		return c, nil
	}

	code := ErrCodeLoadFailed
	if errors.Is(err, fs.ErrNotExist) {
		code = ErrCodeNotFound
	}
	if ferr := formatter.Error(code, err.Error(), nil); ferr != nil {
		return nil, ferr
	}
	return nil, WrapExitError(ExitCommandError, "load course", err)
}
