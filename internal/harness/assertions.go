package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/modset/internal/store"
	"github.com/roach88/modset/internal/tree"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Pass boundaries are printed for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nPasses:\n")
		for _, event := range e.Trace {
			if event.Type == "pass_begin" {
				fmt.Fprintf(&buf, "  [%d] %s %s (%s)\n", event.Seq, event.Pass, event.Node, event.Trigger)
			}
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions read besides the trace.
type AssertionContext struct {
	Store *store.Store
	Tree  *tree.Tree
	Ctx   context.Context
}

// assertAvailable compares a node's available children with Expect.
func assertAvailable(t *tree.Tree, result *Result, a Assertion) error {
	n, ok := t.Node(tree.ID(a.Node))
	if !ok {
		return fmt.Errorf("available: unknown node %q", a.Node)
	}
	actual := []string{}
	for _, c := range n.AvailableChildren() {
		actual = append(actual, string(c.ID()))
	}
	expected := a.Expect
	if expected == nil {
		expected = []string{}
	}
	if !slices.Equal(actual, expected) {
		return &AssertionError{
			Type:     AssertAvailable,
			Expected: fmt.Sprintf("%s children %v", a.Node, expected),
			Actual:   fmt.Sprintf("%v", actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSaveState reads the persisted selection for a node.
func assertSaveState(ctx context.Context, st *store.Store, a Assertion) error {
	record, err := st.Get(ctx, a.Namespace)
	if err != nil {
		return fmt.Errorf("save_state: read %s: %w", a.Namespace, err)
	}
	token, ok := record[a.Node]

	if a.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertSaveState,
				Expected: fmt.Sprintf("no entry for %s in %s", a.Node, a.Namespace),
				Actual:   token,
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertSaveState,
			Expected: fmt.Sprintf("%s in %s = %v", a.Node, a.Namespace, a.Expect),
			Actual:   "no entry",
		}
	}

	ids, err := st.Deserialize(token)
	if err != nil {
		return fmt.Errorf("save_state: decode %q: %w", token, err)
	}
	actual := make([]string, len(ids))
	for i, id := range ids {
		actual[i] = string(id)
	}
	if !slices.Equal(actual, a.Expect) {
		return &AssertionError{
			Type:     AssertSaveState,
			Expected: fmt.Sprintf("%s in %s = %v", a.Node, a.Namespace, a.Expect),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

// assertSuspendBalanced checks every Begin was matched by an End.
func assertSuspendBalanced(result *Result) error {
	s := result.Suspend
	if s.Begins != s.Ends {
		return &AssertionError{
			Type:     AssertSuspendBalanced,
			Expected: "equal begins and ends",
			Actual:   fmt.Sprintf("%d begins, %d ends", s.Begins, s.Ends),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertPassCount counts pass_begin events matching node and trigger.
func assertPassCount(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.Trace {
		if e.Type != "pass_begin" {
			continue
		}
		if a.Node != "" && e.Node != a.Node {
			continue
		}
		if a.Trigger != "" && e.Trigger != a.Trigger {
			continue
		}
		count++
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertPassCount,
			Expected: fmt.Sprintf("%d passes%s", a.Count, filterDesc(a.Node, a.Trigger, "")),
			Actual:   fmt.Sprintf("%d passes", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceCount counts events of one type.
func assertTraceCount(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.Trace {
		if e.Type != a.Event {
			continue
		}
		if a.Node != "" && e.Node != a.Node {
			continue
		}
		if a.Kind != "" && e.Kind != a.Kind {
			continue
		}
		count++
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events%s", a.Count, a.Event, filterDesc(a.Node, "", a.Kind)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func filterDesc(node, trigger, kind string) string {
	var parts []string
	if node != "" {
		parts = append(parts, "node="+node)
	}
	if trigger != "" {
		parts = append(parts, "trigger="+trigger)
	}
	if kind != "" {
		parts = append(parts, "kind="+kind)
	}
	if len(parts) == 0 {
		return ""
	}
	return " where " + strings.Join(parts, " AND ")
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertAvailable:
			if actx == nil || actx.Tree == nil {
				err = fmt.Errorf("assertion[%d]: available requires the tree", i)
			} else {
				err = assertAvailable(actx.Tree, result, assertion)
			}
		case AssertSaveState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: save_state requires database context", i)
			} else {
				err = assertSaveState(actx.Ctx, actx.Store, assertion)
			}
		case AssertSuspendBalanced:
			err = assertSuspendBalanced(result)
		case AssertPassCount:
			err = assertPassCount(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
