package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/modset/internal/course"
	"github.com/roach88/modset/internal/engine"
	"github.com/roach88/modset/internal/metrics"
	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/rules"
	"github.com/roach88/modset/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	DB      string        // state database path
	Seed    uint64        // overrides the course seed when set
	Window  time.Duration // debounce window
	Metrics bool          // include metric samples in the output
}

// NodeResult is the outcome for one node carrying modifier sets.
type NodeResult struct {
	Node      string   `json:"node"`
	Kinds     []string `json:"kinds"`
	Available []string `json:"available"`
	Hidden    []string `json:"hidden"`
}

// EvalResult is the outcome of evaluating a course.
type EvalResult struct {
	Course  string           `json:"course"`
	Passes  int              `json:"passes"`
	Nodes   []NodeResult     `json:"nodes"`
	Metrics []metrics.Sample `json:"metrics,omitempty"`
}

// String renders the text form.
func (r EvalResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course %s (%d passes)\n", r.Course, r.Passes)
	for _, n := range r.Nodes {
		fmt.Fprintf(&b, "  %s [%s]\n", n.Node, strings.Join(n.Kinds, ", "))
		fmt.Fprintf(&b, "    available: %s\n", strings.Join(n.Available, " "))
		fmt.Fprintf(&b, "    hidden:    %s\n", strings.Join(n.Hidden, " "))
	}
	for _, s := range r.Metrics {
		fmt.Fprintf(&b, "  %s%s = %g\n", s.Name, formatLabels(s.Labels), s.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+"="+v)
	}
	slices.Sort(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <course>",
		Short: "Run the availability cascade for a course",
		Long: `Load a course, set up every modifier set and run the cascade until it
settles, then print each node's available and hidden children.

With --db, selections are persisted to a SQLite database and restored on
the next run, so a randomised selection stays stable across evaluations.

Examples:
  modset eval course.yaml
  modset eval ./course-cue --db state.db
  modset eval course.yaml --seed 7 --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", ":memory:", "state database path")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (defaults to the course seed)")
	cmd.Flags().DurationVar(&opts.Window, "window", modifier.DefaultWindow, "debounce window")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "include cascade metrics")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()
	ctx := cmd.Context()

	c, err := loadCourse(formatter, path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		c.Seed = opts.Seed
	}

	catalog := rules.Default(c.Seed)
	if errs := course.Validate(c, catalog); len(errs) > 0 {
		if err := formatter.Error(ErrCodeValidation, fmt.Sprintf("%d validation error(s)", len(errs)), errs); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("course %q is invalid", c.Name))
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "open state database", err)
	}
	defer st.Close()
	formatter.VerboseLog("Using state database %s", opts.DB)

	gatherer := prometheus.NewRegistry()
	m, err := metrics.New(gatherer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// A manual clock lets the cascade run to quiescence without sleeping
	// through debounce windows.
	eng := engine.New(
		engine.WithTimeSource(engine.NewManualTime(time.Now())),
		engine.WithLogger(logger),
	)
	reg := modifier.NewRegistry(eng,
		modifier.WithStore(st),
		modifier.WithLogger(logger),
		modifier.WithMetrics(m),
		modifier.WithWindow(opts.Window),
	)
	defer reg.Close()

	built, err := course.Build(c, reg, catalog)
	if err != nil {
		if ferr := formatter.Error(ErrCodeBuild, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "build course", err)
	}
	formatter.VerboseLog("Built %d nodes with %d modifier sets", built.Tree.Len(), len(built.Sets))

	reg.Start(ctx)
	reg.StorageReady(ctx)
	if err := eng.Settle(ctx, 0); err != nil {
		if ferr := formatter.Error(ErrCodeEval, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "cascade did not settle", err)
	}

	result := EvalResult{Course: c.Name, Passes: reg.Passes(), Nodes: []NodeResult{}}
	for _, n := range reg.Nodes() {
		nr := NodeResult{Node: string(n.ID()), Kinds: []string{}, Available: []string{}, Hidden: []string{}}
		for _, s := range reg.ByNodeID(n.ID()) {
			nr.Kinds = append(nr.Kinds, s.Kind())
		}
		for _, child := range n.Children() {
			if child.IsAvailable() {
				nr.Available = append(nr.Available, string(child.ID()))
			} else {
				nr.Hidden = append(nr.Hidden, string(child.ID()))
			}
		}
		result.Nodes = append(result.Nodes, nr)
	}

	if opts.Metrics {
		if result.Metrics, err = metrics.Snapshot(gatherer); err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
	}

	return formatter.Success(result)
}
