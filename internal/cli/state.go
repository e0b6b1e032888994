package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modset/internal/store"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Namespace string
}

// StateRecord is one persisted selection, decoded.
type StateRecord struct {
	Namespace string   `json:"namespace"`
	Node      string   `json:"node"`
	IDs       []string `json:"ids"`
	Seq       int64    `json:"seq"`
	Error     string   `json:"error,omitempty"`
}

// StateResult lists the persisted selections of a database.
type StateResult struct {
	Namespaces []string      `json:"namespaces"`
	Records    []StateRecord `json:"records"`
}

// String renders the text form.
func (r StateResult) String() string {
	if len(r.Records) == 0 {
		return "No saved selections."
	}
	var b strings.Builder
	for _, rec := range r.Records {
		if rec.Error != "" {
			fmt.Fprintf(&b, "%-20s %-20s <undecodable: %s>\n", rec.Namespace, rec.Node, rec.Error)
			continue
		}
		fmt.Fprintf(&b, "%-20s %-20s %s (seq %d)\n", rec.Namespace, rec.Node, strings.Join(rec.IDs, ","), rec.Seq)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state <db>",
		Short: "Show persisted selections",
		Long: `List the selections stored in a state database written by eval --db.

Namespaces are modifier kinds; a "#reset" suffix marks the selection kept
by the last reset of a node.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "only show one namespace")

	return cmd
}

func runState(opts *StateOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	// Opening would create an empty database; a typo should fail instead.
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		if ferr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "open state database", err)
	}
	defer st.Close()

	namespaces, err := st.Namespaces(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "list namespaces", err)
	}
	records, err := st.Records(ctx, opts.Namespace)
	if err != nil {
		return WrapExitError(ExitCommandError, "list records", err)
	}
	formatter.VerboseLog("Found %d namespace(s), %d record(s)", len(namespaces), len(records))

	result := StateResult{Namespaces: namespaces, Records: []StateRecord{}}
	if result.Namespaces == nil {
		result.Namespaces = []string{}
	}
	for _, r := range records {
		rec := StateRecord{Namespace: r.Namespace, Node: r.NodeID, Seq: r.Seq, IDs: []string{}}
		ids, err := st.Deserialize(r.Token)
		if err != nil {
			rec.Error = err.Error()
		}
		for _, id := range ids {
			rec.IDs = append(rec.IDs, string(id))
		}
		result.Records = append(result.Records, rec)
	}

	return formatter.Success(result)
}
