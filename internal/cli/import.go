package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/430YNG/slicetrace/internal/store"
	"github.com/430YNG/slicetrace/internal/tracefile"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportResult holds the import command's summary output.
type ImportResult struct {
	Trace    string `json:"trace"`
	Database string `json:"database"`
	Records  int    `json:"records"`
	Complete bool   `json:"complete"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <trace-file>",
		Short: "Load a trace file into a SQLite database",
		Long: `Load a trace file into a SQLite database for ad-hoc queries.

One database holds one trace; importing into an existing database
replaces its previous contents. Truncated traces import fine and are
flagged as incomplete in the metadata.

Examples:
  slicetrace import run.trc --db run.db
  slicetrace import run.trc --db run.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, tracePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := context.Background()

	recs, ended, err := tracefile.ReadAll(tracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	formatter.VerboseLog("Read %d record(s), complete=%v", len(recs), ended)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.ImportTrace(ctx, tracePath, recs, ended); err != nil {
		return WrapExitError(ExitCommandError, "failed to import trace", err)
	}

	result := ImportResult{
		Trace:    tracePath,
		Database: opts.Database,
		Records:  len(recs),
		Complete: ended,
	}

	if opts.Format == "json" {
		return formatter.JSON(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Imported %s into %s\n", result.Trace, result.Database)
	fmt.Fprintf(w, "  Records:  %d\n", result.Records)
	fmt.Fprintf(w, "  Complete: %v\n", result.Complete)
	return nil
}
