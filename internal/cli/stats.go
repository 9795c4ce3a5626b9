package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/430YNG/slicetrace/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
	ID       uint32
	CallID   uint32
}

// StatsResult holds the stats command's output.
type StatsResult struct {
	Source     string           `json:"source"`
	Records    int64            `json:"records"`
	Complete   bool             `json:"complete"`
	ImportedAt string           `json:"imported_at"`
	KindCounts map[string]int64 `json:"kind_counts"`
	Events     []store.Event    `json:"events,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize an imported trace",
		Long: `Summarize a trace previously imported into a SQLite database.

Shows the trace metadata and per-kind record counts. With --id, also
lists every event carrying that identifier; with --call, the events
correlated to that call record.

Examples:
  slicetrace stats --db run.db
  slicetrace stats --db run.db --id 42
  slicetrace stats --db run.db --call 7 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Uint32Var(&opts.ID, "id", 0, "list events carrying this identifier")
	cmd.Flags().Uint32Var(&opts.CallID, "call", 0, "list events correlated to this call")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	meta, err := st.Meta(ctx)
	if errors.Is(err, store.ErrNoTrace) {
		return WrapExitError(ExitCommandError, "database holds no imported trace", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace metadata", err)
	}

	counts, err := st.KindCounts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count records", err)
	}

	result := StatsResult{
		Source:     meta.Source,
		Records:    meta.Records,
		Complete:   meta.Complete,
		ImportedAt: meta.ImportedAt,
		KindCounts: counts,
	}

	if opts.ID != 0 {
		result.Events, err = st.EventsForID(ctx, opts.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query events", err)
		}
	} else if opts.CallID != 0 {
		result.Events, err = st.Correlated(ctx, opts.CallID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query correlated events", err)
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(result)
	}
	outputStatsText(cmd, result)
	return nil
}

func outputStatsText(cmd *cobra.Command, result StatsResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace: %s\n", result.Source)
	fmt.Fprintf(w, "  Records:  %d\n", result.Records)
	fmt.Fprintf(w, "  Complete: %v\n", result.Complete)
	fmt.Fprintf(w, "  Imported: %s\n", result.ImportedAt)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Kinds:")
	kinds := make([]string, 0, len(result.KindCounts))
	for k := range result.KindCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-12s %d\n", k, result.KindCounts[k])
	}

	if len(result.Events) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Events:")
		for _, e := range result.Events {
			fmt.Fprintf(w, "  [%d] %s id=%d addr=0x%x len=%d\n",
				e.Seq, e.Kind, e.ID, e.Address, e.Length)
		}
	}
}
