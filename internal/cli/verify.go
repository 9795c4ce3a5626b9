package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Strict bool
}

// VerifyResult holds the verify command's findings.
type VerifyResult struct {
	Trace           string   `json:"trace"`
	Records         int      `json:"records"`
	Complete        bool     `json:"complete"`
	Calls           int      `json:"calls"`
	Returns         int      `json:"returns"`
	TopLevelExits   int      `json:"top_level_exits"`
	UnresolvedExits int      `json:"unresolved_exits"`
	Problems        []string `json:"problems,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <trace-file>",
		Short: "Check a trace file for structural problems",
		Long: `Check a trace file for structural problems.

Verifies that the trace carries its end record, that records stop after
it, and that call records pair up with return records. With --strict,
unresolved terminal block exits (correlation id 0) are also treated as
failures; they are reported either way.

Exits 0 when the trace is sound, 1 when problems were found.

Examples:
  slicetrace verify run.trc
  slicetrace verify run.trc --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat unresolved block exits as failures")

	return cmd
}

func runVerify(opts *VerifyOptions, tracePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	recs, ended, err := tracefile.ReadAll(tracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := verifyRecords(tracePath, recs, ended, opts.Strict)

	if opts.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
	} else {
		outputVerifyText(cmd.OutOrStdout(), result)
	}

	if len(result.Problems) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("trace verification failed: %d problem(s)", len(result.Problems)))
	}
	return nil
}

func verifyRecords(tracePath string, recs []tracefile.Record, ended, strict bool) VerifyResult {
	result := VerifyResult{
		Trace:    tracePath,
		Records:  len(recs),
		Complete: ended,
	}

	if !ended {
		result.Problems = append(result.Problems, "no end record: the process died before the shutdown path ran")
	}

	// Calls correlate to returns by id; each live call is closed at most once.
	openCalls := make(map[uint32]int)
	for seq, rec := range recs {
		switch rec.Kind {
		case tracefile.KindCall:
			result.Calls++
			openCalls[rec.ID]++
		case tracefile.KindReturn:
			result.Returns++
			if openCalls[rec.ID] == 0 {
				result.Problems = append(result.Problems,
					fmt.Sprintf("record %d: return for id %d without an open call", seq, rec.ID))
				continue
			}
			openCalls[rec.ID]--
		case tracefile.KindBlockExit:
			switch rec.CallID {
			case tracefile.NoCaller:
				result.TopLevelExits++
			case 0:
				// Either a non-terminal exit or a terminal exit that failed
				// to correlate; the trace does not distinguish them.
			default:
				if openCalls[rec.CallID] == 0 {
					result.Problems = append(result.Problems,
						fmt.Sprintf("record %d: block exit correlated to id %d with no open call", seq, rec.CallID))
				}
			}
		case tracefile.KindEnd:
			if seq != len(recs)-1 {
				result.Problems = append(result.Problems,
					fmt.Sprintf("record %d: end record followed by %d more record(s)", seq, len(recs)-1-seq))
			}
		}
	}

	for _, rec := range recs {
		if rec.Kind == tracefile.KindBlockExit && rec.CallID == 0 {
			result.UnresolvedExits++
		}
	}
	// Correlation id 0 covers both non-terminal exits and terminal exits that
	// failed to correlate; only strict mode treats the absence of a top-level
	// exit as evidence of the latter.
	if strict && ended && result.TopLevelExits == 0 && result.Records > 1 {
		result.Problems = append(result.Problems, "no top-level block exit in a complete trace")
	}

	return result
}

func outputVerifyText(w io.Writer, result VerifyResult) {
	fmt.Fprintf(w, "Trace: %s\n", result.Trace)
	fmt.Fprintf(w, "  Records:         %d\n", result.Records)
	fmt.Fprintf(w, "  Complete:        %v\n", result.Complete)
	fmt.Fprintf(w, "  Calls/Returns:   %d/%d\n", result.Calls, result.Returns)
	fmt.Fprintf(w, "  Top-level exits: %d\n", result.TopLevelExits)

	if len(result.Problems) == 0 {
		fmt.Fprintln(w, "OK")
		return
	}
	fmt.Fprintln(w)
	for _, p := range result.Problems {
		fmt.Fprintf(w, "PROBLEM: %s\n", p)
	}
}
