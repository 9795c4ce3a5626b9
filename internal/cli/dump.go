package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/430YNG/slicetrace/internal/index"
	"github.com/430YNG/slicetrace/internal/tracefile"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	IDMap string
	Kind  string
}

// DumpRecord is one trace record prepared for display.
type DumpRecord struct {
	Seq           int    `json:"seq"`
	Kind          string `json:"kind"`
	ID            uint32 `json:"id"`
	Address       uint64 `json:"address"`
	Length        uint64 `json:"length"`
	CorrelationID uint32 `json:"correlation_id,omitempty"`
	Where         string `json:"where,omitempty"`
}

// DumpResult holds the complete dump output.
type DumpResult struct {
	Trace    string       `json:"trace"`
	Complete bool         `json:"complete"`
	Records  []DumpRecord `json:"records"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <trace-file>",
		Short: "Print the records of a trace file",
		Long: `Print every record of a trace file in order.

With --ids, block and instruction identifiers are resolved against an
id-map artifact and shown as function:label references.

Examples:
  slicetrace dump run.trc
  slicetrace dump run.trc --ids ids.json
  slicetrace dump run.trc --kind store --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.IDMap, "ids", "", "id-map artifact for resolving identifiers")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "show only records of this kind")

	return cmd
}

func runDump(opts *DumpOptions, tracePath string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Read %d record(s), complete=%v", len(recs), ended)

	var blocks *index.BlockIndex
	var instrs *index.InstrIndex
	if opts.IDMap != "" {
		artifact, err := index.LoadArtifact(opts.IDMap)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load id map", err)
		}
		blocks = artifact.BlockIndex()
		instrs = artifact.InstrIndex()
	}

	result := DumpResult{Trace: tracePath, Complete: ended}
	for seq, rec := range recs {
		if opts.Kind != "" && rec.Kind.String() != opts.Kind {
			continue
		}
		result.Records = append(result.Records, DumpRecord{
			Seq:           seq,
			Kind:          rec.Kind.String(),
			ID:            rec.ID,
			Address:       rec.Address,
			Length:        rec.Length,
			CorrelationID: rec.CallID,
			Where:         resolveWhere(rec, blocks, instrs),
		})
	}

	if opts.Format == "json" {
		return formatter.JSON(result)
	}
	outputDumpText(cmd.OutOrStdout(), result)
	return nil
}

// resolveWhere maps a record id back to its source reference, when an id map
// was supplied. Block records use the block id space, everything else the
// instruction space.
func resolveWhere(rec tracefile.Record, blocks *index.BlockIndex, instrs *index.InstrIndex) string {
	if blocks == nil || rec.ID == 0 {
		return ""
	}
	switch rec.Kind {
	case tracefile.KindBlockEnter, tracefile.KindBlockExit:
		if ref, ok := blocks.Block(rec.ID); ok {
			return fmt.Sprintf("%s:%s", ref.Function, ref.Label)
		}
	case tracefile.KindEnd:
		return ""
	default:
		if ref, ok := instrs.Instr(rec.ID); ok {
			return fmt.Sprintf("%s:%s#%d", ref.Function, ref.Label, ref.Index)
		}
	}
	return ""
}

func outputDumpText(w io.Writer, result DumpResult) {
	fmt.Fprintf(w, "Trace: %s\n", result.Trace)
	fmt.Fprintf(w, "Status: %s\n", traceStatus(result.Complete))
	fmt.Fprintln(w)

	for _, rec := range result.Records {
		fmt.Fprintf(w, "[%d] %s", rec.Seq, rec.Kind)
		if rec.ID != 0 {
			fmt.Fprintf(w, " id=%d", rec.ID)
		}
		if rec.Address != 0 {
			fmt.Fprintf(w, " addr=0x%x", rec.Address)
		}
		if rec.Length != 0 {
			fmt.Fprintf(w, " len=%d", rec.Length)
		}
		if rec.Kind == tracefile.KindBlockExit.String() && rec.CorrelationID != 0 {
			fmt.Fprintf(w, " caller=%s", callerLabel(rec.CorrelationID))
		}
		if rec.Where != "" {
			fmt.Fprintf(w, " (%s)", rec.Where)
		}
		fmt.Fprintln(w)
	}
}

// callerLabel renders a resolved correlation id. Zero never reaches here; a
// non-terminal or unresolved exit shows no caller.
func callerLabel(callID uint32) string {
	if callID == tracefile.NoCaller {
		return "top"
	}
	return fmt.Sprintf("%d", callID)
}

func traceStatus(complete bool) string {
	if complete {
		return "complete"
	}
	return "truncated (no end record)"
}
