package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// RunWithGolden executes a scenario, checks its inline expectations, and
// compares the rendered trace against testdata/golden/{Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	recs := Run(t, s)
	Assert(t, s, recs)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, renderTrace(recs))
}

// renderTrace produces the stable one-line-per-record form used by golden
// files. Addresses come from scenario steps, not live pointers, so the output
// is deterministic.
func renderTrace(recs []tracefile.Record) []byte {
	var buf bytes.Buffer
	for _, rec := range recs {
		fmt.Fprintf(&buf, "%s id=%d addr=0x%x len=%d", rec.Kind, rec.ID, rec.Address, rec.Length)
		if rec.Kind == tracefile.KindBlockExit {
			switch rec.CallID {
			case tracefile.NoCaller:
				buf.WriteString(" caller=top")
			case 0:
				buf.WriteString(" caller=unresolved")
			default:
				fmt.Fprintf(&buf, " caller=%d", rec.CallID)
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
