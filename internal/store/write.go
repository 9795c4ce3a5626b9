package store

import (
	"context"
	"fmt"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// ImportTrace loads a trace into the database, replacing whatever trace was
// imported before. source names the trace file for the metadata row;
// complete records whether the trace carried its End record.
//
// The whole import runs in one transaction: a crash mid-import leaves the
// previous contents intact.
func (s *Store) ImportTrace(ctx context.Context, source string, recs []tracefile.Record, complete bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// One trace per database.
	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("import trace: clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trace_meta`); err != nil {
		return fmt.Errorf("import trace: clear meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (seq, kind, id, address, length, correlation_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("import trace: prepare: %w", err)
	}
	defer stmt.Close()

	for seq, rec := range recs {
		_, err := stmt.ExecContext(ctx,
			seq,
			rec.Kind.String(),
			rec.ID,
			int64(rec.Address),
			int64(rec.Length),
			int64(rec.CallID),
		)
		if err != nil {
			return fmt.Errorf("import trace: record %d: %w", seq, err)
		}
	}

	completeInt := 0
	if complete {
		completeInt = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO trace_meta (id, source, records, complete)
		VALUES (1, ?, ?, ?)
	`, source, len(recs), completeInt)
	if err != nil {
		return fmt.Errorf("import trace: meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import trace: commit: %w", err)
	}
	return nil
}
