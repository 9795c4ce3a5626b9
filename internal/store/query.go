package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// ErrNoTrace is returned by queries when no trace has been imported.
var ErrNoTrace = errors.New("no trace imported")

// Meta describes the imported trace.
type Meta struct {
	Source     string `json:"source"`
	Records    int64  `json:"records"`
	Complete   bool   `json:"complete"`
	ImportedAt string `json:"imported_at"`
}

// Event is one record row with its position in the trace.
type Event struct {
	Seq           int64  `json:"seq"`
	Kind          string `json:"kind"`
	ID            uint32 `json:"id"`
	Address       uint64 `json:"address"`
	Length        uint64 `json:"length"`
	CorrelationID uint32 `json:"correlation_id"`
}

// Meta returns the trace metadata row.
func (s *Store) Meta(ctx context.Context) (Meta, error) {
	var m Meta
	var complete int
	err := s.db.QueryRowContext(ctx, `
		SELECT source, records, complete, imported_at FROM trace_meta WHERE id = 1
	`).Scan(&m.Source, &m.Records, &complete, &m.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, ErrNoTrace
	}
	if err != nil {
		return Meta{}, fmt.Errorf("query meta: %w", err)
	}
	m.Complete = complete != 0
	return m, nil
}

// KindCounts returns the number of records per kind, keyed by kind name.
func (s *Store) KindCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM records GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("query kind counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind counts: %w", err)
	}
	return counts, nil
}

// EventsForID returns every record carrying the given identifier, in trace
// order. Useful for following one instruction or block through a run.
func (s *Store) EventsForID(ctx context.Context, id uint32) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, id, address, length, correlation_id
		FROM records WHERE id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query events for id %d: %w", id, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Correlated returns the block exits resolved to the given call record and
// the call itself, in trace order. Passing tracefile.NoCaller selects the
// top-level exits.
func (s *Store) Correlated(ctx context.Context, callID uint32) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, id, address, length, correlation_id
		FROM records
		WHERE (kind = ? AND correlation_id = ?) OR (kind = ? AND id = ?)
		ORDER BY seq
	`, tracefile.KindBlockExit.String(), int64(callID),
		tracefile.KindCall.String(), callID)
	if err != nil {
		return nil, fmt.Errorf("query correlated %d: %w", callID, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var addr, length, corr int64
		if err := rows.Scan(&e.Seq, &e.Kind, &e.ID, &addr, &length, &corr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Address = uint64(addr)
		e.Length = uint64(length)
		e.CorrelationID = uint32(corr)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
