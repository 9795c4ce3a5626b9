package tracefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrTruncated reports a trace that stops before its End record - the
// recording process died at that exact point. The records read up to the
// truncation are still valid.
var ErrTruncated = errors.New("trace truncated before end record")

// Reader iterates a trace file sequentially. Iteration stops after the End
// record, at a zero-filled tail (an unflushed window remnant), or at EOF.
type Reader struct {
	f   *bufio.Reader
	c   io.Closer
	err error
}

// OpenReader opens the trace file at path for sequential reading.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Reader{f: bufio.NewReaderSize(f, 1<<20), c: f}, nil
}

// NewReader reads a trace from an arbitrary stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{f: bufio.NewReader(r)}
}

// Next returns the next record. After the End record, or at a truncation
// point, Next returns ErrTruncated or io.EOF respectively; a partial record
// at EOF returns ErrTruncated as well.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	var buf [RecordSize]byte
	n, err := io.ReadFull(r.f, buf[:])
	if err == io.EOF {
		r.err = ErrTruncated
		return Record{}, r.err
	}
	if err != nil {
		r.err = fmt.Errorf("%w: partial record of %d bytes", ErrTruncated, n)
		return Record{}, r.err
	}
	rec := decode(&buf)
	if rec.Kind == KindInvalid {
		// Zero padding past the last flushed record.
		r.err = ErrTruncated
		return Record{}, r.err
	}
	if rec.Kind == KindEnd {
		r.err = io.EOF
	}
	return rec, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// ReadAll reads every record of the trace at path, including the terminal
// End record. ended reports whether the End record was present; when false
// the trace is truncated but the returned prefix is still usable.
func ReadAll(path string) (recs []Record, ended bool, err error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, false, err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, ErrTruncated) {
				return recs, false, nil
			}
			return recs, false, err
		}
		recs = append(recs, rec)
		if rec.Kind == KindEnd {
			return recs, true, nil
		}
	}
}
