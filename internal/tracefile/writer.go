//go:build unix

package tracefile

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultWindowSize is the size of the mapped window: 256 MiB.
const DefaultWindowSize = 256 << 20

// Writer appends fixed-size records to a trace file through a memory-mapped
// window. When the window fills, rollover synchronously flushes it and remaps
// the next region of the file - the only point where an append incurs a
// latency spike.
//
// Writer is NOT safe for concurrent use. The recorder guarantees a single
// appending thread.
type Writer struct {
	f          *os.File
	mapping    []byte // the page-aligned mapping
	window     []byte // the record region within mapping
	windowSize int
	perWindow  int   // records per window
	cursor     int   // records written into the current window
	fileOffset int64 // file offset of the current window
	count      uint64
	logger     *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithWindowSize overrides the mapped window size. It must be a positive
// multiple of RecordSize; Create fails otherwise.
func WithWindowSize(n int) Option {
	return func(w *Writer) { w.windowSize = n }
}

// WithLogger overrides the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// Create creates (or truncates) the trace file at path and maps the first
// window. Truncation matters: a shorter trace must not leave records from a
// previous run past its End record.
func Create(path string, opts ...Option) (*Writer, error) {
	w := &Writer{
		windowSize: DefaultWindowSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	// An entry that does not evenly divide the window would be split across
	// a rollover boundary and corrupt every record after it.
	if w.windowSize <= 0 || w.windowSize%RecordSize != 0 {
		return nil, fmt.Errorf("window size %d is not a positive multiple of record size %d",
			w.windowSize, RecordSize)
	}
	w.perWindow = w.windowSize / RecordSize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	w.f = f

	if err := w.mapWindow(); err != nil {
		f.Close()
		return nil, err
	}

	w.logger.Info("opened trace file", "path", path, "window_bytes", w.windowSize)
	return w, nil
}

// mapWindow pre-extends the file to cover the window at the current offset
// and maps it. mmap requires a page-aligned file offset and the window offset
// advances in record strides, so the mapping starts at the last page boundary
// at or before the window and the record region is sliced out of it.
func (w *Writer) mapWindow() error {
	if err := w.f.Truncate(w.fileOffset + int64(w.windowSize)); err != nil {
		return fmt.Errorf("extend trace file: %w", err)
	}
	page := int64(unix.Getpagesize())
	aligned := w.fileOffset &^ (page - 1)
	lead := int(w.fileOffset - aligned)
	buf, err := unix.Mmap(int(w.f.Fd()), aligned, lead+w.windowSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("map trace window at offset %d: %w", w.fileOffset, err)
	}
	w.mapping = buf
	w.window = buf[lead:]
	w.cursor = 0
	return nil
}

// Append writes one record into the current window, rolling over first if
// the window is full. Records are never split across a rollover boundary.
func (w *Writer) Append(rec Record) error {
	if w.cursor == w.perWindow {
		if err := w.rollover(); err != nil {
			return err
		}
	}
	encode(w.window[w.cursor*RecordSize:(w.cursor+1)*RecordSize], rec)
	w.cursor++
	w.count++
	return nil
}

// rollover flushes the full window to durable storage, advances the file
// offset, and maps the next window.
func (w *Writer) rollover() error {
	if err := unix.Msync(w.mapping, unix.MS_SYNC); err != nil {
		return fmt.Errorf("sync trace window: %w", err)
	}
	if err := unix.Munmap(w.mapping); err != nil {
		return fmt.Errorf("unmap trace window: %w", err)
	}
	w.mapping, w.window = nil, nil
	w.fileOffset += int64(w.windowSize)
	return w.mapWindow()
}

// Count reports the running total of records appended. Diagnostics only;
// the value is not persisted - the log is self-delimiting via End.
func (w *Writer) Count() uint64 {
	return w.count
}

// Close flushes the partial window, trims the pre-extended tail so the file
// length is exactly the bytes written, and releases the mapping. The Writer
// must not be used afterwards.
func (w *Writer) Close() error {
	if w.mapping != nil {
		if err := unix.Msync(w.mapping, unix.MS_SYNC); err != nil {
			return fmt.Errorf("sync trace window: %w", err)
		}
		if err := unix.Munmap(w.mapping); err != nil {
			return fmt.Errorf("unmap trace window: %w", err)
		}
		w.mapping, w.window = nil, nil
	}
	if err := w.f.Truncate(w.fileOffset + int64(w.cursor*RecordSize)); err != nil {
		return fmt.Errorf("trim trace file: %w", err)
	}
	return w.f.Close()
}
