package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// Stack capacities. Overflowing the block stack means recursion deeper than
// anything correlation could survive, so it is fatal; the call stack degrades
// instead (see Call).
const (
	MaxBlockStack = 4096
	MaxCallStack  = 4096
)

// osExit is swapped out by tests that exercise fatal paths.
var osExit = os.Exit

type blockFrame struct {
	id uint32
	fn uintptr
}

type callFrame struct {
	callID uint32
	callee uintptr
}

// Runtime is the per-process recorder state: the trace writer, the live
// block and call stacks, and the handler-thread registration.
//
// Runtime is NOT safe for concurrent mutation. At most one thread may be
// actively recording; concurrent instrumented execution from several threads
// is a known limitation of the design, not a data race to be patched here.
type Runtime struct {
	w      *tracefile.Writer
	logger *slog.Logger

	bb []blockFrame
	fn []callFrame

	// Handler-thread registration. Guarded by its own mutex because
	// registration may arrive from a freshly spawned thread.
	regMu    sync.Mutex
	regTID   int
	regCount int

	closed atomic.Bool
}

// Option configures a Runtime at Open time.
type Option func(*config)

type config struct {
	windowSize int
	logger     *slog.Logger
	signals    bool
}

// WithWindowSize overrides the trace writer's mapped window size.
func WithWindowSize(n int) Option {
	return func(c *config) { c.windowSize = n }
}

// WithLogger overrides the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSignalHandling installs handlers for the common fatal signals so a
// crash still flushes the trace. Intended for the process-wide recorder;
// tests leave it off.
func WithSignalHandling() Option {
	return func(c *config) { c.signals = true }
}

// Open creates the trace file at path and returns a ready Runtime. The
// returned errors are the fatal taxonomy: the caller either aborts (Init
// does) or is a test.
func Open(path string, opts ...Option) (*Runtime, error) {
	cfg := config{
		windowSize: tracefile.DefaultWindowSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w, err := tracefile.Create(path,
		tracefile.WithWindowSize(cfg.windowSize),
		tracefile.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open recorder: %w", err)
	}

	r := &Runtime{
		w:      w,
		logger: cfg.logger,
		bb:     make([]blockFrame, 0, MaxBlockStack),
		fn:     make([]callFrame, 0, MaxCallStack),
	}
	if cfg.signals {
		r.installSignalHandlers()
	}
	return r, nil
}

// filtered decides whether events from the calling thread are skipped.
//
// Extension point: a future policy may compare the caller against the
// registered handler thread and drop everything else. The current policy
// records all threads, so this always reports false.
func (r *Runtime) filtered() bool {
	return false
}

// RegisterHandlerThread designates the calling thread as the recording
// thread for a future filtering policy. Called by instrumented server
// handler entry points; name is the handler function's name.
func (r *Runtime) RegisterHandlerThread(name string) {
	r.regMu.Lock()
	defer r.regMu.Unlock()

	r.regTID = unix.Gettid()
	r.regCount++
	r.logger.Info("registered handler thread", "name", name, "tid", r.regTID)
	if r.regCount > 2 {
		r.logger.Warn("more than one handler thread registered; trace correlation may suffer",
			"count", r.regCount)
	}
}

// append writes one record. Events arriving after Close are dropped: the
// recording thread may still be emitting while the signal handler runs the
// termination sequence, and the writer's mapping is gone by then. A writer
// failure means the trace is already lost, which is fatal.
func (r *Runtime) append(rec tracefile.Record) {
	if r.closed.Load() {
		r.logger.Warn("event after trace close dropped", "kind", rec.Kind.String(), "id", rec.ID)
		return
	}
	r.emit(rec)
}

// emit writes one record without the closed check. Only the termination
// sequence itself, which runs after the one-shot flips, uses it directly.
func (r *Runtime) emit(rec tracefile.Record) {
	if err := r.w.Append(rec); err != nil {
		r.fatal("append trace record", err)
	}
}

// fatal logs and aborts the process. Continuing after a fatal condition
// would silently corrupt correlation.
func (r *Runtime) fatal(msg string, err error) {
	if err != nil {
		r.logger.Error(msg, "err", err)
	} else {
		r.logger.Error(msg)
	}
	osExit(1)
}

// BlockEnter pushes the block on the live stack. It persists no record; the
// stack exists so termination can synthesize closes for blocks still
// executing when the program dies.
func (r *Runtime) BlockEnter(id uint32, fn uintptr) {
	if r.filtered() {
		return
	}
	if len(r.bb) == MaxBlockStack {
		r.fatal("basic block stack overflow", nil)
		return
	}
	r.bb = append(r.bb, blockFrame{id: id, fn: fn})
}

// BlockExit records that the block finished. A terminal exit (the block ends
// in a function return) also resolves which call this invocation returns to:
// the call stack's top frame if its callee matches the current function, the
// NoCaller sentinel for a top-level return, or 0 when control re-entered from
// foreign code and nothing matches.
func (r *Runtime) BlockExit(id uint32, fn uintptr, terminal bool) {
	if r.filtered() {
		return
	}

	var callID uint32
	if terminal {
		if n := len(r.fn); n > 0 {
			top := r.fn[n-1]
			if top.callee != fn {
				r.logger.Warn("call frame does not match returning function; possibly entered from external code",
					"block", id, "frame_callee", fmt.Sprintf("%#x", top.callee))
			} else {
				r.fn = r.fn[:n-1]
				callID = top.callID
			}
		} else {
			callID = tracefile.NoCaller
		}
	}

	r.append(tracefile.Record{
		Kind:    tracefile.KindBlockExit,
		ID:      id,
		Address: uint64(fn),
		CallID:  callID,
	})

	if n := len(r.bb); n > 0 {
		r.bb = r.bb[:n-1]
	} else {
		r.logger.Warn("block exit with empty block stack", "block", id)
	}
}

// Load records a memory read of n bytes at addr.
func (r *Runtime) Load(id uint32, addr uintptr, n uintptr) {
	if r.filtered() {
		return
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindLoad,
		ID:      id,
		Address: uint64(addr),
		Length:  uint64(n),
	})
}

// Store records a memory write of n bytes at addr.
func (r *Runtime) Store(id uint32, addr uintptr, n uintptr) {
	if r.filtered() {
		return
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindStore,
		ID:      id,
		Address: uint64(addr),
		Length:  uint64(n),
	})
}

// Select records which input a select instruction chose. The predicate rides
// in the address word.
func (r *Runtime) Select(id uint32, flag bool) {
	if r.filtered() {
		return
	}
	var payload uint64
	if flag {
		payload = 1
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindSelect,
		ID:      id,
		Address: payload,
	})
}

// Call records a call instruction and pushes its frame so the callee's
// terminal block exit can be correlated back to it. On a full call stack the
// record is still emitted but the frame is dropped: one lost correlation
// beats a lost trace.
func (r *Runtime) Call(id uint32, callee uintptr) {
	if r.filtered() {
		return
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindCall,
		ID:      id,
		Address: uint64(callee),
	})
	if len(r.fn) == MaxCallStack {
		r.logger.Warn("function call stack overflow; dropping frame", "call", id)
		return
	}
	r.fn = append(r.fn, callFrame{callID: id, callee: callee})
}

// ExternalCall records a call whose callee is entered by a foreign path
// (thread creation and the like). No frame is pushed: the callee must not
// participate in normal return correlation.
func (r *Runtime) ExternalCall(id uint32, callee uintptr) {
	if r.filtered() {
		return
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindExternalCall,
		ID:      id,
		Address: uint64(callee),
	})
}

// Return records the return point of a call instruction. The instrumentation
// places it immediately after the call site, so the record brackets the call
// instruction's position in control flow; the callee's own completion is
// bracketed by its terminal BlockExit instead.
func (r *Runtime) Return(id uint32, callee uintptr) {
	if r.filtered() {
		return
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindReturn,
		ID:      id,
		Address: uint64(callee),
	})
}

// InvariantFailure records that the invariant attached to the instruction
// failed at runtime. Stateless leaf event.
func (r *Runtime) InvariantFailure(id uint32) {
	if r.filtered() {
		return
	}
	r.append(tracefile.Record{
		Kind:    tracefile.KindInvariantFailure,
		ID:      id,
		Address: uint64(id),
	})
}

// Count reports the number of records emitted so far. Diagnostics only.
func (r *Runtime) Count() uint64 {
	return r.w.Count()
}
