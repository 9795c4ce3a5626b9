package recorder

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// fatalSignals are the signals that would otherwise kill the process with
// the trace still in the mapped window.
var fatalSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGQUIT,
	syscall.SIGTERM,
	syscall.SIGABRT,
	syscall.SIGSEGV,
	syscall.SIGILL,
	syscall.SIGFPE,
}

// Close runs the termination sequence exactly once: every block still open
// gets a synthesized terminal BlockExit (innermost first), an End record
// delimits the log, and the writer flushes and trims the file. Both the
// normal-exit path and the signal handlers funnel in here; the atomic
// one-shot makes a second signal during shutdown a no-op.
//
// The synthesized closes carry CallID 0 and do not touch the call stack:
// they close blocks structurally, not semantically.
func (r *Runtime) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.logger.Info("writing trace and closing", "open_blocks", len(r.bb), "records", r.w.Count())

	for i := len(r.bb) - 1; i >= 0; i-- {
		r.emit(tracefile.Record{
			Kind:    tracefile.KindBlockExit,
			ID:      r.bb[i].id,
			Address: uint64(r.bb[i].fn),
		})
	}
	r.bb = r.bb[:0]

	r.emit(tracefile.Record{Kind: tracefile.KindEnd})
	return r.w.Close()
}

// installSignalHandlers arranges for fatal signals to flush the trace before
// the process dies. The handler re-exits with the conventional 128+signum so
// the parent still sees a signal death.
func (r *Runtime) installSignalHandlers() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, fatalSignals...)
	go func() {
		sig := <-ch
		r.logger.Error("abnormal termination", "signal", sig)
		if err := r.Close(); err != nil {
			r.logger.Error("flushing trace on signal failed", "err", err)
		}
		code := 128
		if s, ok := sig.(syscall.Signal); ok {
			code += int(s)
		}
		osExit(code)
	}()
}
