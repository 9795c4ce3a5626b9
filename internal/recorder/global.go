package recorder

import (
	"log/slog"
	"sync/atomic"
	"unsafe"
)

// global is the single controlled handle the flat surface delegates to.
// Exactly one live recorder per process.
var global atomic.Pointer[Runtime]

// Init opens the process-wide recorder before any instrumented code runs.
// The path is the only runtime configuration the recorder reads; it is
// supplied once at process start. A failure to open the trace file is fatal.
func Init(path string) {
	rt, err := Open(path, WithSignalHandling())
	if err != nil {
		slog.Error("cannot initialize trace recorder", "path", path, "err", err)
		osExit(1)
		return
	}
	if !global.CompareAndSwap(nil, rt) {
		slog.Warn("trace recorder already initialized; keeping the first", "path", path)
		rt.Close()
	}
}

// Shutdown finalizes the process-wide trace. Safe to call more than once.
func Shutdown() {
	if rt := global.Load(); rt != nil {
		if err := rt.Close(); err != nil {
			slog.Error("closing trace failed", "err", err)
		}
	}
}

// The functions below are the flat instrumentation surface: fixed-width
// integers and raw addresses only, no structured types, so generated
// instrumentation code depends on nothing but these signatures. Each is a
// no-op until Init has run.

func BlockEnter(id uint32, fn uintptr) {
	if rt := global.Load(); rt != nil {
		rt.BlockEnter(id, fn)
	}
}

func BlockExit(id uint32, fn uintptr, terminal bool) {
	if rt := global.Load(); rt != nil {
		rt.BlockExit(id, fn, terminal)
	}
}

func Load(id uint32, addr uintptr, n uintptr) {
	if rt := global.Load(); rt != nil {
		rt.Load(id, addr, n)
	}
}

func Store(id uint32, addr uintptr, n uintptr) {
	if rt := global.Load(); rt != nil {
		rt.Store(id, addr, n)
	}
}

func Select(id uint32, flag bool) {
	if rt := global.Load(); rt != nil {
		rt.Select(id, flag)
	}
}

func StringLoad(id uint32, p unsafe.Pointer) {
	if rt := global.Load(); rt != nil {
		rt.StringLoad(id, p)
	}
}

func StringStore(id uint32, p unsafe.Pointer) {
	if rt := global.Load(); rt != nil {
		rt.StringStore(id, p)
	}
}

func ConcatStore(id uint32, dst, src unsafe.Pointer) {
	if rt := global.Load(); rt != nil {
		rt.ConcatStore(id, dst, src)
	}
}

func Call(id uint32, callee uintptr) {
	if rt := global.Load(); rt != nil {
		rt.Call(id, callee)
	}
}

func ExternalCall(id uint32, callee uintptr) {
	if rt := global.Load(); rt != nil {
		rt.ExternalCall(id, callee)
	}
}

func Return(id uint32, callee uintptr) {
	if rt := global.Load(); rt != nil {
		rt.Return(id, callee)
	}
}

func InvariantFailure(id uint32) {
	if rt := global.Load(); rt != nil {
		rt.InvariantFailure(id)
	}
}

func RegisterHandlerThread(name string) {
	if rt := global.Load(); rt != nil {
		rt.RegisterHandlerThread(name)
	}
}
