// Package tracefile implements the persisted trace log: a headerless, flat
// sequence of fixed-size binary records appended through a windowed
// memory-mapped backing file.
//
// The format is deliberately not portable across architectures - records are
// written in the producing platform's byte order and word width, and read
// back the same way. Consumers read sequentially until the End record; the
// log carries no header and no footer beyond it.
//
// The Writer is single-threaded by design. The only blocking operations are
// the synchronous flush at window rollover and at Close.
package tracefile
