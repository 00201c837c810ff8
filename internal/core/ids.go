// Package core holds the wire-level types and interfaces shared by every
// layer of the bridge: the codec, the borrow stack, the callback table,
// the batch buffer and the call engine all build on the identifiers and
// frame shapes defined here.
package core

// HeapId is a 64-bit opaque identifier for a value held in the JS-side
// heap table. The space is partitioned:
//
//	[0, BorrowWindowSize)        borrow-stack window, not a real heap slot
//	[BorrowWindowSize, 132)      reserved constants (undefined/null/true/false)
//	[132, ...)                   owned heap entries
type HeapId uint64

// BorrowWindowSize is the size of the borrow-stack index window. HeapIds
// below this value are resolved through the current borrow frame rather
// than the heap table.
const BorrowWindowSize = 128

// Reserved HeapId constants. These never get cloned, dropped, or
// allocated; they always compare equal to the same JS-side singleton.
const (
	HeapUndefined HeapId = BorrowWindowSize + iota
	HeapNull
	HeapTrue
	HeapFalse
)

// FirstOwnedHeapId is the lowest HeapId a freshly allocated heap slot can
// take; everything below it is reserved or borrow-window space.
const FirstOwnedHeapId HeapId = BorrowWindowSize + 4

// IsReserved reports whether id names one of the four constant singletons.
func (id HeapId) IsReserved() bool {
	return id >= BorrowWindowSize && id < FirstOwnedHeapId
}

// IsBorrowIndex reports whether id falls in the borrow-stack window and
// must be resolved against the current frame instead of the heap table.
func (id HeapId) IsBorrowIndex() bool {
	return id < BorrowWindowSize
}

// CallbackKey identifies a native callable stored in the callback table.
// It packs a generation counter and a slot index, slotmap-style: reusing
// a slot bumps the generation so a stale key is detected rather than
// silently resolving to the wrong callback.
type CallbackKey struct {
	Index      uint32
	Generation uint32
}

// FFI packs the key into the u64 wire form used by CallCallback/DropNative
// payloads and as the target of a registered-callback wrapper handed to JS.
func (k CallbackKey) FFI() uint64 {
	return uint64(k.Generation)<<32 | uint64(k.Index)
}

// CallbackKeyFromFFI unpacks a u64 wire value back into a CallbackKey.
func CallbackKeyFromFFI(v uint64) CallbackKey {
	return CallbackKey{Index: uint32(v), Generation: uint32(v >> 32)}
}

// ObjectHandle is a 32-bit key into the exported-object store, distinct
// from the CallbackKey namespace.
type ObjectHandle uint32
