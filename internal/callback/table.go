// Package callback implements the native-side callback table: a slotmap
// keyed by generation+index (core.CallbackKey) that stores the Go closures
// JS holds opaque wrapper objects for, plus the exported-object store used
// by the engine's object-handle APIs (InsertObject/WithObject/RemoveObject).
package callback

import (
	"sync"

	"github.com/nativebridge/ipc/internal/core"
)

// Func is the shape every registered callback takes: it receives the
// already-decoded argument payload and returns an encoded result payload,
// or an error to surface back to JS as a thrown value.
type Func func(payload []byte) ([]byte, error)

type slot struct {
	generation uint32
	occupied   bool
	fn         Func
}

// Table is a generation-protected slotmap of registered Go callbacks. Slot
// reuse bumps the generation so a stale key (one JS already dropped and
// whose slot was recycled) is rejected instead of silently invoking the
// wrong closure.
type Table struct {
	mu       sync.Mutex
	slots    []slot
	freeList []uint32
}

// NewTable returns an empty callback table.
func NewTable() *Table {
	return &Table{}
}

// Register inserts fn and returns the key JS will hold a wrapper for.
func (t *Table) Register(fn Func) core.CallbackKey {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		s := &t.slots[idx]
		s.occupied = true
		s.fn = fn
		return core.CallbackKey{Index: idx, Generation: s.generation}
	}

	idx := uint32(len(t.slots))
	t.slots = append(t.slots, slot{generation: 0, occupied: true, fn: fn})
	return core.CallbackKey{Index: idx, Generation: 0}
}

// lookup copies the fn value out from under the lock without invoking it,
// mirroring the original runtime's pattern of cloning the Rc out of the
// slotmap and releasing the borrow before the call — so a re-entrant call
// that registers or drops another callback during this invocation never
// deadlocks on the same mutex.
func (t *Table) lookup(key core.CallbackKey) (Func, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(key.Index) >= len(t.slots) {
		return nil, &core.StaleCallbackError{Key: key}
	}
	s := &t.slots[key.Index]
	if !s.occupied || s.generation != key.Generation {
		return nil, &core.StaleCallbackError{Key: key}
	}
	return s.fn, nil
}

// Dispatch resolves key and invokes the registered closure with payload.
// The lock is held only long enough to copy the closure out; the call
// itself runs unlocked so it may freely re-enter the table.
func (t *Table) Dispatch(key core.CallbackKey, payload []byte) ([]byte, error) {
	fn, err := t.lookup(key)
	if err != nil {
		return nil, err
	}
	return fn(payload)
}

// Drop frees key's slot and bumps its generation so any key still
// outstanding in JS (there shouldn't be one) is recognized as stale.
func (t *Table) Drop(key core.CallbackKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(key.Index) >= len(t.slots) {
		return &core.StaleCallbackError{Key: key}
	}
	s := &t.slots[key.Index]
	if !s.occupied || s.generation != key.Generation {
		return &core.StaleCallbackError{Key: key}
	}
	s.occupied = false
	s.fn = nil
	s.generation++
	t.freeList = append(t.freeList, key.Index)
	return nil
}

// Len reports how many slots are currently occupied, for diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots) - len(t.freeList)
}
