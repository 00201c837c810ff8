// Package borrow implements the bridge's borrow window: a fixed-capacity
// stack of temporary HeapId slots that a nested native->JS call can use to
// pass arguments without allocating a durable heap-table entry. The window
// mirrors a real machine stack, growing downward from its capacity: a push
// of N slots lowers the stack pointer by N and the frame occupies the
// range [pointer, pointer+N); a pop restores it.
package borrow

import (
	"fmt"

	"github.com/nativebridge/ipc/internal/core"
)

// Stack is the native-side mirror of the JS-side borrow window. It does not
// hold values itself — those live on the JS side — it only tracks the stack
// pointer, so pushes and pops made through Engine.PushBorrowFrame/
// PopBorrowFrame are bounds-checked and the engine can assert the window is
// empty between top-level calls.
type Stack struct {
	capacity int
	sp       int // stack pointer; sp == capacity means empty
}

// New returns a Stack with the given capacity. A capacity of 0 uses the
// protocol default of core.BorrowWindowSize; tests shrink it to exercise
// overflow cheaply.
func New(capacity int) *Stack {
	if capacity <= 0 {
		capacity = core.BorrowWindowSize
	}
	return &Stack{capacity: capacity, sp: capacity}
}

// Capacity returns the window's total slot count.
func (s *Stack) Capacity() int { return s.capacity }

// Pointer returns the current stack pointer; callers compare it against
// Capacity() to check for emptiness.
func (s *Stack) Pointer() int { return s.sp }

// IsEmpty reports whether no frame is currently pushed.
func (s *Stack) IsEmpty() bool { return s.sp == s.capacity }

// Push reserves n slots for a new frame and returns the HeapId of the
// frame's first slot (the base index). Slots in the frame are
// base, base+1, ..., base+n-1, as core.HeapId values in [0, capacity).
// Returns a *core.ProtocolError if the window would overflow.
func (s *Stack) Push(n int) (core.HeapId, error) {
	if n < 0 {
		return 0, core.NewProtocolError("borrow.Push", fmt.Errorf("negative frame size %d", n))
	}
	if n > s.sp {
		return 0, core.NewProtocolError("borrow.Push", fmt.Errorf(
			"borrow stack overflow: need %d slots, only %d available (capacity %d)", n, s.sp, s.capacity))
	}
	s.sp -= n
	return core.HeapId(s.sp), nil
}

// Pop releases the most recently pushed frame of n slots. It is a fatal
// protocol error to pop more than was pushed, or to pop when empty.
func (s *Stack) Pop(n int) error {
	if s.sp+n > s.capacity {
		return core.NewProtocolError("borrow.Pop", fmt.Errorf(
			"borrow stack underflow: popping %d slots from pointer %d (capacity %d)", n, s.sp, s.capacity))
	}
	s.sp += n
	return nil
}

// Resolve maps a HeapId known to be within the borrow window to its slot
// offset from the base of the currently active frame. Callers must check
// HeapId.IsBorrowIndex() before calling this.
func (s *Stack) Resolve(id core.HeapId) (offset int, err error) {
	idx := int(id)
	if idx < s.sp || idx >= s.capacity {
		return 0, core.NewProtocolError("borrow.Resolve", fmt.Errorf(
			"heap id %d outside current borrow frame [%d, %d)", idx, s.sp, s.capacity))
	}
	return idx - s.sp, nil
}

// AssertEmptyAtTopLevel enforces the invariant that after any top-level
// call returns, the borrow window must be back to empty: every pushed
// frame was popped in LIFO order.
func (s *Stack) AssertEmptyAtTopLevel() error {
	if !s.IsEmpty() {
		return core.NewProtocolError("borrow.AssertEmptyAtTopLevel", fmt.Errorf(
			"borrow stack not empty at top level: pointer=%d capacity=%d", s.sp, s.capacity))
	}
	return nil
}
