package core

import "fmt"

// ProtocolError marks a failure that leaves the bridge in an unrecoverable
// state: a decode error on an inbound frame, a borrow-stack overflow, a
// LIFO mismatch, or an unknown reserved id. Per the protocol's failure
// semantics these are fatal — the transport is trusted, so seeing one
// means the two sides have desynchronized.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bridge: protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError wraps err with the operation that was in progress.
func NewProtocolError(op string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Err: err}
}

// StaleCallbackError is returned when a CallbackKey's generation doesn't
// match the slot currently occupying its index — the slot was freed and
// reused since the key was handed out.
type StaleCallbackError struct {
	Key CallbackKey
}

func (e *StaleCallbackError) Error() string {
	return fmt.Sprintf("bridge: stale callback key %+v (slot reused)", e.Key)
}

// CallError is the Go-side representation of an application-surfaced
// failure: a registered callback returned an error, or a JS call threw.
// It is carried as a tagged variant inside a Respond frame rather than
// treated as protocol-fatal.
type CallError struct {
	Message string
}

func (e *CallError) Error() string { return e.Message }
