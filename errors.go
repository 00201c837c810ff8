package bridge

import (
	"github.com/nativebridge/ipc/internal/callback"
	"github.com/nativebridge/ipc/internal/core"
)

// ProtocolError, StaleCallbackError and CallError are re-exported from
// internal/core so callers never need to import an internal package to
// type-assert on a returned error.
type (
	ProtocolError      = core.ProtocolError
	StaleCallbackError = core.StaleCallbackError
	CallError          = core.CallError
)

// ReentrancyError is returned when a native object is borrowed again from
// within its own active borrow — the same-call-stack re-entrancy the
// object store refuses to silently deadlock on rather than detect.
type ReentrancyError = callback.ReentrancyError
