package engine

// State names the call engine's position in its Idle/Awaiting/Handling
// cycle, tracked purely for diagnostics and invariant assertions — Go's
// goroutines and channels carry the actual control flow.
type State int

const (
	// StateIdle: no call in flight, no inbound Evaluate being handled.
	StateIdle State = iota
	// StateAwaiting: a native->JS Call (or CloneHeap) was flushed and the
	// engine is parked waiting for its Respond.
	StateAwaiting
	// StateHandling: the engine is running the body of a JS-initiated
	// callback/export dispatch.
	StateHandling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StateHandling:
		return "handling"
	default:
		return "unknown"
	}
}
