package core

// EngineConfig holds runtime configuration for the bridge's call engine.
type EngineConfig struct {
	// BorrowStackCapacity overrides the default 128-slot borrow window.
	// Zero means "use the default". Only tests shrink this to exercise
	// overflow behavior cheaply.
	BorrowStackCapacity int

	// MemoryLimitMB caps the embedded JS engine's heap when the backend
	// supports it: the V8 backend applies it, the QuickJS backend ignores it.
	MemoryLimitMB int
}
