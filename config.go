package bridge

import "github.com/nativebridge/ipc/internal/core"

// BackendKind selects which embedded JS engine a Bridge uses. The build
// actually linked is still chosen at compile time by the v8 build tag;
// this only needs to agree with whichever one was built in.
type BackendKind int

const (
	// BackendAuto picks whichever backend this binary was built with.
	BackendAuto BackendKind = iota
	BackendV8
	BackendQuickJS
)

// Config configures a Bridge, mirroring the teacher's plain
// struct-literal EngineConfig/WorkerConfig pattern rather than a
// functional-options builder.
type Config struct {
	// Backend documents which engine this binary was built against; it
	// does not itself select one (see BackendKind).
	Backend BackendKind

	// MemoryLimitMB caps the embedded engine's heap. Zero means no limit.
	// Only the V8 backend applies it; the QuickJS backend ignores it.
	MemoryLimitMB int

	// BorrowStackCapacity overrides the default 128-slot borrow window.
	// Zero means "use the default". Only tests shrink this.
	BorrowStackCapacity int

	// DiagnosticsDBPath, if non-empty, turns on the sqlite-backed call
	// recorder at the given path. Empty disables recording entirely.
	DiagnosticsDBPath string
}

func (c Config) engineConfig() core.EngineConfig {
	return core.EngineConfig{
		BorrowStackCapacity: c.BorrowStackCapacity,
		MemoryLimitMB:       c.MemoryLimitMB,
	}
}
