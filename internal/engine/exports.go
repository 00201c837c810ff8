package engine

import "fmt"

// ExportFunc is a named, top-level native function JS can invoke directly
// by name (CallExport) without first holding a CallbackKey — the bridge's
// equivalent of a static API surface, analogous to the original runtime's
// inventory-registered JsExportSpec handlers.
type ExportFunc func(payload []byte) ([]byte, error)

// ExportRegistry is a static table of named exports, populated once at
// startup before the engine begins processing frames.
type ExportRegistry struct {
	fns map[string]ExportFunc
}

// NewExportRegistry returns an empty registry.
func NewExportRegistry() *ExportRegistry {
	return &ExportRegistry{fns: make(map[string]ExportFunc)}
}

// Register adds fn under name, replacing any existing export of that name.
func (r *ExportRegistry) Register(name string, fn ExportFunc) {
	r.fns[name] = fn
}

// Call dispatches payload to the export named name. Calling a name that
// was never registered is the export-table equivalent of a stale callback
// key: both sides have desynchronized on what's available.
func (r *ExportRegistry) Call(name string, payload []byte) ([]byte, error) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, fmt.Errorf("bridge: call to unregistered export %q", name)
	}
	return fn(payload)
}
