//go:build !v8

// Package quickjs implements core.JSRuntime on top of modernc.org/quickjs,
// the default backend when the v8 build tag is absent — platforms without
// a working cgo toolchain for V8 still get a working bridge.
package quickjs

import (
	"encoding/base64"
	"fmt"

	"github.com/nativebridge/ipc/internal/core"
	"modernc.org/quickjs"
)

// Runtime implements core.JSRuntime for the QuickJS engine.
type Runtime struct {
	vm *quickjs.VM
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a fresh QuickJS VM. cfg.MemoryLimitMB is currently
// advisory only — modernc.org/quickjs does not expose a per-VM memory
// limit knob the way v8go does; the field is accepted so callers can
// configure both backends identically.
func New(cfg core.EngineConfig) (*Runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating quickjs VM: %w", err)
	}
	return &Runtime{vm: vm}, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// RegisterBytesFunc registers fn as a global JS function named name that
// takes and returns base64-encoded strings. The raw Go function is
// registered under a mangled name and wrapped in JS, the same
// raw-then-wrap idiom the teacher's RegisterFunc used to smooth over
// modernc.org/quickjs's multi-value-return-as-array convention.
func (r *Runtime) RegisterBytesFunc(name string, fn func([]byte) []byte) error {
	rawName := "__raw_" + name
	wrapped := func(b64 string) (string, error) {
		var in []byte
		if b64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return "", fmt.Errorf("%s: invalid base64 argument: %w", name, err)
			}
			in = decoded
		}
		out := fn(in)
		return base64.StdEncoding.EncodeToString(out), nil
	}
	if err := r.vm.RegisterFunc(rawName, wrapped, false); err != nil {
		return fmt.Errorf("registering %s: %w", rawName, err)
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function(b64) {
			var r = raw(b64);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// RunMicrotasks pumps the QuickJS microtask queue.
func (r *Runtime) RunMicrotasks() {
	executePendingJobs(r.vm)
}

// Close releases the VM.
func (r *Runtime) Close() {
	r.vm.Close()
}
