//go:build v8

// Package v8engine implements core.JSRuntime on top of V8, selected at
// build time via the v8 tag.
package v8engine

import (
	"encoding/base64"
	"fmt"

	"github.com/nativebridge/ipc/internal/core"
	v8 "github.com/tommie/v8go"
)

// Runtime implements core.JSRuntime for the V8 engine.
type Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates an isolate and a single global context, optionally capping
// the isolate's heap per cfg.MemoryLimitMB.
func New(cfg core.EngineConfig) (*Runtime, error) {
	var opts []v8.IsolateOption
	if cfg.MemoryLimitMB > 0 {
		opts = append(opts, v8.WithHeapSizeLimits(0, uint(cfg.MemoryLimitMB)<<20))
	}
	iso := v8.NewIsolate(opts...)
	ctx := v8.NewContext(iso)
	return &Runtime{iso: iso, ctx: ctx}, nil
}

// Eval evaluates JavaScript source and discards the result.
func (r *Runtime) Eval(js string) error {
	_, err := r.ctx.RunScript(js, "bridge.js")
	return err
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	val, err := r.ctx.RunScript(js, "bridge_eval.js")
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}

// RegisterBytesFunc registers fn as a global JS function named name that
// takes and returns base64-encoded strings — the runtime shim's only
// hook for calling back into native code with raw frame bytes. Base64 is
// used instead of a shared/array-buffer fast path (as the teacher's
// pooled-isolate backend used for bulk binary transfer) because a call's
// argument and return payloads here are small, already-framed IPC
// messages, not streamed binary blobs; the simpler string marshalling
// keeps this backend symmetric with the QuickJS one.
func (r *Runtime) RegisterBytesFunc(name string, fn func([]byte) []byte) error {
	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		var in []byte
		if len(args) > 0 {
			decoded, err := base64.StdEncoding.DecodeString(args[0].String())
			if err != nil {
				msg, _ := v8.NewValue(r.iso, fmt.Sprintf("%s: invalid base64 argument: %v", name, err))
				r.iso.ThrowException(msg)
				return nil
			}
			in = decoded
		}
		out := fn(in)
		encoded := base64.StdEncoding.EncodeToString(out)
		val, err := v8.NewValue(r.iso, encoded)
		if err != nil {
			msg, _ := v8.NewValue(r.iso, fmt.Sprintf("%s: encoding result: %v", name, err))
			r.iso.ThrowException(msg)
			return nil
		}
		return val
	})
	return r.ctx.Global().Set(name, tmpl.GetFunction(r.ctx))
}

// RunMicrotasks pumps the V8 microtask queue.
func (r *Runtime) RunMicrotasks() {
	r.ctx.PerformMicrotaskCheckpoint()
}

// Close releases the context and isolate.
func (r *Runtime) Close() {
	r.ctx.Close()
	r.iso.Dispose()
}
