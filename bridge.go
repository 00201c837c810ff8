// Package bridge implements a bidirectional native↔JavaScript call bridge
// for desktop applications embedding a web view: native code calls JS
// functions synchronously from the caller's perspective, JS calls
// registered native callbacks, and nested re-entrant calls across the
// boundary are multiplexed over a single call engine.
package bridge

import (
	"context"
	"fmt"
	"log"

	"github.com/nativebridge/ipc/internal/core"
	"github.com/nativebridge/ipc/internal/diagnostics"
	"github.com/nativebridge/ipc/internal/engine"
	"github.com/nativebridge/ipc/internal/jsruntime"
)

// EventPump is the abstract windowing/event-loop integration a host
// application provides: something that can run a task on the thread that
// owns the embedded JS engine. SetEventPump uses it once, to hand that
// thread over to the call engine's idle loop for the bridge's lifetime,
// so RunOnMainThread tasks and fatal-error detection keep making progress
// even when no call is currently in flight. The bridge never drives an
// event loop itself — that stays the host's job.
type EventPump interface {
	// PostIdleTask schedules fn to run on the event loop's own thread the
	// next time it is idle.
	PostIdleTask(fn func())
}

// Bridge is one native↔JS connection: one call engine, one JS runtime (or
// one remote transport), and the registries (callbacks, exports) built on
// top of them.
type Bridge struct {
	engine    *engine.Engine
	rt        core.JSRuntime // nil for an out-of-process transport
	inproc    *jsruntime.InProcessTransport
	recorder  *diagnostics.Recorder
	pump      EventPump
	runCancel context.CancelFunc
}

// New constructs a Bridge using the build's embedded JS engine (V8 or
// QuickJS, selected by the v8 build tag) as an in-process transport.
func New(cfg Config) (*Bridge, error) {
	rt, err := newJSRuntime(cfg.engineConfig())
	if err != nil {
		return nil, fmt.Errorf("bridge: creating JS runtime: %w", err)
	}
	transport, err := jsruntime.New(rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("bridge: bootstrapping runtime shim: %w", err)
	}

	b := &Bridge{rt: rt, inproc: transport}

	var engineTransport core.Transport = transport
	if cfg.DiagnosticsDBPath != "" {
		rec, err := diagnostics.Open(cfg.DiagnosticsDBPath)
		if err != nil {
			log.Printf("bridge: diagnostics recorder disabled: %v", err)
		} else {
			b.recorder = rec
			engineTransport = diagnostics.Wrap(transport, rec)
		}
	}

	e := engine.New(engineTransport, cfg.engineConfig())
	transport.Bind(func(frame []byte) []byte {
		return e.DispatchEvaluate(context.Background(), frame)
	})
	b.engine = e

	return b, nil
}

// NewWithTransport constructs a Bridge over an already-built core.Transport
// — a websocket devtools channel, or any other out-of-process peer —
// instead of an embedded in-process JS engine.
func NewWithTransport(transport core.Transport, cfg Config) *Bridge {
	e := engine.New(transport, cfg.engineConfig())
	return &Bridge{engine: e}
}

// SetEventPump registers the host application's event-loop integration
// and hands that loop's idle tick over to the engine's Run loop for the
// lifetime of the bridge: the posted idle task blocks in engine.Run until
// Shutdown cancels it or a fatal protocol error occurs, so the idle task
// effectively becomes the engine's permanent home thread. Call this once,
// before the first blocking Call.
func (b *Bridge) SetEventPump(pump EventPump) {
	b.pump = pump
	ctx, cancel := context.WithCancel(context.Background())
	b.runCancel = cancel
	pump.PostIdleTask(func() {
		if err := b.engine.Run(ctx); err != nil {
			log.Printf("bridge: event pump stopped: %v", err)
		}
	})
}

// RunOnMainThread runs fn on the goroutine that owns the JS runtime,
// inline if already there, otherwise posted and awaited.
func RunOnMainThread[T any](ctx context.Context, b *Bridge, fn func() T) T {
	return engine.RunOnMainThread(ctx, b.engine, fn)
}

// Shutdown releases the bridge's JS runtime and diagnostics recorder.
// status is accepted for parity with the windowing layer's process-exit
// convention but is not itself interpreted here.
func (b *Bridge) Shutdown(status int) {
	if b.runCancel != nil {
		b.runCancel()
	}
	if b.recorder != nil {
		if err := b.recorder.Close(); err != nil {
			log.Printf("bridge: closing diagnostics recorder: %v", err)
		}
	}
	if b.rt != nil {
		b.rt.Close()
	}
}
