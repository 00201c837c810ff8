//go:build !v8

package bridge

import (
	"testing"

	"github.com/nativebridge/ipc/internal/core"
)

// TestQuickJSRuntime_EvalStringRoundTrips is a smoke test for the default
// pure-Go QuickJS backend, exercising core.JSRuntime against a real
// interpreter rather than the mockPeer transport the rest of this package's
// tests use.
func TestQuickJSRuntime_EvalStringRoundTrips(t *testing.T) {
	rt, err := newJSRuntime(core.EngineConfig{})
	if err != nil {
		t.Fatalf("newJSRuntime: %v", err)
	}
	defer rt.Close()

	got, err := rt.EvalString("1 + 2")
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "3" {
		t.Fatalf("got %q, want %q", got, "3")
	}
}

func TestQuickJSRuntime_RegisterBytesFuncIsCallable(t *testing.T) {
	rt, err := newJSRuntime(core.EngineConfig{})
	if err != nil {
		t.Fatalf("newJSRuntime: %v", err)
	}
	defer rt.Close()

	var called bool
	if err := rt.RegisterBytesFunc("__bridgeTestHook", func(frame []byte) []byte {
		called = true
		return frame
	}); err != nil {
		t.Fatalf("RegisterBytesFunc: %v", err)
	}
	if err := rt.Eval(`__bridgeTestHook("")`); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rt.RunMicrotasks()
	if !called {
		t.Fatal("expected the registered hook to have been invoked")
	}
}
