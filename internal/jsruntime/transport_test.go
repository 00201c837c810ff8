package jsruntime

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/nativebridge/ipc/internal/core"
)

// fakeRuntime is a minimal core.JSRuntime that records Eval calls and lets
// a test script a canned EvalString reply, standing in for a real V8 or
// QuickJS engine so this package's Go-side wiring can be tested without
// either cgo dependency loaded.
type fakeRuntime struct {
	evaluated    []string
	nextReply    string
	nextErr      error
	registered   map[string]func([]byte) []byte
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{registered: make(map[string]func([]byte) []byte)}
}

func (f *fakeRuntime) Eval(js string) error {
	f.evaluated = append(f.evaluated, js)
	return nil
}

func (f *fakeRuntime) EvalString(js string) (string, error) {
	f.evaluated = append(f.evaluated, js)
	return f.nextReply, f.nextErr
}

func (f *fakeRuntime) RegisterBytesFunc(name string, fn func([]byte) []byte) error {
	f.registered[name] = fn
	return nil
}

func (f *fakeRuntime) RunMicrotasks() {}
func (f *fakeRuntime) Close()         {}

var _ core.JSRuntime = (*fakeRuntime)(nil)

func TestNew_BootstrapsShimAndRegistersHook(t *testing.T) {
	rt := newFakeRuntime()
	transport, err := New(rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(rt.evaluated) != 1 {
		t.Fatalf("expected exactly one Eval call bootstrapping the shim, got %d", len(rt.evaluated))
	}
	if _, ok := rt.registered["__bridge_native_call"]; !ok {
		t.Fatalf("expected __bridge_native_call to be registered")
	}
	if transport == nil {
		t.Fatal("expected non-nil transport")
	}
}

func TestSendToJS_EncodesFrameAsBase64AndDecodesReply(t *testing.T) {
	rt := newFakeRuntime()
	transport, err := New(rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	wantReply := []byte{1, 0, 9, 9, 9}
	rt.nextReply = base64.StdEncoding.EncodeToString(wantReply)

	frame := []byte{0, 1, 2, 3}
	reply, err := transport.SendToJS(frame)
	if err != nil {
		t.Fatalf("SendToJS: %v", err)
	}
	if string(reply) != string(wantReply) {
		t.Fatalf("reply = %v, want %v", reply, wantReply)
	}

	last := rt.evaluated[len(rt.evaluated)-1]
	wantB64 := base64.StdEncoding.EncodeToString(frame)
	if !strings.Contains(last, wantB64) {
		t.Fatalf("eval script %q does not contain encoded frame %q", last, wantB64)
	}
}

func TestSendToJS_EmptyReplyMeansNoRespond(t *testing.T) {
	rt := newFakeRuntime()
	transport, err := New(rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rt.nextReply = ""

	reply, err := transport.SendToJS([]byte{0, 1})
	if err != nil {
		t.Fatalf("SendToJS: %v", err)
	}
	if reply != nil {
		t.Fatalf("expected nil reply for an empty-string JS response, got %v", reply)
	}
}

func TestHandleNativeCall_DispatchesThroughBoundHandler(t *testing.T) {
	rt := newFakeRuntime()
	transport, err := New(rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var gotFrame []byte
	transport.Bind(func(frame []byte) []byte {
		gotFrame = frame
		return []byte{7}
	})

	hook := rt.registered["__bridge_native_call"]
	out := hook([]byte{1, 2, 3})
	if string(gotFrame) != string([]byte{1, 2, 3}) {
		t.Fatalf("bound handler did not receive the native-call frame")
	}
	if len(out) != 1 || out[0] != 7 {
		t.Fatalf("handleNativeCall returned %v, want [7]", out)
	}
}

func TestHandleNativeCall_NilWhenUnbound(t *testing.T) {
	rt := newFakeRuntime()
	transport, err := New(rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hook := rt.registered["__bridge_native_call"]
	if out := hook([]byte{1}); out != nil {
		t.Fatalf("expected nil from an unbound native-call hook, got %v", out)
	}
}

func TestSource_IsCachedAndNonEmpty(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if len(src) == 0 {
		t.Fatal("expected non-empty minified source")
	}
	src2, err := Source()
	if err != nil {
		t.Fatalf("Source (second call): %v", err)
	}
	if src != src2 {
		t.Fatal("expected Source to return a cached, stable result")
	}
}
