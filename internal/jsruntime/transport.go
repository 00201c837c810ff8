// Package jsruntime wires one of the build-tag-selected core.JSRuntime
// backends (V8 or QuickJS) to the call engine: it bootstraps the embedded
// heap-table/dispatcher shim into the engine and exposes it as a
// synchronous, in-process core.Transport.
package jsruntime

import (
	"encoding/base64"
	"fmt"

	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

// InProcessTransport implements core.Transport over an embedded JS engine
// running entirely on the caller's goroutine: SendToJS returns its reply
// inline (or propagates a JS-side error), since there is no second thread
// for a reply to arrive on asynchronously later. The reply is nil when JS
// produced no Respond frame.
type InProcessTransport struct {
	rt      core.JSRuntime
	handler func(frame []byte)
}

var _ core.Transport = (*InProcessTransport)(nil)

// New evaluates the embedded bridge runtime shim into rt and returns a
// Transport ready to be handed to engine.New. The __bridge_native_call
// hook is registered immediately; until Bind installs the engine's
// dispatch entry point, a JS-initiated call through it gets no reply.
func New(rt core.JSRuntime) (*InProcessTransport, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	if err := rt.Eval(src); err != nil {
		return nil, fmt.Errorf("bootstrapping bridge runtime: %w", err)
	}
	t := &InProcessTransport{rt: rt}
	if err := rt.RegisterBytesFunc("__bridge_native_call", t.handleNativeCall); err != nil {
		return nil, fmt.Errorf("registering native-call hook: %w", err)
	}
	return t, nil
}

// Bind installs dispatch as the function the engine's own DispatchEvaluate
// uses to service a JS-initiated Evaluate frame arriving synchronously
// through __bridge_native_call, completing the wiring New started.
func (t *InProcessTransport) Bind(dispatch func(frame []byte) []byte) {
	t.handler = dispatch
}

func (t *InProcessTransport) handleNativeCall(frame []byte) []byte {
	if t.handler == nil {
		return nil
	}
	return t.handler(frame)
}

// SendToJS hands frame to the embedded engine's dispatcher and returns its
// Respond frame synchronously; any nested JS-initiated calls triggered
// while JS is running are serviced inline via handleNativeCall before this
// call returns, matching the engine's dual-delivery-model contract.
func (t *InProcessTransport) SendToJS(frame []byte) ([]byte, error) {
	b64 := base64.StdEncoding.EncodeToString(frame)
	replyB64, err := t.rt.EvalString(fmt.Sprintf("globalThis.__bridge_dispatch(%s)", jsStringLiteral(b64)))
	if err != nil {
		return nil, core.NewProtocolError("SendToJS", err)
	}
	if replyB64 == "" {
		return nil, nil
	}
	reply, err := base64.StdEncoding.DecodeString(replyB64)
	if err != nil {
		return nil, core.NewProtocolError("SendToJS", err)
	}
	return reply, nil
}

// Send is SendToJS with the reply discarded — used for fire-and-forget
// drop flushes. JS-initiated calls are answered through the return value
// of the __bridge_native_call hook, not through Send.
func (t *InProcessTransport) Send(frame []byte) error {
	_, err := t.SendToJS(frame)
	return err
}

// SetMessageHandler is a no-op for the in-process transport: there is no
// asynchronous delivery path, so nothing ever calls this handler. It
// exists only to satisfy core.Transport.
func (t *InProcessTransport) SetMessageHandler(handler func(frame []byte)) {}

// RegisterStub asks the JS runtime to wrap fn in a callable stub at a
// fresh heap id and returns that id, which can be passed to
// engine.Engine.Call as a target.
func (t *InProcessTransport) RegisterStub(jsFnExpr string, args []codec.TypeDesc, ret codec.TypeDesc) (core.HeapId, error) {
	argsB64 := encodeTypeDescList(args)
	retB64 := encodeTypeDesc(ret)
	script := fmt.Sprintf(
		`(function(){
			var argDescs = [%s].map(function(b){return globalThis.__bridge.parseTypeDescBase64(b);});
			var retDesc = globalThis.__bridge.parseTypeDescBase64(%s);
			return globalThis.__bridge.registerStub((%s), argDescs, retDesc).toString();
		})()`,
		joinQuoted(argsB64), jsStringLiteral(retB64), jsFnExpr,
	)
	idStr, err := t.rt.EvalString(script)
	if err != nil {
		return 0, fmt.Errorf("registering stub: %w", err)
	}
	return parseHeapIDString(idStr)
}

func encodeTypeDescList(descs []codec.TypeDesc) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = encodeTypeDesc(d)
	}
	return out
}

func encodeTypeDesc(d codec.TypeDesc) string {
	e := codec.NewEncoder()
	d.Encode(e)
	return base64.StdEncoding.EncodeToString(e.Bytes())
}

func joinQuoted(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += jsStringLiteral(s)
	}
	return out
}

func jsStringLiteral(s string) string {
	e := make([]byte, 0, len(s)+2)
	e = append(e, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			e = append(e, '\\')
		}
		e = append(e, c)
	}
	e = append(e, '"')
	return string(e)
}

func parseHeapIDString(s string) (core.HeapId, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("parsing heap id %q: %w", s, err)
	}
	return core.HeapId(v), nil
}
