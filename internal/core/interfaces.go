package core

// Transport moves encoded frames between the native call engine and the
// JavaScript runtime. It is the sole abstraction over "how bytes get to
// the webview" — the core never knows whether that's an in-process
// embedded engine, a websocket devtools channel, or something else.
//
// SendToJS ships a frame to the JS side. Implementations that can answer
// synchronously (an in-process engine evaluating a script to completion)
// return the JS-computed reply frame directly; implementations that are
// inherently asynchronous (a socket, a webview IPC channel) return a nil
// reply and deliver it later through the handler installed by
// SetMessageHandler.
type Transport interface {
	SendToJS(frame []byte) (reply []byte, err error)
	SetMessageHandler(handler func(frame []byte))

	// Send pushes a frame with no expectation of a reply: an unsolicited
	// Respond to a JS-initiated call, or a fire-and-forget, drop-only
	// Evaluate. Synchronous in-process transports implement this as a
	// direct call with the reply discarded; asynchronous transports write
	// the frame to the wire and return.
	Send(frame []byte) error
}

// JSRuntime abstracts the embedded JavaScript engine (V8 or QuickJS) behind
// a common interface used by the jsruntime package's dispatcher shim and
// by the two build-tag-selected backends.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// RegisterBytesFunc registers a Go function as a global JS function that
	// takes and returns base64-encoded byte payloads. This is the single
	// hook the embedded runtime shim uses to call back into native code.
	RegisterBytesFunc(name string, fn func([]byte) []byte) error

	// RunMicrotasks pumps the engine's microtask queue.
	RunMicrotasks()

	// Close releases the underlying engine resources.
	Close()
}
