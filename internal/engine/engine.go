// Package engine implements the bridge's call engine: the state machine
// that multiplexes outgoing Evaluate calls and their Respond replies, and
// incoming JS-initiated Evaluate frames, over one Transport. It owns the
// borrow stack and batch buffer and is the only place either is mutated.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/nativebridge/ipc/internal/batch"
	"github.com/nativebridge/ipc/internal/borrow"
	"github.com/nativebridge/ipc/internal/callback"
	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

type respondResult struct {
	payload []byte
	err     error
}

type mainTask struct {
	fn   func()
	done chan struct{}
}

// Engine is the native side of one bridge connection: one call engine per
// Transport, shared by every JsValue, callback and exported native object
// that flows through it.
type Engine struct {
	transport core.Transport
	callbacks *callback.Table
	objects   *callback.ObjectStore
	exports   *ExportRegistry

	mu           sync.Mutex
	borrowStack  *borrow.Stack
	batchBuf     *batch.Buffer
	state        State
	respondStack []chan respondResult

	mainTasks chan mainTask
	fatalCh   chan error
}

// New constructs an Engine over transport. It installs transport's message
// handler, so transport must not already have one registered.
func New(transport core.Transport, cfg core.EngineConfig) *Engine {
	e := &Engine{
		transport:   transport,
		callbacks:   callback.NewTable(),
		objects:     callback.NewObjectStore(),
		exports:     NewExportRegistry(),
		borrowStack: borrow.New(cfg.BorrowStackCapacity),
		batchBuf:    batch.New(),
		mainTasks:   make(chan mainTask, 16),
		fatalCh:     make(chan error, 1),
	}
	transport.SetMessageHandler(e.handleIncomingFrame)
	return e
}

// Exports returns the registry export functions are added to before the
// engine starts processing frames.
func (e *Engine) Exports() *ExportRegistry { return e.exports }

// RegisterCallback inserts fn into the callback table and returns the key
// a JsValue wrapper will carry to JS.
func (e *Engine) RegisterCallback(fn callback.Func) core.CallbackKey {
	return e.callbacks.Register(fn)
}

// DropCallback frees key's slot. Bridge.RegisterCallback calls it when JS
// fails to materialize the callback value; closing or finalizing the
// resulting JsValue does not call it, so the slot otherwise stays until JS
// sends a DropNative for it.
func (e *Engine) DropCallback(key core.CallbackKey) error {
	return e.callbacks.Drop(key)
}

// InsertObject stores a native object for JS to reference by handle.
func (e *Engine) InsertObject(value any) core.ObjectHandle {
	return e.objects.Insert(value)
}

// WithObject borrows the object stored at h for the duration of fn.
func (e *Engine) WithObject(h core.ObjectHandle, fn func(any) (any, error)) (any, error) {
	return e.objects.With(h, fn)
}

// RemoveObject deletes h from the object store.
func (e *Engine) RemoveObject(h core.ObjectHandle) (any, bool) {
	return e.objects.Remove(h)
}

// Call invokes the JS function referenced by target (a heap value) with
// an already-encoded argument payload, and returns the decoded result
// payload once JS responds.
func (e *Engine) Call(ctx context.Context, target core.HeapId, argsPayload []byte) ([]byte, error) {
	op := codec.NewEncoder()
	op.WriteHeapId(target)
	op.WriteBytes(argsPayload)
	return e.flushAndAwait(ctx, batch.Operation{Tag: core.OpCall, Payload: op.Bytes()})
}

// CallBorrowed is Call's borrow-window variant: the caller has already
// reserved len(borrowedIDs) slots via PushBorrowFrame and encoded
// argsPayload so that each aliased argument carries its borrow-window
// index (the frame's base HeapId plus its slot offset) rather than its
// real owned HeapId. borrowedIDs carries those real, already-owned (or
// reserved-constant) HeapIds in slot order, so the JS side can alias them
// into its own borrow-stack mirror before decoding argsPayload — without
// that list JS has nothing to populate the window with. The frame is
// popped by the caller once this returns, keeping native and JS borrow
// stacks symmetric.
func (e *Engine) CallBorrowed(ctx context.Context, target core.HeapId, borrowedIDs []core.HeapId, argsPayload []byte) ([]byte, error) {
	op := codec.NewEncoder()
	op.WriteHeapId(target)
	op.WriteU32(uint32(len(borrowedIDs)))
	for _, id := range borrowedIDs {
		op.WriteHeapId(id)
	}
	op.WriteBytes(argsPayload)
	return e.flushAndAwait(ctx, batch.Operation{Tag: core.OpCallBorrowed, Payload: op.Bytes()})
}

// CloneHeap asks JS to bump the refcount of the heap entry at id and
// returns the new id referencing the same underlying value.
func (e *Engine) CloneHeap(ctx context.Context, id core.HeapId) (core.HeapId, error) {
	op := codec.NewEncoder()
	op.WriteHeapId(id)
	payload, err := e.flushAndAwait(ctx, batch.Operation{Tag: core.OpCloneHeap, Payload: op.Bytes()})
	if err != nil {
		return 0, err
	}
	d := codec.NewDecoder(payload)
	newID, err := d.ReadHeapId()
	if err != nil {
		return 0, core.NewProtocolError("CloneHeap", err)
	}
	return newID, nil
}

// TypeOf asks JS for the type tag of the heap value referenced by id,
// without invoking it — the basis for JsValue's IsUndefined/IsObject/...
// predicate methods.
func (e *Engine) TypeOf(ctx context.Context, id core.HeapId) (core.TypeTag, error) {
	op := codec.NewEncoder()
	op.WriteHeapId(id)
	payload, err := e.flushAndAwait(ctx, batch.Operation{Tag: core.OpTypeOf, Payload: op.Bytes()})
	if err != nil {
		return 0, err
	}
	d := codec.NewDecoder(payload)
	tag, err := d.ReadU8()
	if err != nil {
		return 0, core.NewProtocolError("TypeOf", err)
	}
	return core.TypeTag(tag), nil
}

// MakeCallbackValue asks JS to materialize a callable heap value wrapping
// key, returning its HeapId.
func (e *Engine) MakeCallbackValue(ctx context.Context, key core.CallbackKey) (core.HeapId, error) {
	op := codec.NewEncoder()
	op.WriteCallbackKey(key)
	payload, err := e.flushAndAwait(ctx, batch.Operation{Tag: core.OpMakeCallback, Payload: op.Bytes()})
	if err != nil {
		return 0, err
	}
	d := codec.NewDecoder(payload)
	id, err := d.ReadHeapId()
	if err != nil {
		return 0, core.NewProtocolError("MakeCallbackValue", err)
	}
	return id, nil
}

// DropHeap queues id for release. It does not force a flush: the drop
// rides along with the next call that does, or with an explicit Flush.
func (e *Engine) DropHeap(id core.HeapId) {
	e.mu.Lock()
	e.batchBuf.QueueDrop(id)
	e.mu.Unlock()
}

// Flush forces any queued drops (or other non-return operations) out to
// JS immediately, without expecting a Respond.
func (e *Engine) Flush() error {
	e.mu.Lock()
	if e.batchBuf.Pending() == 0 {
		e.mu.Unlock()
		return nil
	}
	frame := e.batchBuf.Flush()
	e.mu.Unlock()
	return e.transport.Send(frame)
}

// PushBorrowFrame reserves n slots in the borrow window for an upcoming
// CallBorrowed and returns the HeapId of the frame's base slot.
func (e *Engine) PushBorrowFrame(n int) (core.HeapId, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.borrowStack.Push(n)
}

// PopBorrowFrame releases n slots previously reserved by PushBorrowFrame.
func (e *Engine) PopBorrowFrame(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.borrowStack.Pop(n)
}

// AssertBorrowStackEmpty enforces the top-level invariant that the borrow
// window returns to empty once a call fully unwinds.
func (e *Engine) AssertBorrowStackEmpty() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.borrowStack.AssertEmptyAtTopLevel()
}

// flushAndAwait queues op, flushes the batch (forcing a round trip), and
// waits for the matching Respond — either returned synchronously by the
// transport, or delivered later through handleIncomingFrame.
func (e *Engine) flushAndAwait(ctx context.Context, op batch.Operation) ([]byte, error) {
	e.mu.Lock()
	e.batchBuf.QueueOp(op)
	frame := e.batchBuf.Flush()
	ch := make(chan respondResult, 1)
	e.respondStack = append(e.respondStack, ch)
	prevState := e.state
	e.state = StateAwaiting
	e.mu.Unlock()

	restore := func() {
		e.mu.Lock()
		e.state = prevState
		e.mu.Unlock()
	}

	reply, err := e.transport.SendToJS(frame)
	if err != nil {
		e.discardTop(ch)
		restore()
		return nil, err
	}
	if reply != nil {
		// A synchronous transport answered inline; any nested calls it
		// triggered were serviced directly via DispatchEvaluate and never
		// touched the channel we pushed, so it's still exactly our frame
		// to discard.
		e.discardTop(ch)
		restore()
		return decodeRespond(reply)
	}

	res := e.awaitRespond(ctx, ch)
	restore()
	return res.payload, res.err
}

// discardTop removes ch from the top of the respond stack, asserting it
// really is ch — a mismatch there means the LIFO contract was violated.
func (e *Engine) discardTop(ch chan respondResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.respondStack)
	if n == 0 || e.respondStack[n-1] != ch {
		panic("bridge: respond stack LIFO contract violated")
	}
	e.respondStack = e.respondStack[:n-1]
}

// awaitRespond parks until ch receives its Respond, the context is
// canceled, or a fatal protocol error is reported. While parked it also
// services RunOnMainThread tasks posted from other goroutines, so
// background work can make progress during a nested, re-entrant call —
// mirroring the original executor's interleaving of AppEvents while one
// future is pending.
func (e *Engine) awaitRespond(ctx context.Context, ch chan respondResult) respondResult {
	for {
		select {
		case res := <-ch:
			return res
		default:
		}

		select {
		case res := <-ch:
			return res
		case task := <-e.mainTasks:
			task.fn()
			close(task.done)
		case err := <-e.fatalCh:
			return respondResult{err: err}
		case <-ctx.Done():
			return respondResult{err: ctx.Err()}
		}
	}
}

// handleIncomingFrame is installed as the transport's message handler. It
// may be invoked from any goroutine for an asynchronous transport.
func (e *Engine) handleIncomingFrame(frame []byte) {
	mt, err := peekMessageType(frame)
	if err != nil {
		e.reportFatal(err)
		return
	}
	switch mt {
	case core.MessageRespond:
		e.routeRespond(frame)
	case core.MessageEvaluate:
		if reply := e.DispatchEvaluate(context.Background(), frame); reply != nil {
			if err := e.transport.Send(reply); err != nil {
				e.reportFatal(err)
			}
		}
	default:
		e.reportFatal(core.NewProtocolError("handleIncomingFrame", fmt.Errorf("unknown message type %d", mt)))
	}
}

// routeRespond enforces the LIFO contract: a Respond frame, which carries
// no call id, always answers the most recently dispatched outstanding
// call. An arriving Respond with nothing pending is a fatal desync.
func (e *Engine) routeRespond(frame []byte) {
	e.mu.Lock()
	n := len(e.respondStack)
	if n == 0 {
		e.mu.Unlock()
		e.reportFatal(core.NewProtocolError("routeRespond", fmt.Errorf("Respond frame with no outstanding call")))
		return
	}
	ch := e.respondStack[n-1]
	e.respondStack = e.respondStack[:n-1]
	e.mu.Unlock()

	payload, err := decodeRespond(frame)
	ch <- respondResult{payload: payload, err: err}
}

// reportFatal records a protocol-fatal error so anything parked in
// awaitRespond unblocks with it instead of hanging forever.
func (e *Engine) reportFatal(err error) {
	select {
	case e.fatalCh <- err:
	default:
	}
}

// Run is the engine's idle loop: while no call is in flight it services
// RunOnMainThread tasks posted from other goroutines and watches for a
// fatal protocol error, returning when ctx is canceled or a fatal error
// arrives. An embedding application drives this from its event pump's
// idle tick.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-e.mainTasks:
			task.fn()
			close(task.done)
		case err := <-e.fatalCh:
			return err
		}
	}
}

// RunOnMainThread runs fn on the goroutine that owns the JS runtime. If
// ctx is already tagged as running on that path (we're inside a
// DispatchEvaluate call), fn runs inline to avoid self-deadlock. Otherwise
// it is posted to the engine's idle/await loop and this call blocks until
// it has run.
func RunOnMainThread[T any](ctx context.Context, e *Engine, fn func() T) T {
	if isMainThread(ctx) {
		return fn()
	}
	var result T
	done := make(chan struct{})
	e.mainTasks <- mainTask{
		fn:   func() { result = fn() },
		done: done,
	}
	<-done
	return result
}
