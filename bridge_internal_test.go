package bridge

import (
	"context"
	"sync"
	"testing"

	"github.com/nativebridge/ipc/internal/batch"
	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
	"github.com/nativebridge/ipc/internal/engine"
)

// TagOrFunc bundles a heap entry's type tag with an optional callable, so
// the same mock heap slot can answer both Call and TypeOf.
type TagOrFunc struct {
	Tag core.TypeTag
	Fn  func(args []byte) ([]byte, error)
}

// mockPeer stands in for the embedded JS runtime: a synchronous
// core.Transport whose SendToJS interprets every op tag this module's
// root package exercises (Call, CallBorrowed, CloneHeap, TypeOf,
// MakeCallback, DropHeap), similar in spirit to internal/engine's own
// mockSyncPeer but extended to the ops internal/engine's tests don't need.
// Its borrowValues/borrowSP pair mirrors runtime.js's BorrowStack, so a
// registered function can resolve a borrow-window HeapId back to the real
// id it aliases exactly the way the JS-side dispatcher would.
type mockPeer struct {
	mu           sync.Mutex
	heap         map[core.HeapId]TagOrFunc
	nextID       core.HeapId
	borrowValues [core.BorrowWindowSize]core.HeapId
	borrowSP     int
}

func newMockPeer() *mockPeer {
	return &mockPeer{
		heap:     make(map[core.HeapId]TagOrFunc),
		nextID:   core.FirstOwnedHeapId,
		borrowSP: core.BorrowWindowSize,
	}
}

// resolveBorrow maps a borrow-window HeapId (as seen in a registered
// function's decoded argsRaw) back to the real HeapId it currently
// aliases.
func (m *mockPeer) resolveBorrow(id core.HeapId) core.HeapId {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.borrowValues[id]
}

func (m *mockPeer) registerFunc(fn func(args []byte) ([]byte, error)) core.HeapId {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.heap[id] = TagOrFunc{Tag: core.TypeFunction, Fn: fn}
	return id
}

func (m *mockPeer) SetMessageHandler(func([]byte)) {}

// Send applies a fire-and-forget frame's side effects (queued drops) the
// same way SendToJS does, just without building a Respond reply — an
// explicit Engine.Flush() with no pending call relies on this actually
// taking effect rather than silently discarding the frame.
func (m *mockPeer) Send(frame []byte) error {
	_, err := m.SendToJS(frame)
	return err
}

func (m *mockPeer) SendToJS(frame []byte) ([]byte, error) {
	d := codec.NewDecoder(frame)
	if _, err := d.ReadU8(); err != nil {
		return nil, err
	}
	count, err := d.ReadU32()
	if err != nil {
		return nil, err
	}

	var result []byte
	var callErr error
	for i := uint32(0); i < count; i++ {
		op, err := batch.DecodeOperation(d)
		if err != nil {
			return nil, err
		}
		switch op.Tag {
		case core.OpDropHeap:
			pd := codec.NewDecoder(op.Payload)
			id, _ := pd.ReadHeapId()
			m.mu.Lock()
			delete(m.heap, id)
			m.mu.Unlock()
		case core.OpCall:
			pd := codec.NewDecoder(op.Payload)
			target, _ := pd.ReadHeapId()
			args, _ := pd.ReadBytes()
			m.mu.Lock()
			entry := m.heap[target]
			m.mu.Unlock()
			if entry.Fn == nil {
				callErr = &core.CallError{Message: "heap entry is not callable"}
				break
			}
			result, callErr = entry.Fn(args)
		case core.OpCallBorrowed:
			pd := codec.NewDecoder(op.Payload)
			target, _ := pd.ReadHeapId()
			n, _ := pd.ReadU32()
			aliased := make([]core.HeapId, n)
			for bi := range aliased {
				aliased[bi], _ = pd.ReadHeapId()
			}
			args, _ := pd.ReadBytes()
			m.mu.Lock()
			m.borrowSP -= int(n)
			base := core.HeapId(m.borrowSP)
			for bi, id := range aliased {
				m.borrowValues[int(base)+bi] = id
			}
			entry := m.heap[target]
			m.mu.Unlock()
			if entry.Fn == nil {
				callErr = &core.CallError{Message: "heap entry is not callable"}
			} else {
				result, callErr = entry.Fn(args)
			}
			m.mu.Lock()
			m.borrowSP += int(n)
			m.mu.Unlock()
		case core.OpCloneHeap:
			pd := codec.NewDecoder(op.Payload)
			id, _ := pd.ReadHeapId()
			m.mu.Lock()
			entry := m.heap[id]
			newID := m.nextID
			m.nextID++
			m.heap[newID] = entry
			m.mu.Unlock()
			e := codec.NewEncoder()
			e.WriteHeapId(newID)
			result = e.Bytes()
		case core.OpTypeOf:
			pd := codec.NewDecoder(op.Payload)
			id, _ := pd.ReadHeapId()
			m.mu.Lock()
			entry, ok := m.heap[id]
			m.mu.Unlock()
			tag := core.TypeUndefined
			switch {
			case id == core.HeapTrue:
				tag = core.TypeBool
			case id == core.HeapFalse:
				tag = core.TypeBool
			case id == core.HeapNull:
				tag = core.TypeNull
			case ok:
				tag = entry.Tag
			}
			e := codec.NewEncoder()
			e.WriteU8(byte(tag))
			result = e.Bytes()
		case core.OpMakeCallback:
			pd := codec.NewDecoder(op.Payload)
			key, _ := pd.ReadCallbackKey()
			m.mu.Lock()
			newID := m.nextID
			m.nextID++
			m.heap[newID] = TagOrFunc{Tag: core.TypeFunction, Fn: func(args []byte) ([]byte, error) {
				return callViaCallback(key, args)
			}}
			m.mu.Unlock()
			e := codec.NewEncoder()
			e.WriteHeapId(newID)
			result = e.Bytes()
		}
	}
	if callErr != nil {
		e := codec.NewEncoder()
		e.WriteU8(byte(core.MessageRespond))
		e.WriteU8(1)
		e.WriteString(callErr.Error())
		return e.Bytes(), nil
	}
	e := codec.NewEncoder()
	e.WriteU8(byte(core.MessageRespond))
	e.WriteU8(0)
	e.WriteBytes(result)
	return e.Bytes(), nil
}

// callViaCallback is wired up per-test via currentDispatch, mimicking
// runtime.js's makeCallbackFunction: calling the materialized JS function
// value re-enters native through a CallCallback Evaluate frame.
var currentDispatch func(frame []byte) []byte

func callViaCallback(key core.CallbackKey, args []byte) ([]byte, error) {
	op := codec.NewEncoder()
	op.WriteCallbackKey(key)
	op.WriteBytes(args)
	frame := codec.NewEncoder()
	frame.WriteU8(byte(core.MessageEvaluate))
	frame.WriteU32(1)
	batch.Operation{Tag: core.OpCallCallback, Payload: op.Bytes()}.Encode(frame)

	reply := currentDispatch(frame.Bytes())
	d := codec.NewDecoder(reply)
	_, _ = d.ReadU8()
	status, _ := d.ReadU8()
	if status == 1 {
		msg, _ := d.ReadString()
		return nil, &core.CallError{Message: msg}
	}
	return d.ReadBytes()
}

// encodeArgString builds a single-string argument payload, matching what
// decodeReflectValue expects for a func(string) signature.
func encodeArgString(s string) []byte {
	e := codec.NewEncoder()
	e.WriteString(s)
	return e.Bytes()
}

// decodeResultString decodes a single-string return payload.
func decodeResultString(t *testing.T, payload []byte) string {
	t.Helper()
	s, err := codec.NewDecoder(payload).ReadString()
	if err != nil {
		t.Fatalf("decoding result string: %v", err)
	}
	return s
}

// newTestBridge wires a Bridge directly over a mockPeer transport,
// bypassing the embedded-engine construction path in New/NewWithTransport
// so root-package tests can run without V8/QuickJS loaded.
func newTestBridge(t *testing.T) (*Bridge, *mockPeer) {
	t.Helper()
	peer := newMockPeer()
	e := engine.New(peer, core.EngineConfig{})
	currentDispatch = func(frame []byte) []byte {
		return e.DispatchEvaluate(context.Background(), frame)
	}
	return &Bridge{engine: e}, peer
}
