package engine

import (
	"context"

	"github.com/nativebridge/ipc/internal/batch"
	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

// DispatchEvaluate handles one inbound Evaluate frame — JS invoking a
// registered callback, a named export, or notifying native that a
// callback wrapper was garbage collected. It is the single entry point
// both delivery models share: an in-process JSRuntime backend calls it
// directly and synchronously from the Go function JS's dispatcher shim
// invokes; an asynchronous transport's message handler calls it from
// handleIncomingFrame.
//
// Per the frame format's "drops precede calls" rule, every operation in
// the sequence except possibly the last is fire-and-forget (DropNative);
// at most one call-shaped operation (CallCallback or CallExport) appears,
// and only it produces a result. DispatchEvaluate returns the encoded
// Respond frame for that result, or nil if the frame carried no
// call-shaped operation.
func (e *Engine) DispatchEvaluate(ctx context.Context, frame []byte) []byte {
	ctx = withMainThread(ctx)

	e.mu.Lock()
	prevState := e.state
	e.state = StateHandling
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.state = prevState
		e.mu.Unlock()
	}()

	d := codec.NewDecoder(frame)
	mt, err := d.ReadU8()
	if err != nil {
		return encodeRespondErr(err.Error())
	}
	if core.MessageType(mt) != core.MessageEvaluate {
		return encodeRespondErr("expected Evaluate frame")
	}
	count, err := d.ReadU32()
	if err != nil {
		return encodeRespondErr(err.Error())
	}

	var (
		result   []byte
		callErr  error
		haveCall bool
	)
	for i := uint32(0); i < count; i++ {
		op, err := batch.DecodeOperation(d)
		if err != nil {
			return encodeRespondErr(err.Error())
		}
		switch op.Tag {
		case core.OpDropNative:
			e.handleDropNative(op.Payload)
		case core.OpCallCallback:
			result, callErr = e.handleCallCallback(ctx, op.Payload)
			haveCall = true
		case core.OpCallExport:
			result, callErr = e.handleCallExport(ctx, op.Payload)
			haveCall = true
		default:
			return encodeRespondErr("unexpected operation in inbound Evaluate frame: " + op.Tag.String())
		}
	}

	if err := d.AssertEmpty(); err != nil {
		return encodeRespondErr(err.Error())
	}
	if !haveCall {
		return nil
	}
	if callErr != nil {
		return encodeRespondErr(callErr.Error())
	}
	return encodeRespondOK(result)
}

func (e *Engine) handleDropNative(payload []byte) {
	d := codec.NewDecoder(payload)
	key, err := d.ReadCallbackKey()
	if err != nil {
		e.reportFatal(core.NewProtocolError("handleDropNative", err))
		return
	}
	// A late or duplicate drop for an already-freed slot is not itself a
	// protocol desync worth tearing down the bridge over; ignore it.
	_ = e.callbacks.Drop(key)
}

func (e *Engine) handleCallCallback(ctx context.Context, payload []byte) ([]byte, error) {
	d := codec.NewDecoder(payload)
	key, err := d.ReadCallbackKey()
	if err != nil {
		return nil, err
	}
	args, err := d.ReadBytes()
	if err != nil {
		return nil, err
	}
	return e.callbacks.Dispatch(key, args)
}

func (e *Engine) handleCallExport(ctx context.Context, payload []byte) ([]byte, error) {
	d := codec.NewDecoder(payload)
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	args, err := d.ReadBytes()
	if err != nil {
		return nil, err
	}
	return e.exports.Call(name, args)
}
