package bridge

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

// NewFunctionStub fills outFuncPtr — a pointer to a Go function variable —
// with an implementation that calls target's underlying JS function: each
// invocation encodes its arguments per target's reflected Go signature,
// calls through Engine.Call, and decodes the Respond payload back into
// outFuncPtr's declared return shape.
//
// *JsValue arguments use the ephemeral borrow-window calling convention
// instead: the generated stub pushes a borrow frame sized to the number of
// *JsValue parameters (computed once here, at registration time, since the
// signature is fixed), encodes each as its borrow-window index rather than
// its real HeapId, and calls Engine.CallBorrowed with the real ids carried
// alongside so JS can alias them into its own borrow stack for the
// duration of the call — avoiding a CloneHeap/DropHeap round trip per
// *JsValue argument. Every other argument kind is encoded by value and
// never touches the heap at all, so it rides along in the same call
// unaffected by whether any *JsValue arguments are also present.
//
// A call that fails and whose Go signature has no trailing error return
// panics with the failure, since there is nowhere else to surface it.
func (b *Bridge) NewFunctionStub(ctx context.Context, target *JsValue, outFuncPtr any) error {
	outVal := reflect.ValueOf(outFuncPtr)
	if outVal.Kind() != reflect.Ptr || outVal.Elem().Kind() != reflect.Func {
		return fmt.Errorf("bridge: NewFunctionStub: outFuncPtr must be a pointer to a function variable")
	}
	fnType := outVal.Elem().Type()

	argDescs := make([]codec.TypeDesc, fnType.NumIn())
	var borrowArgs []int
	for i := range argDescs {
		desc, err := typeDescFor(fnType.In(i))
		if err != nil {
			return fmt.Errorf("bridge: NewFunctionStub: argument %d: %w", i, err)
		}
		argDescs[i] = desc
		if desc.Kind == codec.KindHeapValue {
			borrowArgs = append(borrowArgs, i)
		}
	}

	hasErr := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == errorType
	retCount := fnType.NumOut()
	if hasErr {
		retCount--
	}
	if retCount > 1 {
		return fmt.Errorf("bridge: NewFunctionStub: at most one non-error return value is supported")
	}
	var retDesc codec.TypeDesc
	if retCount == 1 {
		desc, err := typeDescFor(fnType.Out(0))
		if err != nil {
			return fmt.Errorf("bridge: NewFunctionStub: return value: %w", err)
		}
		retDesc = desc
	} else {
		retDesc = codec.Leaf(codec.KindVoid)
	}

	impl := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		var borrowBase core.HeapId
		var borrowedIDs []core.HeapId
		if len(borrowArgs) > 0 {
			base, err := b.engine.PushBorrowFrame(len(borrowArgs))
			if err != nil {
				panic(fmt.Errorf("bridge: reserving borrow frame for stub call: %w", err))
			}
			borrowBase = base
			borrowedIDs = make([]core.HeapId, len(borrowArgs))
		}

		e := codec.NewEncoder()
		slot := 0
		for i, a := range args {
			if argDescs[i].Kind == codec.KindHeapValue {
				borrowedIDs[slot] = a.Interface().(*JsValue).id
				e.WriteHeapId(borrowBase + core.HeapId(slot))
				slot++
				continue
			}
			if err := encodeReflectValue(e, argDescs[i], a); err != nil {
				panic(fmt.Errorf("bridge: encoding argument %d for stub call: %w", i, err))
			}
		}

		var payload []byte
		var callErr error
		if len(borrowArgs) > 0 {
			payload, callErr = b.engine.CallBorrowed(ctx, target.id, borrowedIDs, e.Bytes())
			if popErr := b.engine.PopBorrowFrame(len(borrowArgs)); popErr != nil && callErr == nil {
				callErr = popErr
			}
		} else {
			payload, callErr = b.engine.Call(ctx, target.id, e.Bytes())
		}

		out := make([]reflect.Value, fnType.NumOut())
		if callErr != nil {
			if !hasErr {
				panic(callErr)
			}
			for i := 0; i < retCount; i++ {
				out[i] = reflect.Zero(fnType.Out(i))
			}
			out[fnType.NumOut()-1] = reflect.ValueOf(callErr).Convert(errorType)
			return out
		}

		if retCount == 1 {
			d := codec.NewDecoder(payload)
			v, err := decodeReflectValue(d, retDesc, fnType.Out(0))
			if err != nil {
				if !hasErr {
					panic(err)
				}
				out[0] = reflect.Zero(fnType.Out(0))
				out[1] = reflect.ValueOf(err).Convert(errorType)
				return out
			}
			out[0] = v
		}
		if hasErr {
			out[fnType.NumOut()-1] = reflect.Zero(errorType)
		}
		return out
	})
	outVal.Elem().Set(impl)
	return nil
}
