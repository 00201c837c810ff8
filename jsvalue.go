package bridge

import (
	"context"
	"runtime"

	"github.com/nativebridge/ipc/internal/core"
)

// JsValue is an owned, refcounted reference to a value living in the JS
// heap table. It must be closed exactly once (directly or via GC
// finalization) or the JS-side slot leaks for the lifetime of the bridge.
type JsValue struct {
	br *Bridge
	id core.HeapId
}

func newJsValue(br *Bridge, id core.HeapId) *JsValue {
	v := &JsValue{br: br, id: id}
	if id >= core.FirstOwnedHeapId {
		runtime.SetFinalizer(v, (*JsValue).finalize)
	}
	return v
}

func (v *JsValue) finalize() {
	v.br.engine.DropHeap(v.id)
}

// Close releases v's heap slot immediately rather than waiting for GC.
// Safe to call more than once; subsequent calls are no-ops.
func (v *JsValue) Close() {
	if v.id < core.FirstOwnedHeapId {
		return
	}
	runtime.SetFinalizer(v, nil)
	v.br.engine.DropHeap(v.id)
	v.id = core.HeapUndefined
}

// Clone asks JS to bump v's refcount and returns a new, independently
// closable JsValue referencing the same underlying value.
func (v *JsValue) Clone(ctx context.Context) (*JsValue, error) {
	newID, err := v.br.engine.CloneHeap(ctx, v.id)
	if err != nil {
		return nil, err
	}
	return newJsValue(v.br, newID), nil
}

func (v *JsValue) typeOf(ctx context.Context) (core.TypeTag, error) {
	return v.br.engine.TypeOf(ctx, v.id)
}

// IsUndefined reports whether v refers to JavaScript's undefined.
func (v *JsValue) IsUndefined(ctx context.Context) (bool, error) {
	t, err := v.typeOf(ctx)
	return t == core.TypeUndefined, err
}

// IsNull reports whether v refers to JavaScript's null.
func (v *JsValue) IsNull(ctx context.Context) (bool, error) {
	t, err := v.typeOf(ctx)
	return t == core.TypeNull, err
}

// IsTrue reports whether v is the reserved HeapTrue constant. An owned
// heap entry holding the boolean true reports false: the TypeOf query
// returns only the type, not the boolean's value.
func (v *JsValue) IsTrue(ctx context.Context) (bool, error) {
	if v.id == core.HeapTrue {
		return true, nil
	}
	t, err := v.typeOf(ctx)
	return t == core.TypeBool && v.id == core.HeapTrue, err
}

// IsFalse reports whether v is the reserved HeapFalse constant. An owned
// heap entry holding the boolean false reports false, for the same reason
// as IsTrue.
func (v *JsValue) IsFalse(ctx context.Context) (bool, error) {
	t, err := v.typeOf(ctx)
	return t == core.TypeBool && v.id == core.HeapFalse, err
}

// IsObject reports whether v refers to a plain JS object (not a function).
func (v *JsValue) IsObject(ctx context.Context) (bool, error) {
	t, err := v.typeOf(ctx)
	return t == core.TypeObject, err
}

// IsFunction reports whether v refers to a callable JS function.
func (v *JsValue) IsFunction(ctx context.Context) (bool, error) {
	t, err := v.typeOf(ctx)
	return t == core.TypeFunction, err
}

// IsString reports whether v refers to a JS string.
func (v *JsValue) IsString(ctx context.Context) (bool, error) {
	t, err := v.typeOf(ctx)
	return t == core.TypeString, err
}
