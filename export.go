package bridge

import (
	"fmt"
	"reflect"

	"github.com/nativebridge/ipc/internal/codec"
)

// RegisterExport installs fn under name in the export registry, callable
// from JS via CallExport regardless of any particular JsValue — the
// named entry point a webview's bootstrap script reaches for instead of
// a callback handed to it explicitly. Signature rules are the same as
// RegisterCallback's.
func (b *Bridge) RegisterExport(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("bridge: RegisterExport: expected a function, got %T", fn)
	}

	argDescs := make([]codec.TypeDesc, fnType.NumIn())
	for i := range argDescs {
		desc, err := typeDescFor(fnType.In(i))
		if err != nil {
			return fmt.Errorf("bridge: RegisterExport %q: argument %d: %w", name, i, err)
		}
		argDescs[i] = desc
	}

	hasErr := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == errorType
	retCount := fnType.NumOut()
	if hasErr {
		retCount--
	}
	if retCount > 1 {
		return fmt.Errorf("bridge: RegisterExport %q: at most one non-error return value is supported", name)
	}
	var retDesc codec.TypeDesc
	if retCount == 1 {
		desc, err := typeDescFor(fnType.Out(0))
		if err != nil {
			return fmt.Errorf("bridge: RegisterExport %q: return value: %w", name, err)
		}
		retDesc = desc
	} else {
		retDesc = codec.Leaf(codec.KindVoid)
	}

	b.engine.Exports().Register(name, func(payload []byte) ([]byte, error) {
		d := codec.NewDecoder(payload)
		args := make([]reflect.Value, len(argDescs))
		for i, desc := range argDescs {
			v, err := decodeReflectValue(d, desc, fnType.In(i))
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		if err := d.AssertEmpty(); err != nil {
			return nil, err
		}

		results := fnVal.Call(args)
		if hasErr {
			errVal := results[len(results)-1]
			if !errVal.IsNil() {
				return nil, errVal.Interface().(error)
			}
			results = results[:len(results)-1]
		}

		e := codec.NewEncoder()
		if len(results) == 1 {
			if err := encodeReflectValue(e, retDesc, results[0]); err != nil {
				return nil, err
			}
		}
		return e.Bytes(), nil
	})
	return nil
}
