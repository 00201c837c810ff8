package bridge

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nativebridge/ipc/internal/codec"
)

// RegisterCallback wraps a Go function as a callable JS value. fn's
// signature is inspected via reflection once, at registration time, to
// build the argument/return TypeDesc pair the wire codec needs; every
// invocation after that decodes/encodes against the cached descriptors.
//
// Supported argument and return kinds: bool, the sized int/uint/float
// kinds, string, and a single trailing error return (turned into an
// application-surfaced CallError rather than a second return value on
// the wire).
func (b *Bridge) RegisterCallback(ctx context.Context, fn any) (*JsValue, error) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("bridge: RegisterCallback: expected a function, got %T", fn)
	}

	argDescs := make([]codec.TypeDesc, fnType.NumIn())
	for i := range argDescs {
		desc, err := typeDescFor(fnType.In(i))
		if err != nil {
			return nil, fmt.Errorf("bridge: RegisterCallback: argument %d: %w", i, err)
		}
		argDescs[i] = desc
	}

	hasErr := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == errorType
	retCount := fnType.NumOut()
	if hasErr {
		retCount--
	}
	if retCount > 1 {
		return nil, fmt.Errorf("bridge: RegisterCallback: at most one non-error return value is supported")
	}
	var retDesc codec.TypeDesc
	if retCount == 1 {
		desc, err := typeDescFor(fnType.Out(0))
		if err != nil {
			return nil, fmt.Errorf("bridge: RegisterCallback: return value: %w", err)
		}
		retDesc = desc
	} else {
		retDesc = codec.Leaf(codec.KindVoid)
	}

	goFn := func(payload []byte) ([]byte, error) {
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
	}

	key := b.engine.RegisterCallback(goFn)
	id, err := b.engine.MakeCallbackValue(ctx, key)
	if err != nil {
		_ = b.engine.DropCallback(key)
		return nil, err
	}
	return newJsValue(b, id), nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
var jsValueType = reflect.TypeOf((*JsValue)(nil))

func typeDescFor(t reflect.Type) (codec.TypeDesc, error) {
	if t == jsValueType {
		return codec.Leaf(codec.KindHeapValue), nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return codec.Leaf(codec.KindBool), nil
	case reflect.Uint8:
		return codec.Leaf(codec.KindU8), nil
	case reflect.Uint16:
		return codec.Leaf(codec.KindU16), nil
	case reflect.Uint32:
		return codec.Leaf(codec.KindU32), nil
	case reflect.Uint, reflect.Uint64:
		return codec.Leaf(codec.KindU64), nil
	case reflect.Int8:
		return codec.Leaf(codec.KindI8), nil
	case reflect.Int16:
		return codec.Leaf(codec.KindI16), nil
	case reflect.Int32:
		return codec.Leaf(codec.KindI32), nil
	case reflect.Int, reflect.Int64:
		return codec.Leaf(codec.KindI64), nil
	case reflect.Float32:
		return codec.Leaf(codec.KindF32), nil
	case reflect.Float64:
		return codec.Leaf(codec.KindF64), nil
	case reflect.String:
		return codec.Leaf(codec.KindString), nil
	case reflect.Slice:
		elem, err := typeDescFor(t.Elem())
		if err != nil {
			return codec.TypeDesc{}, err
		}
		return codec.SequenceOf(elem), nil
	case reflect.Ptr:
		elem, err := typeDescFor(t.Elem())
		if err != nil {
			return codec.TypeDesc{}, err
		}
		return codec.OptionOf(elem), nil
	default:
		return codec.TypeDesc{}, fmt.Errorf("unsupported Go type %s", t)
	}
}

func decodeReflectValue(d *codec.Decoder, desc codec.TypeDesc, t reflect.Type) (reflect.Value, error) {
	switch desc.Kind {
	case codec.KindBool:
		v, err := d.ReadBool()
		return reflect.ValueOf(v), err
	case codec.KindU8:
		v, err := d.ReadU8()
		return reflect.ValueOf(v), err
	case codec.KindU16:
		v, err := d.ReadU16()
		return reflect.ValueOf(v), err
	case codec.KindU32:
		v, err := d.ReadU32()
		return reflect.ValueOf(v), err
	case codec.KindU64:
		v, err := d.ReadU64()
		return reflect.ValueOf(v).Convert(t), err
	case codec.KindI8:
		v, err := d.ReadI8()
		return reflect.ValueOf(v), err
	case codec.KindI16:
		v, err := d.ReadI16()
		return reflect.ValueOf(v), err
	case codec.KindI32:
		v, err := d.ReadI32()
		return reflect.ValueOf(v), err
	case codec.KindI64:
		v, err := d.ReadI64()
		return reflect.ValueOf(v).Convert(t), err
	case codec.KindF32:
		v, err := d.ReadF32()
		return reflect.ValueOf(v), err
	case codec.KindF64:
		v, err := d.ReadF64()
		return reflect.ValueOf(v), err
	case codec.KindString:
		v, err := d.ReadString()
		return reflect.ValueOf(v), err
	default:
		return reflect.Value{}, fmt.Errorf("bridge: decoding %s is not supported outside a typed stub", desc)
	}
}

func encodeReflectValue(e *codec.Encoder, desc codec.TypeDesc, v reflect.Value) error {
	switch desc.Kind {
	case codec.KindVoid:
		return nil
	case codec.KindBool:
		e.WriteBool(v.Bool())
	case codec.KindU8:
		e.WriteU8(uint8(v.Uint()))
	case codec.KindU16:
		e.WriteU16(uint16(v.Uint()))
	case codec.KindU32:
		e.WriteU32(uint32(v.Uint()))
	case codec.KindU64:
		e.WriteU64(v.Uint())
	case codec.KindI8:
		e.WriteI8(int8(v.Int()))
	case codec.KindI16:
		e.WriteI16(int16(v.Int()))
	case codec.KindI32:
		e.WriteI32(int32(v.Int()))
	case codec.KindI64:
		e.WriteI64(v.Int())
	case codec.KindF32:
		e.WriteF32(float32(v.Float()))
	case codec.KindF64:
		e.WriteF64(v.Float())
	case codec.KindString:
		e.WriteString(v.String())
	default:
		return fmt.Errorf("bridge: encoding %s is not supported outside a typed stub", desc)
	}
	return nil
}
