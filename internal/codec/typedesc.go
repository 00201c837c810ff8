package codec

import "fmt"

// TypeKind enumerates the shapes a TypeDesc can take. Function stubs encode
// one of these per argument and per return value so the JS-side dispatcher
// knows how to marshal a value it only sees as an untyped heap reference.
type TypeKind byte

const (
	KindVoid TypeKind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindString
	KindHeapValue
	KindCallback
	KindOption
	KindSequence
)

// TypeDesc is the recursive type-descriptor tree used to describe a
// function stub's argument and return shapes across the wire. Option and
// Sequence carry a single Elem; every other kind is a leaf.
type TypeDesc struct {
	Kind TypeKind
	Elem *TypeDesc
}

func Leaf(k TypeKind) TypeDesc { return TypeDesc{Kind: k} }

func OptionOf(elem TypeDesc) TypeDesc   { return TypeDesc{Kind: KindOption, Elem: &elem} }
func SequenceOf(elem TypeDesc) TypeDesc { return TypeDesc{Kind: KindSequence, Elem: &elem} }

// Encode writes the descriptor as a tag byte followed, for Option and
// Sequence, by the recursively encoded element descriptor.
func (t TypeDesc) Encode(e *Encoder) {
	e.WriteU8(byte(t.Kind))
	if t.Kind == KindOption || t.Kind == KindSequence {
		t.Elem.Encode(e)
	}
}

// DecodeTypeDesc reads one type-descriptor tree, recursing into the
// element descriptor for Option and Sequence.
func DecodeTypeDesc(d *Decoder) (TypeDesc, error) {
	tag, err := d.ReadU8()
	if err != nil {
		return TypeDesc{}, err
	}
	kind := TypeKind(tag)
	if kind > KindSequence {
		return TypeDesc{}, &InvalidTagError{Context: "type descriptor", Tag: tag}
	}
	if kind == KindOption || kind == KindSequence {
		elem, err := DecodeTypeDesc(d)
		if err != nil {
			return TypeDesc{}, err
		}
		return TypeDesc{Kind: kind, Elem: &elem}, nil
	}
	return TypeDesc{Kind: kind}, nil
}

func (t TypeDesc) String() string {
	switch t.Kind {
	case KindOption:
		return fmt.Sprintf("option<%s>", t.Elem)
	case KindSequence:
		return fmt.Sprintf("sequence<%s>", t.Elem)
	default:
		return kindNames[t.Kind]
	}
}

var kindNames = map[TypeKind]string{
	KindVoid:      "void",
	KindBool:      "bool",
	KindU8:        "u8",
	KindU16:       "u16",
	KindU32:       "u32",
	KindU64:       "u64",
	KindI8:        "i8",
	KindI16:       "i16",
	KindI32:       "i32",
	KindI64:       "i64",
	KindF32:       "f32",
	KindF64:       "f64",
	KindString:    "string",
	KindHeapValue: "heap_value",
	KindCallback:  "callback",
}
