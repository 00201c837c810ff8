package codec

import (
	"testing"

	"github.com/nativebridge/ipc/internal/core"
)

func TestCodec_PrimitivesRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteBool(true)
	e.WriteBool(false)
	e.WriteU8(0xAB)
	e.WriteI8(-7)
	e.WriteU16(0xBEEF)
	e.WriteI16(-1234)
	e.WriteU32(0xDEADBEEF)
	e.WriteI32(-123456)
	e.WriteU64(0x1122334455667788)
	e.WriteI64(-9223372036854775000)
	e.WriteF32(3.14)
	e.WriteF64(2.718281828459045)
	e.WriteString("hello, bridge")

	d := NewDecoder(e.Bytes())
	if v, err := d.ReadBool(); err != nil || v != true {
		t.Fatalf("bool#1: %v %v", v, err)
	}
	if v, err := d.ReadBool(); err != nil || v != false {
		t.Fatalf("bool#2: %v %v", v, err)
	}
	if v, err := d.ReadU8(); err != nil || v != 0xAB {
		t.Fatalf("u8: %v %v", v, err)
	}
	if v, err := d.ReadI8(); err != nil || v != -7 {
		t.Fatalf("i8: %v %v", v, err)
	}
	if v, err := d.ReadU16(); err != nil || v != 0xBEEF {
		t.Fatalf("u16: %v %v", v, err)
	}
	if v, err := d.ReadI16(); err != nil || v != -1234 {
		t.Fatalf("i16: %v %v", v, err)
	}
	if v, err := d.ReadU32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("u32: %v %v", v, err)
	}
	if v, err := d.ReadI32(); err != nil || v != -123456 {
		t.Fatalf("i32: %v %v", v, err)
	}
	if v, err := d.ReadU64(); err != nil || v != 0x1122334455667788 {
		t.Fatalf("u64: %v %v", v, err)
	}
	if v, err := d.ReadI64(); err != nil || v != -9223372036854775000 {
		t.Fatalf("i64: %v %v", v, err)
	}
	if v, err := d.ReadF32(); err != nil || v != 3.14 {
		t.Fatalf("f32: %v %v", v, err)
	}
	if v, err := d.ReadF64(); err != nil || v != 2.718281828459045 {
		t.Fatalf("f64: %v %v", v, err)
	}
	if v, err := d.ReadString(); err != nil || v != "hello, bridge" {
		t.Fatalf("string: %q %v", v, err)
	}
	if err := d.AssertEmpty(); err != nil {
		t.Fatalf("expected no trailing data, got %v", err)
	}
}

func TestCodec_OptionRoundTrip(t *testing.T) {
	e := NewEncoder()
	var none *string
	some := "present"
	WriteOption(e, none, (*Encoder).WriteString)
	WriteOption(e, &some, (*Encoder).WriteString)

	d := NewDecoder(e.Bytes())
	v1, err := ReadOption(d, (*Decoder).ReadString)
	if err != nil || v1 != nil {
		t.Fatalf("expected none, got %v err=%v", v1, err)
	}
	v2, err := ReadOption(d, (*Decoder).ReadString)
	if err != nil || v2 == nil || *v2 != "present" {
		t.Fatalf("expected some(present), got %v err=%v", v2, err)
	}
}

func TestCodec_SequenceRoundTrip(t *testing.T) {
	e := NewEncoder()
	WriteSequence(e, []uint32{1, 2, 3, 4, 5}, (*Encoder).WriteU32)

	d := NewDecoder(e.Bytes())
	got, err := ReadSequence(d, (*Decoder).ReadU32)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []uint32{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestCodec_SequenceEmpty(t *testing.T) {
	e := NewEncoder()
	WriteSequence(e, []uint32(nil), (*Encoder).WriteU32)
	d := NewDecoder(e.Bytes())
	got, err := ReadSequence(d, (*Decoder).ReadU32)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestCodec_HeapIdAndCallbackKeyRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteHeapId(core.HeapId(200))
	key := core.CallbackKey{Index: 42, Generation: 7}
	e.WriteCallbackKey(key)

	d := NewDecoder(e.Bytes())
	id, err := d.ReadHeapId()
	if err != nil || id != 200 {
		t.Fatalf("heap id: %v %v", id, err)
	}
	gotKey, err := d.ReadCallbackKey()
	if err != nil || gotKey != key {
		t.Fatalf("callback key: %+v %v", gotKey, err)
	}
}

func TestCodec_ShortRead(t *testing.T) {
	d := NewDecoder([]byte{0x01, 0x02})
	if _, err := d.ReadU32(); err == nil {
		t.Fatal("expected short read error")
	} else if _, ok := err.(*ShortReadError); !ok {
		t.Fatalf("expected *ShortReadError, got %T", err)
	}
}

func TestCodec_InvalidBoolTag(t *testing.T) {
	d := NewDecoder([]byte{0x02})
	if _, err := d.ReadBool(); err == nil {
		t.Fatal("expected invalid tag error")
	} else if _, ok := err.(*InvalidTagError); !ok {
		t.Fatalf("expected *InvalidTagError, got %T", err)
	}
}

func TestCodec_InvalidUTF8(t *testing.T) {
	e := NewEncoder()
	e.WriteU32(2)
	e.Extend([]byte{0xFF, 0xFE})
	d := NewDecoder(e.Bytes())
	if _, err := d.ReadString(); err == nil {
		t.Fatal("expected invalid utf-8 error")
	} else if _, ok := err.(*InvalidUTF8Error); !ok {
		t.Fatalf("expected *InvalidUTF8Error, got %T", err)
	}
}

func TestCodec_TrailingData(t *testing.T) {
	e := NewEncoder()
	e.WriteU8(1)
	e.WriteU8(2)
	d := NewDecoder(e.Bytes())
	if _, err := d.ReadU8(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := d.AssertEmpty(); err == nil {
		t.Fatal("expected trailing data error")
	} else if _, ok := err.(*TrailingDataError); !ok {
		t.Fatalf("expected *TrailingDataError, got %T", err)
	}
}

func TestCodec_TypeDescRoundTrip(t *testing.T) {
	descs := []TypeDesc{
		Leaf(KindVoid),
		Leaf(KindBool),
		Leaf(KindString),
		Leaf(KindHeapValue),
		Leaf(KindCallback),
		OptionOf(Leaf(KindI32)),
		SequenceOf(Leaf(KindString)),
		SequenceOf(OptionOf(Leaf(KindU64))),
	}
	e := NewEncoder()
	for _, desc := range descs {
		desc.Encode(e)
	}
	d := NewDecoder(e.Bytes())
	for _, want := range descs {
		got, err := DecodeTypeDesc(d)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.String() != want.String() {
			t.Fatalf("got %s want %s", got, want)
		}
	}
	if err := d.AssertEmpty(); err != nil {
		t.Fatalf("expected no trailing data, got %v", err)
	}
}
