// Package codec implements the bridge's little-endian, length-neutral
// binary frame format: a stateful cursor over a byte buffer, encoding
// appending and decoding consuming, mirroring the BinaryEncode/BinaryDecode
// traits of the protocol this module is modeled on.
package codec

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/nativebridge/ipc/internal/core"
)

// Encoder appends values to a growing byte buffer in wire order.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a pre-sized backing buffer.
func NewEncoder() *Encoder { return &Encoder{buf: make([]byte, 0, 64)} }

// Bytes returns the accumulated buffer. The caller must not retain it
// across further Encoder calls, which may reallocate.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len reports how many bytes have been written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Extend appends raw bytes verbatim (used to splice an already-encoded
// sub-frame, e.g. a batched operation, into the outer buffer).
func (e *Encoder) Extend(b []byte) { e.buf = append(e.buf, b...) }

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) WriteU8(v uint8)   { e.buf = append(e.buf, v) }
func (e *Encoder) WriteI8(v int8)    { e.WriteU8(uint8(v)) }

func (e *Encoder) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}
func (e *Encoder) WriteI16(v int16) { e.WriteU16(uint16(v)) }

func (e *Encoder) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}
func (e *Encoder) WriteI32(v int32) { e.WriteU32(uint32(v)) }

func (e *Encoder) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}
func (e *Encoder) WriteI64(v int64) { e.WriteU64(uint64(v)) }

func (e *Encoder) WriteF32(v float32) { e.WriteU32(math.Float32bits(v)) }
func (e *Encoder) WriteF64(v float64) { e.WriteU64(math.Float64bits(v)) }

func (e *Encoder) WriteString(s string) {
	e.WriteU32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteBytes writes a length-prefixed raw byte blob, the same shape as
// WriteString but without the UTF-8 constraint — used for opaque,
// already-encoded sub-payloads like a batched operation's argument list.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteU32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) WriteHeapId(id core.HeapId)         { e.WriteU64(uint64(id)) }
func (e *Encoder) WriteCallbackKey(k core.CallbackKey) { e.WriteU64(k.FFI()) }

// WriteOption writes the option<T> tag, then the payload via encode if some.
func WriteOption[T any](e *Encoder, v *T, encode func(*Encoder, T)) {
	if v == nil {
		e.WriteU8(0)
		return
	}
	e.WriteU8(1)
	encode(e, *v)
}

// WriteSequence writes sequence<T>'s count prefix then each element.
func WriteSequence[T any](e *Encoder, items []T, encode func(*Encoder, T)) {
	e.WriteU32(uint32(len(items)))
	for _, it := range items {
		encode(e, it)
	}
}

// Decoder consumes values from a byte buffer in wire order.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential consumption.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// Remaining returns how many bytes are left unconsumed.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// IsEmpty reports whether the decoder has consumed the whole buffer.
func (d *Decoder) IsEmpty() bool { return d.Remaining() == 0 }

// AssertEmpty implements the top-level-frame invariant: decoders MUST
// assert no trailing bytes remain.
func (d *Decoder) AssertEmpty() error {
	if !d.IsEmpty() {
		return &TrailingDataError{Remaining: d.Remaining()}
	}
	return nil
}

func (d *Decoder) need(n int) error {
	if d.Remaining() < n {
		return &ShortReadError{Wanted: n, Available: d.Remaining()}
	}
	return nil
}

func (d *Decoder) take(n int) []byte {
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Decoder) ReadBool() (bool, error) {
	if err := d.need(1); err != nil {
		return false, err
	}
	v := d.take(1)[0]
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &InvalidTagError{Context: "bool", Tag: v}
	}
}

func (d *Decoder) ReadU8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	return d.take(1)[0], nil
}
func (d *Decoder) ReadI8() (int8, error) {
	v, err := d.ReadU8()
	return int8(v), err
}

func (d *Decoder) ReadU16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(d.take(2)), nil
}
func (d *Decoder) ReadI16() (int16, error) {
	v, err := d.ReadU16()
	return int16(v), err
}

func (d *Decoder) ReadU32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.take(4)), nil
}
func (d *Decoder) ReadI32() (int32, error) {
	v, err := d.ReadU32()
	return int32(v), err
}

func (d *Decoder) ReadU64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(d.take(8)), nil
}
func (d *Decoder) ReadI64() (int64, error) {
	v, err := d.ReadU64()
	return int64(v), err
}

func (d *Decoder) ReadF32() (float32, error) {
	v, err := d.ReadU32()
	return math.Float32frombits(v), err
}
func (d *Decoder) ReadF64() (float64, error) {
	v, err := d.ReadU64()
	return math.Float64frombits(v), err
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadU32()
	if err != nil {
		return "", err
	}
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	b := d.take(int(n))
	if !isValidUTF8(b) {
		return "", &InvalidUTF8Error{}
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed raw byte blob written by WriteBytes.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadU32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	return d.take(int(n)), nil
}

func (d *Decoder) ReadHeapId() (core.HeapId, error) {
	v, err := d.ReadU64()
	return core.HeapId(v), err
}

func (d *Decoder) ReadCallbackKey() (core.CallbackKey, error) {
	v, err := d.ReadU64()
	if err != nil {
		return core.CallbackKey{}, err
	}
	return core.CallbackKeyFromFFI(v), nil
}

// ReadOption reads the option<T> tag and, if some, T via decode.
func ReadOption[T any](d *Decoder, decode func(*Decoder) (T, error)) (*T, error) {
	tag, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := decode(d)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, &InvalidTagError{Context: "option", Tag: tag}
	}
}

// ReadSequence reads sequence<T>'s count prefix then each element.
func ReadSequence[T any](d *Decoder, decode func(*Decoder) (T, error)) ([]T, error) {
	n, err := d.ReadU32()
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := decode(d)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

func isValidUTF8(b []byte) bool { return utf8.Valid(b) }
