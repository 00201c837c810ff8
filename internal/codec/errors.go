package codec

import "fmt"

// ShortReadError means the decoder ran out of bytes before it could satisfy
// a read; the frame was truncated in transit or the two sides disagree on
// a type's shape.
type ShortReadError struct {
	Wanted    int
	Available int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("codec: short read: wanted %d bytes, %d available", e.Wanted, e.Available)
}

// InvalidTagError means a tag byte (bool, option, or a type-descriptor
// variant) carried a value outside its defined range.
type InvalidTagError struct {
	Context string
	Tag     byte
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("codec: invalid %s tag: 0x%02x", e.Context, e.Tag)
}

// InvalidUTF8Error means a string's byte range was not valid UTF-8.
type InvalidUTF8Error struct{}

func (e *InvalidUTF8Error) Error() string { return "codec: invalid utf-8 in string" }

// TrailingDataError means a top-level decode left unconsumed bytes, which
// the protocol treats as fatal: either side encoded more than the other
// expects to read, or the two sides have desynchronized.
type TrailingDataError struct {
	Remaining int
}

func (e *TrailingDataError) Error() string {
	return fmt.Sprintf("codec: %d trailing bytes after decode", e.Remaining)
}
