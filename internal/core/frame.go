package core

// MessageType is the top-level frame discriminant: a frame is either an
// Evaluate (work to perform) or a Respond (the answer to one outstanding
// call).
type MessageType byte

const (
	MessageEvaluate MessageType = 0
	MessageRespond  MessageType = 1
)

// OpTag identifies an Operation within a frame's operation sequence.
// Tags 0x00-0x7F are native->JS (Evaluate direction); 0x80-0xFF are
// JS->native (also carried inside an Evaluate frame, since JS-initiated
// calls are themselves "work to perform" from native's perspective once
// decoded).
type OpTag byte

const (
	OpCall         OpTag = 0x00
	OpDropHeap     OpTag = 0x01
	OpCloneHeap    OpTag = 0x02
	OpCallBorrowed OpTag = 0x03
	// OpTypeOf asks JS for a heap value's type tag (one of the TypeTag
	// constants below) without invoking anything — the JsValue predicate
	// methods (IsUndefined, IsObject, ...) are built on this.
	OpTypeOf OpTag = 0x04
	// OpMakeCallback asks JS to materialize a callable heap value wrapping
	// a native CallbackKey, returning its HeapId — used by
	// Bridge.RegisterCallback to hand a plain Go function to JS code as a
	// first-class function value, independent of any particular call's
	// argument list.
	OpMakeCallback OpTag = 0x05

	OpCallCallback OpTag = 0x80
	OpCallExport   OpTag = 0x81
	OpDropNative   OpTag = 0x82
)

// TypeTag is the result of an OpTypeOf query, mirroring the predicates
// js_helpers.rs exposes over a JsValue in the original implementation.
type TypeTag uint8

const (
	TypeUndefined TypeTag = iota
	TypeNull
	TypeBool
	TypeNumber
	TypeString
	TypeObject
	TypeFunction
)

// String renders a tag for diagnostics/log lines.
func (t OpTag) String() string {
	switch t {
	case OpCall:
		return "Call"
	case OpDropHeap:
		return "DropHeap"
	case OpCloneHeap:
		return "CloneHeap"
	case OpCallBorrowed:
		return "CallBorrowed"
	case OpTypeOf:
		return "TypeOf"
	case OpMakeCallback:
		return "MakeCallback"
	case OpCallCallback:
		return "CallCallback"
	case OpCallExport:
		return "CallExport"
	case OpDropNative:
		return "DropNative"
	default:
		return "Unknown"
	}
}
