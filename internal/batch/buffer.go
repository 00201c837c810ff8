// Package batch implements the outgoing batch buffer: operations queued by
// the call engine accumulate here and are flushed together into a single
// Evaluate frame, rather than round-tripping the transport once per
// operation. Any operation that expects a return value forces a flush;
// fire-and-forget operations (DropHeap) can ride along with the next real
// call instead of paying their own round trip.
package batch

import (
	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

// Operation is one already-encoded entry in the batch: a tag plus its
// tag-specific payload, written verbatim into the frame at flush time.
type Operation struct {
	Tag     core.OpTag
	Payload []byte
}

// Encode writes op's tag and length-prefixed payload. Exported so callers
// building a frame by hand (tests, the in-process dispatcher shim) can
// encode a single operation without reaching into this package's Flush.
func (op Operation) Encode(e *codec.Encoder) {
	e.WriteU8(byte(op.Tag))
	e.WriteBytes(op.Payload)
}

// DecodeOperation reads one tag-prefixed, length-prefixed operation, the
// inverse of Operation.Encode. Decoding this way lets a frame reader walk
// the whole operation sequence without understanding any tag's internal
// payload shape.
func DecodeOperation(d *codec.Decoder) (Operation, error) {
	tag, err := d.ReadU8()
	if err != nil {
		return Operation{}, err
	}
	payload, err := d.ReadBytes()
	if err != nil {
		return Operation{}, err
	}
	return Operation{Tag: core.OpTag(tag), Payload: payload}, nil
}

// Buffer accumulates queued operations between flushes. Queued drops are
// tracked separately from other operations and always emitted first, so a
// HeapId dropped and then immediately reused within the same batch can
// never race against its own reclamation on the JS side.
type Buffer struct {
	drops []core.HeapId
	ops   []Operation
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// QueueDrop enqueues a DropHeap for id. It does not force a flush.
func (b *Buffer) QueueDrop(id core.HeapId) {
	b.drops = append(b.drops, id)
}

// QueueOp enqueues an arbitrary operation. Callers that need a return
// value (Call, CloneHeap) are responsible for flushing immediately after;
// the buffer itself has no notion of which tags are "return-expecting".
func (b *Buffer) QueueOp(op Operation) {
	b.ops = append(b.ops, op)
}

// Pending reports how many operations (drops plus other ops) are queued.
func (b *Buffer) Pending() int { return len(b.drops) + len(b.ops) }

// Flush encodes every queued operation into a single Evaluate frame —
// drops first, then the remaining ops in FIFO order — and clears the
// buffer. Flushing an empty buffer still produces a valid, empty frame;
// callers should check Pending() first if they want to avoid that.
func (b *Buffer) Flush() []byte {
	e := codec.NewEncoder()
	e.WriteU8(byte(core.MessageEvaluate))
	e.WriteU32(uint32(len(b.drops) + len(b.ops)))

	for _, id := range b.drops {
		drop := codec.NewEncoder()
		drop.WriteHeapId(id)
		Operation{Tag: core.OpDropHeap, Payload: drop.Bytes()}.Encode(e)
	}
	for _, op := range b.ops {
		op.Encode(e)
	}

	b.drops = b.drops[:0]
	b.ops = b.ops[:0]
	return e.Bytes()
}

// EncodeDropHeapPayload is a small helper so callers outside this package
// can build the payload for a manually-constructed DropHeap Operation
// without reaching into codec themselves.
func EncodeDropHeapPayload(id core.HeapId) []byte {
	e := codec.NewEncoder()
	e.WriteHeapId(id)
	return e.Bytes()
}
