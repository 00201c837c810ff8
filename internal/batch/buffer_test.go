package batch

import (
	"testing"

	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

func TestBuffer_DropsPrecedeOps(t *testing.T) {
	b := New()
	b.QueueOp(Operation{Tag: core.OpCall, Payload: []byte{0xAA}})
	b.QueueDrop(core.HeapId(200))
	b.QueueOp(Operation{Tag: core.OpCall, Payload: []byte{0xBB}})

	frame := b.Flush()
	d := codec.NewDecoder(frame)

	frameType, err := d.ReadU8()
	if err != nil || core.MessageType(frameType) != core.MessageEvaluate {
		t.Fatalf("frame type: %v %v", frameType, err)
	}
	count, err := d.ReadU32()
	if err != nil || count != 3 {
		t.Fatalf("count: %v %v", count, err)
	}

	op1, err := DecodeOperation(d)
	if err != nil {
		t.Fatalf("decode op1: %v", err)
	}
	if op1.Tag != core.OpDropHeap {
		t.Fatalf("expected first op to be a drop, got %s", op1.Tag)
	}
	idDec := codec.NewDecoder(op1.Payload)
	id, _ := idDec.ReadHeapId()
	if id != 200 {
		t.Fatalf("expected dropped id 200, got %d", id)
	}

	op2, err := DecodeOperation(d)
	if err != nil {
		t.Fatalf("decode op2: %v", err)
	}
	if op2.Tag != core.OpCall || len(op2.Payload) != 1 || op2.Payload[0] != 0xAA {
		t.Fatalf("expected second op to be the first queued Call with payload 0xAA, got %s %v", op2.Tag, op2.Payload)
	}

	op3, err := DecodeOperation(d)
	if err != nil {
		t.Fatalf("decode op3: %v", err)
	}
	if op3.Tag != core.OpCall || len(op3.Payload) != 1 || op3.Payload[0] != 0xBB {
		t.Fatalf("expected third op to be the second queued Call with payload 0xBB, got %s %v", op3.Tag, op3.Payload)
	}

	if err := d.AssertEmpty(); err != nil {
		t.Fatalf("trailing data: %v", err)
	}
}

func TestBuffer_FlushClearsPending(t *testing.T) {
	b := New()
	b.QueueDrop(core.HeapId(5))
	b.QueueOp(Operation{Tag: core.OpCall})
	if b.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", b.Pending())
	}
	b.Flush()
	if b.Pending() != 0 {
		t.Fatalf("expected 0 pending after flush, got %d", b.Pending())
	}
}

func TestBuffer_EmptyFlushProducesValidFrame(t *testing.T) {
	b := New()
	frame := b.Flush()
	d := codec.NewDecoder(frame)
	if _, err := d.ReadU8(); err != nil {
		t.Fatalf("frame type: %v", err)
	}
	count, err := d.ReadU32()
	if err != nil || count != 0 {
		t.Fatalf("expected 0 ops, got %d (%v)", count, err)
	}
	if err := d.AssertEmpty(); err != nil {
		t.Fatalf("trailing data: %v", err)
	}
}
