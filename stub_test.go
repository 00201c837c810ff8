package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/nativebridge/ipc/internal/codec"
)

func TestNewFunctionStub_CallsThroughToTarget(t *testing.T) {
	b, peer := newTestBridge(t)

	targetID := peer.registerFunc(func(args []byte) ([]byte, error) {
		d := codec.NewDecoder(args)
		a, _ := d.ReadI32()
		c, _ := d.ReadI32()
		out := codec.NewEncoder()
		out.WriteI32(a + c)
		return out.Bytes(), nil
	})
	target := newJsValue(b, targetID)
	defer target.Close()

	var add func(int32, int32) (int32, error)
	if err := b.NewFunctionStub(context.Background(), target, &add); err != nil {
		t.Fatalf("NewFunctionStub: %v", err)
	}

	sum, err := add(5, 7)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum != 12 {
		t.Fatalf("got %d", sum)
	}
}

func TestNewFunctionStub_ApplicationErrorSurfacesOnErrorReturn(t *testing.T) {
	b, peer := newTestBridge(t)
	targetID := peer.registerFunc(func([]byte) ([]byte, error) {
		return nil, errors.New("remote failure")
	})
	target := newJsValue(b, targetID)
	defer target.Close()

	var call func() (int32, error)
	if err := b.NewFunctionStub(context.Background(), target, &call); err != nil {
		t.Fatalf("NewFunctionStub: %v", err)
	}
	if _, err := call(); err == nil || err.Error() != "remote failure" {
		t.Fatalf("got %v", err)
	}
}

func TestNewFunctionStub_RejectsNonFunctionPointer(t *testing.T) {
	b, peer := newTestBridge(t)
	targetID := peer.registerFunc(func([]byte) ([]byte, error) { return nil, nil })
	target := newJsValue(b, targetID)
	defer target.Close()

	var notAFunc int
	if err := b.NewFunctionStub(context.Background(), target, &notAFunc); err == nil {
		t.Fatal("expected an error for a non-function outFuncPtr")
	}
}
