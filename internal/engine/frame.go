package engine

import (
	"github.com/nativebridge/ipc/internal/codec"
	"github.com/nativebridge/ipc/internal/core"
)

// respondStatus is the Respond frame's one extra tag byte: whether the
// call completed normally or the callee surfaced an application error.
type respondStatus byte

const (
	respondOK  respondStatus = 0
	respondErr respondStatus = 1
)

// encodeRespondOK builds a Respond frame carrying a successful result.
func encodeRespondOK(payload []byte) []byte {
	e := codec.NewEncoder()
	e.WriteU8(byte(core.MessageRespond))
	e.WriteU8(byte(respondOK))
	e.WriteBytes(payload)
	return e.Bytes()
}

// encodeRespondErr builds a Respond frame carrying an application error
// surfaced by a callback, export, or JS-side throw.
func encodeRespondErr(message string) []byte {
	e := codec.NewEncoder()
	e.WriteU8(byte(core.MessageRespond))
	e.WriteU8(byte(respondErr))
	e.WriteString(message)
	return e.Bytes()
}

// decodeRespond splits a Respond frame into its payload, or a *core.CallError
// if the remote side reported a failure.
func decodeRespond(frame []byte) ([]byte, error) {
	d := codec.NewDecoder(frame)
	mt, err := d.ReadU8()
	if err != nil {
		return nil, core.NewProtocolError("decodeRespond", err)
	}
	if core.MessageType(mt) != core.MessageRespond {
		return nil, core.NewProtocolError("decodeRespond", errNotRespond(mt))
	}
	status, err := d.ReadU8()
	if err != nil {
		return nil, core.NewProtocolError("decodeRespond", err)
	}
	switch respondStatus(status) {
	case respondOK:
		payload, err := d.ReadBytes()
		if err != nil {
			return nil, core.NewProtocolError("decodeRespond", err)
		}
		return payload, nil
	case respondErr:
		msg, err := d.ReadString()
		if err != nil {
			return nil, core.NewProtocolError("decodeRespond", err)
		}
		return nil, &core.CallError{Message: msg}
	default:
		return nil, core.NewProtocolError("decodeRespond", errInvalidStatus(status))
	}
}

type errInvalidStatus byte

func (e errInvalidStatus) Error() string { return "invalid respond status byte" }

type errNotRespond byte

func (e errNotRespond) Error() string { return "frame is not a Respond frame" }

type errEmptyFrame struct{}

func (errEmptyFrame) Error() string { return "empty frame" }

// peekMessageType reads frame's leading discriminant without consuming
// anything else, for routing an inbound frame before fully decoding it.
func peekMessageType(frame []byte) (core.MessageType, error) {
	if len(frame) < 1 {
		return 0, core.NewProtocolError("peekMessageType", errEmptyFrame{})
	}
	return core.MessageType(frame[0]), nil
}
