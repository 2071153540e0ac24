package main

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeEnvelope renders an Envelope as JSON text, the default wire format.
func encodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// encodeBinaryDelta renders a state_delta payload as msgpack, an alternate
// compact binary encoding a connection may opt into (spec §6.1 leaves the
// exact wire format to the implementer beyond the field-precision rules).
// Framed with the 0xFF marker byte the teacher's client.go SendBinary uses
// to distinguish binary from text frames on the same send channel.
func encodeBinaryDelta(msg StateDeltaMsg) ([]byte, error) {
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, err
	}
	framed := make([]byte, len(body)+1)
	framed[0] = 0xFF
	copy(framed[1:], body)
	return framed, nil
}

// decodeBinaryDelta reverses encodeBinaryDelta, for tests and any future
// server-side replay tooling.
func decodeBinaryDelta(framed []byte) (StateDeltaMsg, error) {
	var msg StateDeltaMsg
	if len(framed) == 0 || framed[0] != 0xFF {
		return msg, msgpack.Unmarshal(framed, &msg)
	}
	err := msgpack.Unmarshal(framed[1:], &msg)
	return msg, err
}
