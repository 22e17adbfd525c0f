// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import (
	"fmt"
	"time"
)

// Frame represents a decoded Improv-Serial frame.
type Frame struct {
	Type      FrameType
	Payload   []byte
	Timestamp time.Time
}

// EncodeFrame serializes a frame to wire format: magic, version, type,
// length, payload and trailing checksum. The frame terminator byte is not
// included; transports append it when writing.
func EncodeFrame(frameType FrameType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	data := make([]byte, 0, HeaderSize+len(payload)+1)
	data = append(data, Magic[:]...)
	data = append(data, Version, byte(frameType), byte(len(payload)))
	data = append(data, payload...)
	data = append(data, Checksum(data))

	return data, nil
}

// MustEncodeFrame encodes a frame and panics on error. Intended for payloads
// with statically known sizes (state and error frames).
func MustEncodeFrame(frameType FrameType, payload []byte) []byte {
	data, err := EncodeFrame(frameType, payload)
	if err != nil {
		panic(fmt.Sprintf("improv: encode error: %v", err))
	}
	return data
}

// EncodeCurrentState builds a current_state frame.
func EncodeCurrentState(state State) []byte {
	return MustEncodeFrame(TypeCurrentState, []byte{byte(state)})
}

// EncodeErrorState builds an error_state frame.
func EncodeErrorState(errState Error) []byte {
	return MustEncodeFrame(TypeErrorState, []byte{byte(errState)})
}
