// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import (
	"errors"
	"fmt"
	"time"
)

// Parser errors
var (
	// ErrFrameSync reports a byte that cannot belong to an Improv frame at
	// its buffer position. Usually serial console noise between frames.
	ErrFrameSync = errors.New("improv: byte outside frame sync")

	// ErrChecksum reports a completed frame whose checksum byte does not
	// match the modular-256 sum of the preceding bytes.
	ErrChecksum = errors.New("improv: checksum mismatch")
)

// Parser is an incremental Improv-Serial frame parser. It consumes one byte
// at a time and holds at most one partially received frame; the internal
// buffer never exceeds MaxFrameSize bytes.
type Parser struct {
	buffer []byte
}

// NewParser creates a parser with the full frame capacity reserved.
func NewParser() *Parser {
	return &Parser{buffer: make([]byte, 0, MaxFrameSize)}
}

// Reset discards any partially received frame. Callers apply the inter-frame
// quiescence rule by resetting when InterFrameResetMillis elapse without an
// accepted byte.
func (p *Parser) Reset() {
	p.buffer = p.buffer[:0]
}

// Buffered returns the number of bytes held for the frame in flight.
func (p *Parser) Buffered() int {
	return len(p.buffer)
}

// Consume processes a single byte.
//
// It returns (nil, nil) while a frame is plausibly in flight, a completed
// frame once its checksum verifies, ErrFrameSync when the byte cannot start
// or continue a frame, and ErrChecksum on a checksum mismatch. The buffer is
// cleared on every non-nil return, frame or error.
func (p *Parser) Consume(b byte) (*Frame, error) {
	at := len(p.buffer)
	p.buffer = append(p.buffer, b)

	switch {
	case at < len(Magic):
		if b != Magic[at] {
			p.Reset()
			return nil, ErrFrameSync
		}
		return nil, nil

	case at == 6:
		if b != Version {
			p.Reset()
			return nil, fmt.Errorf("%w: unsupported version 0x%02X", ErrFrameSync, b)
		}
		return nil, nil

	case at == 7, at == 8:
		// Type and length are accepted unconditionally.
		return nil, nil
	}

	dataLen := int(p.buffer[8])
	if at < HeaderSize+dataLen {
		return nil, nil
	}

	// Checksum byte just arrived.
	if Checksum(p.buffer[:at]) != b {
		p.Reset()
		return nil, ErrChecksum
	}

	frame := &Frame{
		Type:      FrameType(p.buffer[7]),
		Payload:   append([]byte(nil), p.buffer[HeaderSize:HeaderSize+dataLen]...),
		Timestamp: time.Now(),
	}
	p.Reset()
	return frame, nil
}
