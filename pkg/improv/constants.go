// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

// Package improv provides a Go implementation of the Improv-Serial
// wireless provisioning protocol.
//
// Improv-Serial configures wireless credentials on a microcontroller over a
// UART. Frames carry a 6-byte magic header, a protocol version, a type byte,
// a length-prefixed payload and a modular-256 checksum. This package provides
// frame encoding/decoding, RPC payload handling and the device-side
// provisioning responder.
package improv

// Protocol framing
const (
	// Version is the Improv-Serial protocol version this package speaks.
	Version = 0x01

	// HeaderSize covers magic (6), version, type and length bytes.
	HeaderSize = 9

	// MaxPayloadSize is bounded by the single-byte length field.
	MaxPayloadSize = 255

	// MaxFrameSize is header + payload + checksum.
	MaxFrameSize = HeaderSize + MaxPayloadSize + 1

	// FrameTerminator is appended after every device-emitted frame for
	// line-buffered host readers. It is not part of the checksum domain.
	FrameTerminator = 0x0A
)

// Magic is the fixed frame preamble.
var Magic = [6]byte{'I', 'M', 'P', 'R', 'O', 'V'}

// InterFrameResetMillis is the quiescence interval after which a partial
// receive buffer is discarded to resynchronize the parser.
const InterFrameResetMillis = 50

// FrameType identifies the payload carried by a frame.
type FrameType byte

// Frame type values
const (
	TypeCurrentState FrameType = 0x01 // device → host, 1 state byte
	TypeErrorState   FrameType = 0x02 // device → host, 1 error byte
	TypeRPC          FrameType = 0x03 // host → device, RPC command
	TypeRPCResponse  FrameType = 0x04 // device → host, RPC response
)

// State represents the provisioning state advertised to the host.
type State byte

// Provisioning state values
const (
	StateAuthorized   State = 0x02 // ready to accept credentials
	StateProvisioning State = 0x03 // association in progress
	StateProvisioned  State = 0x04 // association succeeded at least once
)

// Error represents an error condition reported to the host.
type Error byte

// Error state values (other values reserved by the protocol)
const (
	ErrorNone            Error = 0x00
	ErrorInvalidRPC      Error = 0x01
	ErrorUnknownRPC      Error = 0x02
	ErrorUnableToConnect Error = 0x03
	ErrorUnknown         Error = 0xFF
)

// Command identifies an RPC command or the response answering it.
type Command byte

// RPC command ids
const (
	CmdWiFiSettings    Command = 0x01 // body: ssid string, password string
	CmdGetCurrentState Command = 0x02 // empty body
	CmdGetDeviceInfo   Command = 0x03 // empty body
)
