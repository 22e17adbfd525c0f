// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import (
	"errors"
	"fmt"
)

// RPC payload layout: command id (1), inner length (1), then a
// command-specific body of length-prefixed UTF-8 strings. Responses use the
// same shape with the id of the command being answered.

// ErrUnknownCommand reports a well-formed RPC payload carrying an
// unrecognized command id.
var ErrUnknownCommand = errors.New("improv: unknown RPC command")

// RPCCommand is a decoded RPC command payload.
type RPCCommand struct {
	Command  Command
	SSID     string // wifi_settings only
	Password string // wifi_settings only
}

// ParseRPC decodes an RPC command payload.
//
// Malformed payloads (truncated, inner length disagreeing with the body)
// return an error; an unrecognized command id returns ErrUnknownCommand with
// the id preserved in the result. The body of get_current_state and
// get_device_info is ignored.
func ParseRPC(payload []byte) (*RPCCommand, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("RPC payload too short: %d bytes", len(payload))
	}

	cmd := Command(payload[0])
	innerLen := int(payload[1])
	body := payload[2:]

	if innerLen != len(body) {
		return nil, fmt.Errorf("RPC inner length %d disagrees with body length %d", innerLen, len(body))
	}

	switch cmd {
	case CmdWiFiSettings:
		ssid, rest, err := readString(body)
		if err != nil {
			return nil, fmt.Errorf("wifi_settings ssid: %v", err)
		}
		password, rest, err := readString(rest)
		if err != nil {
			return nil, fmt.Errorf("wifi_settings password: %v", err)
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("wifi_settings body has %d trailing bytes", len(rest))
		}
		return &RPCCommand{Command: cmd, SSID: ssid, Password: password}, nil

	case CmdGetCurrentState, CmdGetDeviceInfo:
		return &RPCCommand{Command: cmd}, nil

	default:
		return &RPCCommand{Command: cmd}, ErrUnknownCommand
	}
}

// BuildRPCCommand builds an RPC command payload from length-prefixed fields.
// Used by hosts to issue commands; wifi_settings takes the fields ssid then
// password, the other commands take none.
func BuildRPCCommand(cmd Command, fields ...string) ([]byte, error) {
	return buildStringPayload(cmd, fields)
}

// BuildRPCResponse builds an RPC response payload answering cmd with the
// given strings.
func BuildRPCResponse(cmd Command, fields []string) ([]byte, error) {
	return buildStringPayload(cmd, fields)
}

// ParseRPCResponse decodes an RPC response payload into the answered command
// id and its string fields.
func ParseRPCResponse(payload []byte) (Command, []string, error) {
	if len(payload) < 2 {
		return 0, nil, fmt.Errorf("RPC response too short: %d bytes", len(payload))
	}

	cmd := Command(payload[0])
	innerLen := int(payload[1])
	body := payload[2:]

	if innerLen != len(body) {
		return 0, nil, fmt.Errorf("RPC response inner length %d disagrees with body length %d", innerLen, len(body))
	}

	var fields []string
	for len(body) > 0 {
		field, rest, err := readString(body)
		if err != nil {
			return 0, nil, err
		}
		fields = append(fields, field)
		body = rest
	}

	return cmd, fields, nil
}

// buildStringPayload concatenates length-prefixed strings behind a command id
// and inner length byte.
func buildStringPayload(cmd Command, fields []string) ([]byte, error) {
	innerLen := 0
	for _, field := range fields {
		if len(field) > MaxPayloadSize {
			return nil, fmt.Errorf("field too long: %d bytes (max %d)", len(field), MaxPayloadSize)
		}
		innerLen += 1 + len(field)
	}
	if innerLen > MaxPayloadSize-2 {
		return nil, fmt.Errorf("RPC body too large: %d bytes (max %d)", innerLen, MaxPayloadSize-2)
	}

	payload := make([]byte, 0, 2+innerLen)
	payload = append(payload, byte(cmd), byte(innerLen))
	for _, field := range fields {
		payload = append(payload, byte(len(field)))
		payload = append(payload, field...)
	}

	return payload, nil
}

// readString consumes one length-prefixed string from body and returns the
// remainder. Empty strings are permitted.
func readString(body []byte) (string, []byte, error) {
	if len(body) < 1 {
		return "", nil, errors.New("missing length byte")
	}
	strLen := int(body[0])
	if len(body) < 1+strLen {
		return "", nil, fmt.Errorf("truncated string: want %d bytes, have %d", strLen, len(body)-1)
	}
	return string(body[1 : 1+strLen]), body[1+strLen:], nil
}
