// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string for monitor
// tooling.
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, FormatFrameType(f.Type), byte(f.Type), len(f.Payload))
	result += formatPayload(f.Type, f.Payload)
	return result
}

// FormatFrameType returns the human-readable name for a frame type.
func FormatFrameType(frameType FrameType) string {
	switch frameType {
	case TypeCurrentState:
		return "CURRENT_STATE"
	case TypeErrorState:
		return "ERROR_STATE"
	case TypeRPC:
		return "RPC"
	case TypeRPCResponse:
		return "RPC_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// FormatState returns the human-readable name for a provisioning state.
func FormatState(state State) string {
	switch state {
	case StateAuthorized:
		return "AUTHORIZED"
	case StateProvisioning:
		return "PROVISIONING"
	case StateProvisioned:
		return "PROVISIONED"
	default:
		return "UNKNOWN"
	}
}

// FormatError returns the human-readable name for an error state.
func FormatError(errState Error) string {
	switch errState {
	case ErrorNone:
		return "NONE"
	case ErrorInvalidRPC:
		return "INVALID_RPC"
	case ErrorUnknownRPC:
		return "UNKNOWN_RPC"
	case ErrorUnableToConnect:
		return "UNABLE_TO_CONNECT"
	case ErrorUnknown:
		return "UNKNOWN"
	default:
		return "RESERVED"
	}
}

// FormatCommand returns the human-readable name for an RPC command id.
func FormatCommand(cmd Command) string {
	switch cmd {
	case CmdWiFiSettings:
		return "WIFI_SETTINGS"
	case CmdGetCurrentState:
		return "GET_CURRENT_STATE"
	case CmdGetDeviceInfo:
		return "GET_DEVICE_INFO"
	default:
		return "UNKNOWN"
	}
}

// formatPayload decodes the payload based on frame type.
func formatPayload(frameType FrameType, payload []byte) string {
	switch frameType {
	case TypeCurrentState:
		if len(payload) >= 1 {
			state := State(payload[0])
			return fmt.Sprintf("  State: %s (0x%02X)\n", FormatState(state), payload[0])
		}

	case TypeErrorState:
		if len(payload) >= 1 {
			errState := Error(payload[0])
			return fmt.Sprintf("  Error: %s (0x%02X)\n", FormatError(errState), payload[0])
		}

	case TypeRPC:
		cmd, err := ParseRPC(payload)
		if err != nil && cmd == nil {
			break
		}
		switch cmd.Command {
		case CmdWiFiSettings:
			if err == nil {
				return fmt.Sprintf("  Command: WIFI_SETTINGS ssid=%q password=******\n", cmd.SSID)
			}
		default:
			return fmt.Sprintf("  Command: %s (0x%02X)\n", FormatCommand(cmd.Command), byte(cmd.Command))
		}

	case TypeRPCResponse:
		cmd, fields, err := ParseRPCResponse(payload)
		if err == nil {
			quoted := make([]string, len(fields))
			for i, field := range fields {
				quoted[i] = fmt.Sprintf("%q", field)
			}
			return fmt.Sprintf("  Response: %s [%s]\n", FormatCommand(cmd), strings.Join(quoted, ", "))
		}
	}

	if len(payload) == 0 {
		return "  (no payload)\n"
	}

	// Default: hex dump
	var b strings.Builder
	b.WriteString("  Payload: ")
	for i, p := range payload {
		if i > 0 && i%16 == 0 {
			b.WriteString("\n           ")
		}
		fmt.Fprintf(&b, "%02X ", p)
	}
	b.WriteString("\n")
	return b.String()
}
