// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseRPC_WiFiSettings(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		ssid     string
		password string
	}{
		{
			name:     "ssid and password",
			payload:  []byte{0x01, 0x0A, 0x04, 's', 's', 'i', 'd', 0x04, 'p', 'a', 's', 's'},
			ssid:     "ssid",
			password: "pass",
		},
		{
			name:     "empty password",
			payload:  []byte{0x01, 0x06, 0x04, 'h', 'o', 'm', 'e', 0x00},
			ssid:     "home",
			password: "",
		},
		{
			name:     "empty ssid and password",
			payload:  []byte{0x01, 0x02, 0x00, 0x00},
			ssid:     "",
			password: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseRPC(tt.payload)
			if err != nil {
				t.Fatalf("ParseRPC failed: %v", err)
			}
			if cmd.Command != CmdWiFiSettings {
				t.Errorf("command: expected 0x%02X, got 0x%02X", byte(CmdWiFiSettings), byte(cmd.Command))
			}
			if cmd.SSID != tt.ssid {
				t.Errorf("ssid: expected %q, got %q", tt.ssid, cmd.SSID)
			}
			if cmd.Password != tt.password {
				t.Errorf("password: expected %q, got %q", tt.password, cmd.Password)
			}
		})
	}
}

func TestParseRPC_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "empty payload",
			payload: nil,
		},
		{
			name:    "missing inner length",
			payload: []byte{0x01},
		},
		{
			name:    "inner length disagrees with body",
			payload: []byte{0x01, 0x0C, 0x04, 's', 's', 'i', 'd', 0x04, 'p', 'a', 's', 's'},
		},
		{
			name:    "truncated password string",
			payload: []byte{0x01, 0x07, 0x04, 's', 's', 'i', 'd', 0x04},
		},
		{
			name:    "trailing bytes after password",
			payload: []byte{0x01, 0x0B, 0x04, 's', 's', 'i', 'd', 0x04, 'p', 'a', 's', 's', 0x00},
		},
		{
			name:    "wifi_settings with no body",
			payload: []byte{0x01, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRPC(tt.payload)
			if err == nil {
				t.Fatal("expected error for malformed payload")
			}
			if errors.Is(err, ErrUnknownCommand) {
				t.Fatalf("malformed payload misreported as unknown command: %v", err)
			}
		})
	}
}

func TestParseRPC_UnknownCommand(t *testing.T) {
	cmd, err := ParseRPC([]byte{0xFF, 0x00})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if cmd == nil || cmd.Command != 0xFF {
		t.Errorf("unknown command id not preserved: %+v", cmd)
	}
}

func TestParseRPC_BodyIgnored(t *testing.T) {
	// get_current_state and get_device_info ignore their body.
	for _, cmdID := range []Command{CmdGetCurrentState, CmdGetDeviceInfo} {
		cmd, err := ParseRPC([]byte{byte(cmdID), 0x02, 0xDE, 0xAD})
		if err != nil {
			t.Fatalf("ParseRPC(0x%02X) failed: %v", byte(cmdID), err)
		}
		if cmd.Command != cmdID {
			t.Errorf("command: expected 0x%02X, got 0x%02X", byte(cmdID), byte(cmd.Command))
		}
	}
}

func TestBuildRPCResponse_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		fields []string
	}{
		{
			name:   "device info",
			cmd:    CmdGetDeviceInfo,
			fields: []string{"fw", "1", "esp", "dev"},
		},
		{
			name:   "url list",
			cmd:    CmdWiFiSettings,
			fields: []string{"http://192.168.1.17"},
		},
		{
			name:   "empty url entry",
			cmd:    CmdGetCurrentState,
			fields: []string{"http://"},
		},
		{
			name:   "no fields",
			cmd:    CmdGetCurrentState,
			fields: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := BuildRPCResponse(tt.cmd, tt.fields)
			if err != nil {
				t.Fatalf("BuildRPCResponse failed: %v", err)
			}

			cmd, fields, err := ParseRPCResponse(payload)
			if err != nil {
				t.Fatalf("ParseRPCResponse failed: %v", err)
			}
			if cmd != tt.cmd {
				t.Errorf("command: expected 0x%02X, got 0x%02X", byte(tt.cmd), byte(cmd))
			}
			if len(fields) != len(tt.fields) {
				t.Fatalf("fields: expected %d, got %d", len(tt.fields), len(fields))
			}
			for i := range fields {
				if fields[i] != tt.fields[i] {
					t.Errorf("field %d: expected %q, got %q", i, tt.fields[i], fields[i])
				}
			}
		})
	}
}

func TestBuildRPCCommand_WiFiSettings(t *testing.T) {
	payload, err := BuildRPCCommand(CmdWiFiSettings, "ssid", "pass")
	if err != nil {
		t.Fatalf("BuildRPCCommand failed: %v", err)
	}

	expected := []byte{0x01, 0x0A, 0x04, 's', 's', 'i', 'd', 0x04, 'p', 'a', 's', 's'}
	if !reflect.DeepEqual(payload, expected) {
		t.Errorf("payload mismatch:\nexpected % X\ngot      % X", expected, payload)
	}

	// The device-side decoder must accept what the host builder produces.
	cmd, err := ParseRPC(payload)
	if err != nil {
		t.Fatalf("ParseRPC of built payload failed: %v", err)
	}
	if cmd.SSID != "ssid" || cmd.Password != "pass" {
		t.Errorf("round trip mismatch: %+v", cmd)
	}
}

func TestBuildRPCCommand_TooLarge(t *testing.T) {
	long := strings.Repeat("x", 200)
	if _, err := BuildRPCCommand(CmdWiFiSettings, long, long); err == nil {
		t.Fatal("expected error for oversized body")
	}
	if _, err := BuildRPCResponse(CmdGetDeviceInfo, []string{strings.Repeat("y", 256)}); err == nil {
		t.Fatal("expected error for oversized field")
	}
}
