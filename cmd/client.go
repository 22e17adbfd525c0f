// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors

package cmd

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nightlamp/improvd/pkg/improv"
)

// errResponseTimeout is returned when the device does not answer in time.
var errResponseTimeout = errors.New("timed out waiting for device response")

// improvClient is the host side of an Improv-Serial exchange: it issues RPC
// frames and decodes whatever the device sends back.
type improvClient struct {
	conn   Connection
	parser *improv.Parser
	buf    []byte
}

func newImprovClient(conn Connection) *improvClient {
	return &improvClient{
		conn:   conn,
		parser: improv.NewParser(),
		buf:    make([]byte, 128),
	}
}

// sendCommand writes one RPC frame followed by the frame terminator.
func (c *improvClient) sendCommand(cmd improv.Command, fields ...string) error {
	payload, err := improv.BuildRPCCommand(cmd, fields...)
	if err != nil {
		return err
	}
	frame, err := improv.EncodeFrame(improv.TypeRPC, payload)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(append(frame, improv.FrameTerminator)); err != nil {
		return fmt.Errorf("send failed: %v", err)
	}
	return nil
}

// nextFrame reads until a complete frame arrives or the timeout expires.
// Stray bytes between frames (terminators, console noise) are skipped.
func (c *improvClient) nextFrame(timeout time.Duration) (*improv.Frame, error) {
	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		if !time.Now().Before(deadline) {
			return nil, errResponseTimeout
		}

		n, err := c.conn.Read(c.buf)
		if err != nil {
			if err == ErrConnectionClosed {
				return nil, err
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, errResponseTimeout
			}
			return nil, fmt.Errorf("read failed: %v", err)
		}
		if n == 0 {
			// Serial reads return empty on timeout.
			continue
		}

		for i := 0; i < n; i++ {
			frame, err := c.parser.Consume(c.buf[i])
			if err != nil {
				// Noise or a corrupt frame; keep scanning.
				continue
			}
			if frame != nil {
				return frame, nil
			}
		}
	}
}

// deviceError converts an inbound error_state frame into an error.
func deviceError(frame *improv.Frame) error {
	if len(frame.Payload) < 1 {
		return errors.New("device reported an empty error frame")
	}
	errState := improv.Error(frame.Payload[0])
	if errState == improv.ErrorNone {
		return nil
	}
	return fmt.Errorf("device error: %s (0x%02X)", improv.FormatError(errState), byte(errState))
}

// requestDeviceInfo asks for the identity strings: firmware name, firmware
// version, hardware variant and device name.
func (c *improvClient) requestDeviceInfo(timeout time.Duration) ([]string, error) {
	if err := c.sendCommand(improv.CmdGetDeviceInfo); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame, err := c.nextFrame(time.Until(deadline))
		if err != nil {
			return nil, err
		}
		switch frame.Type {
		case improv.TypeRPCResponse:
			cmd, fields, err := improv.ParseRPCResponse(frame.Payload)
			if err != nil {
				return nil, fmt.Errorf("bad device info response: %v", err)
			}
			if cmd == improv.CmdGetDeviceInfo {
				return fields, nil
			}
		case improv.TypeErrorState:
			if err := deviceError(frame); err != nil {
				return nil, err
			}
		}
	}
	return nil, errResponseTimeout
}

// requestCurrentState asks for the provisioning state; when the device is
// provisioned it also returns the URL list it volunteers.
func (c *improvClient) requestCurrentState(timeout time.Duration) (improv.State, []string, error) {
	if err := c.sendCommand(improv.CmdGetCurrentState); err != nil {
		return 0, nil, err
	}

	var state improv.State
	haveState := false

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame, err := c.nextFrame(time.Until(deadline))
		if err != nil {
			if haveState && errors.Is(err, errResponseTimeout) {
				// Unprovisioned devices send no URL list.
				return state, nil, nil
			}
			return 0, nil, err
		}
		switch frame.Type {
		case improv.TypeCurrentState:
			if len(frame.Payload) < 1 {
				return 0, nil, errors.New("empty current_state frame")
			}
			state = improv.State(frame.Payload[0])
			haveState = true
			if state != improv.StateProvisioned {
				return state, nil, nil
			}
		case improv.TypeRPCResponse:
			cmd, fields, err := improv.ParseRPCResponse(frame.Payload)
			if err != nil {
				return 0, nil, fmt.Errorf("bad state response: %v", err)
			}
			if haveState && cmd == improv.CmdGetCurrentState {
				return state, fields, nil
			}
		case improv.TypeErrorState:
			if err := deviceError(frame); err != nil {
				return 0, nil, err
			}
		}
	}
	if haveState {
		return state, nil, nil
	}
	return 0, nil, errResponseTimeout
}

// provisionEvent is one observation during a provisioning exchange.
type provisionEvent struct {
	state    improv.State
	haveURLs bool
	urls     []string
}

// provision sends wifi_settings and follows the exchange until the device
// reports success (URL list), an error, or the timeout expires. Each state
// change is reported through observe before the final result.
func (c *improvClient) provision(ssid, password string, timeout time.Duration, observe func(provisionEvent)) ([]string, error) {
	if err := c.sendCommand(improv.CmdWiFiSettings, ssid, password); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame, err := c.nextFrame(time.Until(deadline))
		if err != nil {
			return nil, err
		}
		switch frame.Type {
		case improv.TypeCurrentState:
			if len(frame.Payload) < 1 {
				continue
			}
			if observe != nil {
				observe(provisionEvent{state: improv.State(frame.Payload[0])})
			}
		case improv.TypeRPCResponse:
			cmd, fields, err := improv.ParseRPCResponse(frame.Payload)
			if err != nil {
				return nil, fmt.Errorf("bad provisioning response: %v", err)
			}
			if cmd == improv.CmdWiFiSettings {
				if observe != nil {
					observe(provisionEvent{state: improv.StateProvisioned, haveURLs: true, urls: fields})
				}
				return fields, nil
			}
		case improv.TypeErrorState:
			if err := deviceError(frame); err != nil {
				return nil, err
			}
		}
	}
	return nil, errResponseTimeout
}
