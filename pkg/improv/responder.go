// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import "errors"

// DeviceInfo holds the identity strings returned by get_device_info, in the
// order they appear on the wire.
type DeviceInfo struct {
	Firmware string
	Version  string
	Variant  string
	Name     string
}

// Config wires a Responder to its platform.
type Config struct {
	Info     DeviceInfo
	Serial   Serial
	Wireless Wireless
	Store    CredentialStore
	Clock    Clock
	Log      Logger // optional; defaults to NopLogger
}

// Responder is the device side of Improv-Serial: it drains inbound bytes,
// decodes RPC commands, drives the provisioning state machine and emits
// response frames. A single instance owns the serial port; Loop is not
// reentrant and the application must serialize calls.
type Responder struct {
	info     DeviceInfo
	serial   Serial
	wireless Wireless
	store    CredentialStore
	clock    Clock
	log      Logger

	parser         *Parser
	state          State
	lastReadMillis uint32

	lastSSID     string
	lastPassword string
}

// NewResponder creates a responder and derives the initial state from the
// wireless subsystem: an active station-mode association means the device is
// already provisioned.
func NewResponder(cfg Config) *Responder {
	logger := cfg.Log
	if logger == nil {
		logger = NopLogger{}
	}

	r := &Responder{
		info:           cfg.Info,
		serial:         cfg.Serial,
		wireless:       cfg.Wireless,
		store:          cfg.Store,
		clock:          cfg.Clock,
		log:            logger,
		parser:         NewParser(),
		lastReadMillis: cfg.Clock.NowMillis(),
	}

	if r.wireless.Mode() == WirelessStation && r.wireless.IsConnected() {
		r.state = StateProvisioned
	} else {
		r.state = StateAuthorized
	}
	r.log.Infof("improv responder ready, state=%s", FormatState(r.state))

	return r
}

// State returns the current provisioning state.
func (r *Responder) State() State {
	return r.state
}

// LastSSID returns the ssid from the most recent accepted wifi_settings
// command. Diagnostic only.
func (r *Responder) LastSSID() string {
	return r.lastSSID
}

// LastPassword returns the password from the most recent accepted
// wifi_settings command. Diagnostic only.
func (r *Responder) LastPassword() string {
	return r.lastPassword
}

// Loop services the responder once: it applies the inter-frame reset rule,
// drains available serial bytes through the parser and, while provisioning,
// consults the wireless subsystem. The timeout flag is supplied by the caller
// and consulted only in state provisioning. Returns true iff a transition to
// provisioned occurred during this call.
//
// Protocol errors are reported to the host via error_state frames and never
// escape the loop.
func (r *Responder) Loop(timeout bool) bool {
	now := r.clock.NowMillis()
	if now-r.lastReadMillis > InterFrameResetMillis {
		r.parser.Reset()
		r.lastReadMillis = now
	}

	for r.serial.Available() > 0 {
		b := r.serial.ReadByte()
		frame, err := r.parser.Consume(b)
		switch {
		case errors.Is(err, ErrChecksum):
			r.log.Warnf("improv frame checksum mismatch")
			r.sendError(ErrorInvalidRPC)
		case err != nil:
			// Stray bytes between frames; ignored silently.
		default:
			r.lastReadMillis = now
			if frame != nil && frame.Type == TypeRPC {
				r.handleRPC(frame.Payload)
			}
		}
	}

	if r.state == StateProvisioning {
		mode := r.wireless.Mode()
		if mode == WirelessAccessPoint || (mode == WirelessStation && r.wireless.IsConnected()) {
			r.setState(StateProvisioned)
			r.sendURLResponse(CmdWiFiSettings)
			return true
		}
		if timeout {
			r.onAssociationTimeout()
		}
	}

	return false
}

func (r *Responder) handleRPC(payload []byte) {
	cmd, err := ParseRPC(payload)
	if errors.Is(err, ErrUnknownCommand) {
		r.log.Warnf("unknown improv RPC command 0x%02X", byte(cmd.Command))
		r.sendError(ErrorUnknownRPC)
		return
	}
	if err != nil {
		r.log.Warnf("malformed improv RPC payload: %v", err)
		r.sendError(ErrorInvalidRPC)
		return
	}

	switch cmd.Command {
	case CmdWiFiSettings:
		r.handleWiFiSettings(cmd)

	case CmdGetCurrentState:
		r.setState(r.state)
		if r.state == StateProvisioned {
			r.sendURLResponse(CmdGetCurrentState)
		}

	case CmdGetDeviceInfo:
		payload, err := BuildRPCResponse(CmdGetDeviceInfo, []string{
			r.info.Firmware, r.info.Version, r.info.Variant, r.info.Name,
		})
		if err != nil {
			r.log.Warnf("failed building device info response: %v", err)
			return
		}
		r.writeFrame(TypeRPCResponse, payload)
	}
}

// handleWiFiSettings persists the credentials, advertises the provisioning
// state and kicks off an asynchronous association attempt. A failed store
// write is logged but does not prevent the attempt.
func (r *Responder) handleWiFiSettings(cmd *RPCCommand) {
	r.lastSSID, r.lastPassword = cmd.SSID, cmd.Password

	if !r.store.Write(cmd.SSID, cmd.Password) {
		r.log.Warnf("failed writing wireless credentials to store")
	}

	r.setState(StateProvisioning)
	r.log.Debugf("received wifi settings ssid=%q password=******", cmd.SSID)

	r.wireless.Disconnect()
	r.wireless.SetStationMode()
	r.wireless.Associate(cmd.SSID, cmd.Password)
}

func (r *Responder) onAssociationTimeout() {
	r.sendError(ErrorUnableToConnect)
	r.setState(StateAuthorized)
	r.log.Warnf("timed out associating with the requested network")
	r.wireless.Disconnect()
}

// setState records the state and advertises it with a current_state frame.
func (r *Responder) setState(state State) {
	r.state = state
	r.writeRaw(EncodeCurrentState(state))
}

func (r *Responder) sendError(errState Error) {
	r.writeRaw(EncodeErrorState(errState))
}

// sendURLResponse answers cmd with the device's reachable URL list. When no
// local address is known the single entry degrades to "http://" so hosts
// still receive a list of the expected shape.
func (r *Responder) sendURLResponse(cmd Command) {
	url := "http://" + r.wireless.LocalAddress()
	payload, err := BuildRPCResponse(cmd, []string{url})
	if err != nil {
		r.log.Warnf("failed building URL response: %v", err)
		return
	}
	r.writeFrame(TypeRPCResponse, payload)
}

func (r *Responder) writeFrame(frameType FrameType, payload []byte) {
	data, err := EncodeFrame(frameType, payload)
	if err != nil {
		r.log.Warnf("failed encoding %s frame: %v", FormatFrameType(frameType), err)
		return
	}
	r.writeRaw(data)
}

// writeRaw hands a complete frame plus terminator to the serial adapter in a
// single write. Write failures are dropped; the host will retry.
func (r *Responder) writeRaw(frame []byte) {
	if err := r.serial.Write(append(frame, FrameTerminator)); err != nil {
		r.log.Warnf("serial write failed: %v", err)
	}
}
