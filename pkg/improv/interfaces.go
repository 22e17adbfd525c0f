// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import "time"

// The responder core depends on five platform contracts. Implementations are
// injected once at construction and must outlive the responder; none of the
// methods may block.

// WirelessMode is the role the radio currently has.
type WirelessMode int

// Wireless mode values
const (
	WirelessOff WirelessMode = iota
	WirelessStation
	WirelessAccessPoint
	WirelessStationAP
)

// Serial is the UART contract. Available reports bytes that can be read
// without blocking; ReadByte is only called while Available reports > 0.
type Serial interface {
	Available() int
	ReadByte() byte
	Write(data []byte) error
}

// Wireless is the radio subsystem contract. Associate is asynchronous and
// returns immediately; progress is observed through Mode and IsConnected.
type Wireless interface {
	Mode() WirelessMode
	IsConnected() bool
	// LocalAddress returns the station IP address, or "" when unknown.
	LocalAddress() string
	SetStationMode()
	Disconnect()
	Associate(ssid, password string)
}

// CredentialStore persists the accepted wireless credentials to non-volatile
// storage. Write reports whether the pair was durably stored.
type CredentialStore interface {
	Write(ssid, password string) bool
}

// Clock supplies monotonic milliseconds. Wraparound is tolerated by the
// responder's interval arithmetic.
type Clock interface {
	NowMillis() uint32
}

// Logger receives diagnostics from the responder. Implementations must be
// side-effect-free from the responder's point of view.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// SystemClock implements Clock over the process monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a Clock anchored at the current time.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// NowMillis returns milliseconds since the clock was created, truncated to
// 32 bits.
func (c *SystemClock) NowMillis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// NopLogger discards all log output.
type NopLogger struct{}

// Debugf implements Logger.
func (NopLogger) Debugf(format string, args ...interface{}) {}

// Infof implements Logger.
func (NopLogger) Infof(format string, args ...interface{}) {}

// Warnf implements Logger.
func (NopLogger) Warnf(format string, args ...interface{}) {}
