// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightlamp/improvd/pkg/improv"
	"github.com/nightlamp/improvd/pkg/nvs"
	"github.com/spf13/cobra"
)

var (
	serveName       string
	serveFirmware   string
	serveFwVersion  string
	serveVariant    string
	serveIP         string
	serveStorePath  string
	serveAssocDelay int
	serveAssocFail  bool
	serveTimeout    int
	serveVerbose    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the device side of Improv-Serial on this machine",
	Long: `Run an Improv-Serial responder on the connection, simulating a device.

The responder speaks the device side of the protocol: it accepts
wifi_settings, answers state and identity queries, and persists credentials
to a local store. Wireless association is simulated; it succeeds after
--associate-delay seconds unless --fail is given.

Useful for exercising host tools (including this one) against a predictable
device, e.g. over a pty pair:

  socat -d -d pty,raw,echo=0,link=/tmp/dev pty,raw,echo=0,link=/tmp/host
  improvd serve --port /tmp/dev
  improvd provision --port /tmp/host --ssid home-net

Press Ctrl+C to stop.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveName, "name", "improvd-sim", "Device name reported by get_device_info")
	serveCmd.Flags().StringVar(&serveFirmware, "firmware", "improvd", "Firmware name reported by get_device_info")
	serveCmd.Flags().StringVar(&serveFwVersion, "firmware-version", rootCmd.Version, "Firmware version reported by get_device_info")
	serveCmd.Flags().StringVar(&serveVariant, "variant", "sim", "Hardware variant reported by get_device_info")
	serveCmd.Flags().StringVar(&serveIP, "ip", "192.168.4.2", "Local address reported once associated")
	serveCmd.Flags().StringVar(&serveStorePath, "store", defaultStorePath(), "Credential store file")
	serveCmd.Flags().IntVar(&serveAssocDelay, "associate-delay", 2, "Seconds a simulated association takes")
	serveCmd.Flags().BoolVar(&serveAssocFail, "fail", false, "Simulate association failure")
	serveCmd.Flags().IntVar(&serveTimeout, "wifi-timeout", 15, "Seconds before an association attempt times out")
	serveCmd.Flags().BoolVar(&serveVerbose, "verbose", false, "Log every protocol event")
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "improvd-credentials.cbor"
	}
	return dir + "/improvd/credentials.cbor"
}

func runServe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := nvs.NewStore(serveStorePath)
	if err != nil {
		return err
	}

	wireless := &simWireless{
		addr:      serveIP,
		delay:     time.Duration(serveAssocDelay) * time.Second,
		failAssoc: serveAssocFail,
	}

	// Credentials surviving from an earlier run mean the simulated device
	// rejoined its network at boot.
	if ssid, _, err := store.Read(); err == nil && !serveAssocFail {
		wireless.mode = improv.WirelessStation
		wireless.connected = true
		log.Printf("Restored credentials for %q, starting provisioned", ssid)
	}

	responder := improv.NewResponder(improv.Config{
		Info: improv.DeviceInfo{
			Firmware: serveFirmware,
			Version:  serveFwVersion,
			Variant:  serveVariant,
			Name:     serveName,
		},
		Serial:   newConnSerial(conn),
		Wireless: wireless,
		Store:    store,
		Clock:    improv.NewSystemClock(),
		Log:      &stdLogger{verbose: serveVerbose},
	})

	fmt.Printf("Improvd - Device Responder\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Device: %s (%s %s, %s)\n", serveName, serveFirmware, serveFwVersion, serveVariant)
	fmt.Printf("Store: %s\n", serveStorePath)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	// The association deadline lives here, not in the responder: the loop
	// raises the timeout flag once an attempt has run too long.
	var provisioningSince time.Time

	for {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down")
			return nil
		case <-ticker.C:
			timeout := false
			if responder.State() == improv.StateProvisioning {
				if provisioningSince.IsZero() {
					provisioningSince = time.Now()
				}
				timeout = time.Since(provisioningSince) > time.Duration(serveTimeout)*time.Second
			} else {
				provisioningSince = time.Time{}
			}

			if responder.Loop(timeout) {
				log.Printf("Provisioned, reachable at http://%s", wireless.LocalAddress())
			}
			if timeout && responder.State() == improv.StateAuthorized {
				provisioningSince = time.Time{}
			}
		}
	}
}

// connSerial adapts a Connection to the responder's non-blocking Serial
// contract by draining reads into a channel from a background goroutine.
type connSerial struct {
	conn Connection
	in   chan byte
}

func newConnSerial(conn Connection) *connSerial {
	s := &connSerial{conn: conn, in: make(chan byte, 4096)}
	go s.readLoop()
	return s
}

func (s *connSerial) readLoop() {
	buf := make([]byte, 128)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			if err != ErrConnectionClosed {
				log.Printf("Read error: %v", err)
			}
			return
		}
		for i := 0; i < n; i++ {
			s.in <- buf[i]
		}
	}
}

func (s *connSerial) Available() int { return len(s.in) }

func (s *connSerial) ReadByte() byte { return <-s.in }

func (s *connSerial) Write(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

// simWireless simulates an embedded radio: association is asynchronous and
// completes after a configurable delay, or never when failing.
type simWireless struct {
	mode      improv.WirelessMode
	connected bool
	addr      string
	delay     time.Duration
	failAssoc bool

	associating bool
	assocDone   time.Time
}

func (w *simWireless) Mode() improv.WirelessMode { return w.mode }

func (w *simWireless) IsConnected() bool {
	if w.associating && !w.failAssoc && time.Now().After(w.assocDone) {
		w.associating = false
		w.connected = true
	}
	return w.connected
}

func (w *simWireless) LocalAddress() string {
	if !w.connected {
		return ""
	}
	return w.addr
}

func (w *simWireless) SetStationMode() { w.mode = improv.WirelessStation }

func (w *simWireless) Disconnect() {
	w.connected = false
	w.associating = false
}

func (w *simWireless) Associate(ssid, password string) {
	w.associating = true
	w.assocDone = time.Now().Add(w.delay)
	log.Printf("Associating with %q", ssid)
}

// stdLogger adapts the stdlib logger to the responder's Logger contract.
type stdLogger struct {
	verbose bool
}

func (l *stdLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		log.Printf("DEBUG "+format, args...)
	}
}

func (l *stdLogger) Infof(format string, args ...interface{}) {
	log.Printf(format, args...)
}

func (l *stdLogger) Warnf(format string, args ...interface{}) {
	log.Printf("WARN "+format, args...)
}
