// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors

package cmd

import (
	"fmt"
	"log"

	"github.com/nightlamp/improvd/pkg/improv"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display Improv frames in human-readable format",
	Long: `Continuously decode and display Improv-Serial frames as they arrive.

Each frame is shown with a timestamp, its type and the decoded payload.
wifi_settings passwords are masked. Useful for watching a provisioning
exchange between a device and another host tool.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Improvd - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	parser := improv.NewParser()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			frame, err := parser.Consume(buf[i])
			if err == improv.ErrChecksum {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if frame != nil {
				fmt.Print(improv.FormatFrame(frame))
			}
		}
	}
}
