// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var infoTimeout int

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Request device identity",
	Long: `Send a get_device_info command and print the identity strings the
device answers with: firmware name, firmware version, hardware variant and
device name.

Examples:
  improvd info --port /dev/ttyUSB0
  improvd info --url ws://bridge.local/uart

Exit codes:
  0 - Identity received
  1 - Device error or timeout
  2 - Connection error`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().IntVar(&infoTimeout, "timeout", 5, "Seconds to wait for a response")
}

func runInfo(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	client := newImprovClient(conn)
	fields, err := client.requestDeviceInfo(time.Duration(infoTimeout) * time.Second)
	if err != nil {
		fmt.Printf("REQUEST FAILED: %v\n", err)
		os.Exit(1)
	}

	labels := []string{"Firmware", "Version", "Variant", "Name"}
	fmt.Printf("Improvd - Device Info (%s)\n\n", connInfo)
	for i, field := range fields {
		if i < len(labels) {
			fmt.Printf("%-10s %s\n", labels[i]+":", field)
		} else {
			fmt.Printf("%-10s %s\n", fmt.Sprintf("Extra %d:", i-len(labels)+1), field)
		}
	}
	return nil
}
