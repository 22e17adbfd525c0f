// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/nightlamp/improvd/pkg/improv"
	"github.com/spf13/cobra"
)

var stateTimeout int

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Request the provisioning state",
	Long: `Send a get_current_state command and print the device's provisioning
state. A provisioned device also reports the URL where it can be reached.

Exit codes:
  0 - State received
  1 - Device error or timeout
  2 - Connection error`,
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().IntVar(&stateTimeout, "timeout", 5, "Seconds to wait for a response")
}

func runState(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	client := newImprovClient(conn)
	state, urls, err := client.requestCurrentState(time.Duration(stateTimeout) * time.Second)
	if err != nil {
		fmt.Printf("REQUEST FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Improvd - Device State (%s)\n\n", connInfo)
	fmt.Printf("State: %s (0x%02X)\n", improv.FormatState(state), byte(state))
	for _, url := range urls {
		if url != "" && url != "http://" {
			fmt.Printf("Reachable at: %s\n", url)
		}
	}
	return nil
}
