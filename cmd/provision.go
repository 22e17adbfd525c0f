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

var (
	provisionSSID     string
	provisionPassword string
	provisionTimeout  int
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Send wireless credentials to a device",
	Long: `Send a wifi_settings command and follow the provisioning exchange.

The device persists the credentials, attempts to associate with the network
and reports progress through current_state frames. On success it answers with
the URL where it can be reached.

If --wifi-password is not given, the password is read from the
IMPROV_WIFI_PASSWORD environment variable or prompted interactively.

Examples:
  # Provision over serial, prompting for the password
  improvd provision --port /dev/ttyUSB0 --ssid home-net

  # Non-interactive
  IMPROV_WIFI_PASSWORD=secret improvd provision --port /dev/ttyUSB0 --ssid home-net

Exit codes:
  0 - Device provisioned
  1 - Device reported an error or the exchange timed out
  2 - Connection error`,
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVar(&provisionSSID, "ssid", "", "Network name to join (required)")
	provisionCmd.Flags().StringVar(&provisionPassword, "wifi-password", "", "Network password (empty for open networks)")
	provisionCmd.Flags().IntVar(&provisionTimeout, "timeout", 30, "Seconds to wait for the device to associate")
	provisionCmd.MarkFlagRequired("ssid")
}

func runProvision(cmd *cobra.Command, args []string) error {
	password := provisionPassword
	if password == "" && !cmd.Flags().Changed("wifi-password") {
		var err error
		password, err = GetPassword("IMPROV_WIFI_PASSWORD", "Network password (empty for open network)")
		if err != nil {
			return err
		}
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Improvd - Device Provisioning\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Network: %s\n\n", provisionSSID)

	client := newImprovClient(conn)
	urls, err := client.provision(provisionSSID, password, time.Duration(provisionTimeout)*time.Second, func(ev provisionEvent) {
		if !ev.haveURLs {
			fmt.Printf("Device state: %s\n", improv.FormatState(ev.state))
		}
	})
	if err != nil {
		fmt.Printf("PROVISIONING FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nDevice provisioned\n")
	for _, url := range urls {
		if url != "" && url != "http://" {
			fmt.Printf("Reachable at: %s\n", url)
		}
	}
	return nil
}
