// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors
//
// Improvd - Improv-Serial Provisioning Tool
//
// Host tooling for provisioning devices over the Improv-Serial protocol,
// plus a device-side responder for local testing.

package main

import (
	"os"

	"github.com/nightlamp/improvd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
