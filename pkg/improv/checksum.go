// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

// Checksum computes the modular-256 checksum over data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}
