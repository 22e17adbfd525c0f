// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

// Package nvs provides a file-backed credential store for the Improv
// responder, standing in for the non-volatile storage of a microcontroller.
package nvs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// credentials is the on-disk record. Integer keys keep the encoding compact,
// matching how embedded NVS blobs are usually laid out.
type credentials struct {
	SSID     string `cbor:"1,keyasint"`
	Password string `cbor:"2,keyasint"`
}

// Store persists a single ssid/password pair to a CBOR file. It implements
// the improv.CredentialStore contract and survives process restarts.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by the given file path. The parent
// directory is created if missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed creating store directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Write persists the credential pair, reporting success. The file is
// replaced atomically so a crash mid-write never leaves a torn record.
func (s *Store) Write(ssid, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := cbor.Marshal(credentials{SSID: ssid, Password: password})
	if err != nil {
		return false
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return false
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return false
	}
	return true
}

// Read returns the persisted credential pair. A missing file is reported via
// os.ErrNotExist.
func (s *Store) Read() (ssid, password string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", "", err
	}

	var creds credentials
	if err := cbor.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("invalid credential record: %w", err)
	}
	return creds.SSID, creds.Password, nil
}

// Erase removes the persisted pair. Erasing an empty store is not an error.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
