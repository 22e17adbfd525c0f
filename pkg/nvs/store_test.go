// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package nvs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "improv", "credentials.cbor")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if !store.Write("home-net", "hunter2") {
		t.Fatal("Write reported failure")
	}

	ssid, password, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ssid != "home-net" || password != "hunter2" {
		t.Errorf("round trip mismatch: %q/%q", ssid, password)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.cbor")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if !store.Write("net", "pw") {
		t.Fatal("Write reported failure")
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore (reopen) failed: %v", err)
	}
	ssid, password, err := reopened.Read()
	if err != nil {
		t.Fatalf("Read after reopen failed: %v", err)
	}
	if ssid != "net" || password != "pw" {
		t.Errorf("persisted pair lost: %q/%q", ssid, password)
	}
}

func TestStore_OverwriteReplacesPair(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "credentials.cbor"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	store.Write("first", "one")
	store.Write("second", "two")

	ssid, password, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ssid != "second" || password != "two" {
		t.Errorf("overwrite not applied: %q/%q", ssid, password)
	}
}

func TestStore_EmptyStrings(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "credentials.cbor"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if !store.Write("", "") {
		t.Fatal("Write of empty pair reported failure")
	}
	ssid, password, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ssid != "" || password != "" {
		t.Errorf("expected empty pair, got %q/%q", ssid, password)
	}
}

func TestStore_ReadMissing(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "credentials.cbor"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	_, _, err = store.Read()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestStore_Erase(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "credentials.cbor"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	store.Write("net", "pw")
	if err := store.Erase(); err != nil {
		t.Fatalf("Erase failed: %v", err)
	}
	if _, _, err := store.Read(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist after erase, got %v", err)
	}

	// Erasing again is not an error.
	if err := store.Erase(); err != nil {
		t.Fatalf("second Erase failed: %v", err)
	}
}
