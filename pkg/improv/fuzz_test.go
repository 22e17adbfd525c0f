// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 The Nightlamp Authors

package improv

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomFrameType(rng *rand.Rand) FrameType {
	return []FrameType{TypeCurrentState, TypeErrorState, TypeRPC, TypeRPCResponse}[rng.Intn(4)]
}

// TestFuzz_FrameRoundTrip encodes random payloads and feeds them back through
// the parser one byte at a time.
func TestFuzz_FrameRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	p := NewParser()
	for round := 0; round < rounds; round++ {
		frameType := randomFrameType(rng)
		payload := make([]byte, rng.Intn(MaxPayloadSize+1))
		rng.Read(payload)

		wire := MustEncodeFrame(frameType, payload)
		var frame *Frame
		for i, b := range wire {
			f, err := p.Consume(b)
			if err != nil {
				t.Fatalf("round %d: byte %d rejected: %v", round, i, err)
			}
			if f != nil {
				frame = f
			}
		}

		if frame == nil {
			t.Fatalf("round %d: frame not completed (type 0x%02X, len %d)", round, byte(frameType), len(payload))
		}
		if frame.Type != frameType || !bytes.Equal(frame.Payload, payload) {
			t.Fatalf("round %d: round trip mismatch (type 0x%02X, len %d)", round, byte(frameType), len(payload))
		}
	}
}

// TestFuzz_ParserSurvivesNoise feeds random bytes and asserts the parser
// never exceeds its buffer bound and keeps recognizing valid frames between
// bursts of noise.
func TestFuzz_ParserSurvivesNoise(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	p := NewParser()
	probe := MustEncodeFrame(TypeRPC, []byte{byte(CmdGetCurrentState), 0x00})

	for round := 0; round < rounds; round++ {
		noise := make([]byte, rng.Intn(64))
		rng.Read(noise)
		for _, b := range noise {
			p.Consume(b)
			if p.Buffered() > MaxFrameSize {
				t.Fatalf("round %d: buffer exceeded bound: %d", round, p.Buffered())
			}
		}

		// Noise may leave a plausible partial frame behind; a reset models
		// the inter-frame quiescence rule before the probe arrives.
		p.Reset()

		var frame *Frame
		for _, b := range probe {
			f, err := p.Consume(b)
			if err != nil {
				t.Fatalf("round %d: probe rejected after noise: %v", round, err)
			}
			if f != nil {
				frame = f
			}
		}
		if frame == nil || frame.Type != TypeRPC {
			t.Fatalf("round %d: probe frame lost after noise", round)
		}
	}
}

// TestFuzz_RPCStringRoundTrip builds random string lists and parses them back.
func TestFuzz_RPCStringRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		numFields := rng.Intn(4)
		fields := make([]string, numFields)
		budget := MaxPayloadSize - 2 - numFields
		for i := range fields {
			n := 0
			if budget > 0 {
				n = rng.Intn(budget/(numFields-i+1) + 1)
			}
			raw := make([]byte, n)
			rng.Read(raw)
			fields[i] = string(raw)
			budget -= n
		}

		payload, err := BuildRPCResponse(CmdGetDeviceInfo, fields)
		if err != nil {
			t.Fatalf("round %d: build failed: %v", round, err)
		}
		cmd, parsed, err := ParseRPCResponse(payload)
		if err != nil {
			t.Fatalf("round %d: parse failed: %v", round, err)
		}
		if cmd != CmdGetDeviceInfo || len(parsed) != len(fields) {
			t.Fatalf("round %d: round trip mismatch", round)
		}
		for i := range fields {
			if parsed[i] != fields[i] {
				t.Fatalf("round %d: field %d mismatch", round, i)
			}
		}
	}
}
