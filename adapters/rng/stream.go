// Package rng provides deterministic per-respondent random streams
package rng

import (
	"context"
	"math/rand"

	"surveygen/ports"
)

// StreamAdapter derives independent seeded streams from a base seed
type StreamAdapter struct{}

// NewStreamAdapter creates a stream adapter
func NewStreamAdapter() *StreamAdapter {
	return &StreamAdapter{}
}

// Stream creates the random stream of one respondent. The seed is derived by
// hashing the session key and respondent key onto the base seed, so the same
// triple always replays the same answers
func (r *StreamAdapter) Stream(ctx context.Context, sessionKey, respondentKey string, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(DeriveSeed(sessionKey, respondentKey, baseSeed))), nil
}

// DeriveSeed combines the keys with the base seed
func DeriveSeed(sessionKey, respondentKey string, baseSeed int64) int64 {
	seed := baseSeed
	if sessionKey != "" {
		seed = int64(hashString(sessionKey)) + seed
	}
	if respondentKey != "" {
		seed = int64(hashString(respondentKey))*31 + seed
	}
	return seed
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2
	}
	return hash
}

var _ ports.RNGPort = (*StreamAdapter)(nil)
