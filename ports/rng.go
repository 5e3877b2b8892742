package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic RNG stream for one respondent of a collection session.
	// The same session, respondent key and base seed always yield the same sequence,
	// so a simulated run can be replayed answer for answer
	Stream(ctx context.Context, sessionKey, respondentKey string, baseSeed int64) (*rand.Rand, error)
}
