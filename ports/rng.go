package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides the seeded random streams of a simulation run
type RNGPort interface {
	// Stream returns the stream of one replication. Streams for different replication
	// indices under the same seed are independent, and the same (seed, replication)
	// always yields the same draws.
	Stream(ctx context.Context, seed uint64, replication int) (*rand.Rand, error)

	// FreshSeed draws a seed for runs that did not request one
	FreshSeed() uint64
}
