package rng

import (
	"context"
	"fmt"
	"math/rand/v2"

	"gobfda/domain/core"
)

// StreamAdapter implements ports.RNGPort with one PCG stream per replication.
// Streams are keyed on (seed, replication) only, so the draws of a replication do
// not depend on which worker runs it or in what order.
type StreamAdapter struct{}

// NewStreamAdapter creates the production RNG adapter
func NewStreamAdapter() *StreamAdapter {
	return &StreamAdapter{}
}

// Stream returns the deterministic stream of one replication
func (a *StreamAdapter) Stream(ctx context.Context, seed uint64, replication int) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if replication < 0 {
		return nil, core.NewConfigError("replication", fmt.Sprintf("must not be negative, got %d", replication))
	}
	return rand.New(rand.NewPCG(seed, splitmix(uint64(replication)))), nil
}

// FreshSeed draws a seed from the runtime's random source
func (a *StreamAdapter) FreshSeed() uint64 {
	return rand.Uint64()
}

// splitmix scrambles the replication index so that neighbouring indices give
// unrelated PCG increments.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
