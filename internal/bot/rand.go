package bot

import (
	"math/rand"
	"time"
)

// NewRand returns a piece source for self-play. A zero seed draws one from
// the clock; any other seed gives a reproducible sequence.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// SeedFor derives the seed of game i in a batch started from base, so each
// game of a batch is individually replayable.
func SeedFor(base int64, i int) int64 {
	return base + int64(i)*7919
}
