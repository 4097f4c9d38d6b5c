package tetris

import "fmt"

// RandomizerPolicy names a next-piece distribution.
type RandomizerPolicy string

const (
	// PolicyNES rolls eight faces, the eighth meaning "reroll". A roll that
	// repeats the previous piece, or lands on the reroll face, is rerolled
	// once over all seven kinds and accepted. Repeats occur with
	// probability 1/28 and every other kind with 9/56.
	PolicyNES RandomizerPolicy = "nes"
	// PolicyNoRepeat rolls seven faces and rerolls a repeat uniformly over
	// the other six kinds, so repeats never occur.
	PolicyNoRepeat RandomizerPolicy = "norepeat"
	// PolicyWeighted repeats the previous piece with RepeatProbability and
	// otherwise picks uniformly among the other six kinds.
	PolicyWeighted RandomizerPolicy = "weighted"
)

// DefaultRepeatProbability is the repeat rate of the NES randomizer.
const DefaultRepeatProbability = 1.0 / 28.0

// RandomizerConfig selects the next-piece distribution. RepeatProbability is
// only read by PolicyWeighted.
type RandomizerConfig struct {
	Policy            RandomizerPolicy
	RepeatProbability float64
}

// DefaultRandomizerConfig returns the NES policy.
func DefaultRandomizerConfig() RandomizerConfig {
	return RandomizerConfig{Policy: PolicyNES, RepeatProbability: DefaultRepeatProbability}
}

// ParseRandomizerPolicy validates a policy name.
func ParseRandomizerPolicy(s string) (RandomizerPolicy, error) {
	switch p := RandomizerPolicy(s); p {
	case PolicyNES, PolicyNoRepeat, PolicyWeighted:
		return p, nil
	}
	return "", fmt.Errorf("unknown randomizer policy %q", s)
}

func (c RandomizerConfig) normalized() RandomizerConfig {
	if c.Policy == "" {
		c.Policy = PolicyNES
	}
	if c.RepeatProbability < 0 || c.RepeatProbability > 1 {
		c.RepeatProbability = DefaultRepeatProbability
	}
	return c
}

// Source is the randomness the sampler draws from. *rand.Rand satisfies it;
// seed it for reproducible games.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// repeatProbability returns the chance of drawing prev again.
func (c RandomizerConfig) repeatProbability() float64 {
	switch c.Policy {
	case PolicyNoRepeat:
		return 0
	case PolicyWeighted:
		return c.RepeatProbability
	default:
		return DefaultRepeatProbability
	}
}

// Probability returns the chance that k is drawn right after prev. With no
// previous piece every kind is equally likely.
func (r *Rules) Probability(k, prev Kind) float64 {
	if !prev.Valid() {
		return 1.0 / NumKinds
	}
	rep := r.randomizer.repeatProbability()
	if k == prev {
		return rep
	}
	return (1 - rep) / (NumKinds - 1)
}

// Sample draws the piece that follows prev.
func (r *Rules) Sample(rng Source, prev Kind) Kind {
	if !prev.Valid() {
		return AllKinds[rng.Intn(NumKinds)]
	}
	switch r.randomizer.Policy {
	case PolicyNoRepeat:
		roll := rng.Intn(NumKinds)
		if AllKinds[roll] != prev {
			return AllKinds[roll]
		}
		reroll := rng.Intn(NumKinds - 1)
		if reroll >= prev.index() {
			reroll++
		}
		return AllKinds[reroll]
	case PolicyWeighted:
		if rng.Float64() < r.randomizer.RepeatProbability {
			return prev
		}
		other := rng.Intn(NumKinds - 1)
		if other >= prev.index() {
			other++
		}
		return AllKinds[other]
	default:
		roll := rng.Intn(NumKinds + 1)
		if roll == NumKinds || AllKinds[roll] == prev {
			roll = rng.Intn(NumKinds)
		}
		return AllKinds[roll]
	}
}
