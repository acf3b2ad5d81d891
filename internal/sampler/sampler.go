// Package sampler picks the names presented in a round.
//
// The population of one category is stratified by evaluation status and
// rating so that unseen names surface quickly, rated names come back now and
// then, and rounds are not made only of extreme ratings.
package sampler

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/cradle/internal/name"
)

// Sampler draws rounds from a population. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Sampler using rng. A nil rng is seeded from the clock.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	return &Sampler{rng: rng}
}

// NewSeeded returns a deterministic Sampler, for tests and reproducible runs.
func NewSeeded(seed uint64) *Sampler {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// strata is the population split used to build a round.
type strata struct {
	unevaluated []name.Name
	below       []name.Name // evaluated, below the median rating
	upper       []name.Name // evaluated, at or above the median, excluding top
	top         []name.Name // highest 20% of the at-or-above-median half
}

// split partitions population without modifying it.
func split(population []name.Name) strata {
	var st strata
	evaluated := make([]name.Name, 0, len(population))
	for _, n := range population {
		if n.TimesEvaluated == 0 {
			st.unevaluated = append(st.unevaluated, n)
		} else {
			evaluated = append(evaluated, n)
		}
	}

	slices.SortStableFunc(evaluated, func(a, b name.Name) int {
		if c := cmp.Compare(a.Rating, b.Rating); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	mid := len(evaluated) / 2
	st.below = evaluated[:mid]
	above := evaluated[mid:]

	topN := 0
	if len(above) > 0 {
		topN = (len(above) + 4) / 5 // ceil(20%), at least 1
	}
	st.upper = above[:len(above)-topN]
	st.top = above[len(above)-topN:]
	return st
}

// SelectRound returns up to targetSize distinct names from population.
//
// While some names are unevaluated, a fifth of the round comes from the top
// rated names and the rest from unevaluated names (2 + 8 for a round of 10).
// Once everything has been rated, a tenth comes from below the median, three
// tenths from the top and the rest from the remaining upper half (1 + 3 + 6).
// Short strata are topped up with random unpicked names, so the result has
// min(targetSize, len(population)) names. The result is shuffled.
func (s *Sampler) SelectRound(population []name.Name, targetSize int) []name.Name {
	if len(population) == 0 || targetSize <= 0 {
		return []name.Name{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := split(population)
	picked := make([]name.Name, 0, targetSize)

	if len(st.unevaluated) > 0 {
		topQuota := targetSize / 5
		picked = append(picked, s.sample(st.top, topQuota)...)
		picked = append(picked, s.sample(st.unevaluated, targetSize-topQuota)...)
	} else {
		belowQuota := targetSize / 10
		topQuota := targetSize * 3 / 10
		picked = append(picked, s.sample(st.below, belowQuota)...)
		picked = append(picked, s.sample(st.top, topQuota)...)
		picked = append(picked, s.sample(st.upper, targetSize-belowQuota-topQuota)...)
	}

	picked = s.backfill(population, picked, targetSize)

	s.rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked
}

// sample returns k random elements of pool, or all of them if pool is smaller.
func (s *Sampler) sample(pool []name.Name, k int) []name.Name {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if k >= len(pool) {
		return slices.Clone(pool)
	}
	out := make([]name.Name, 0, k)
	for _, i := range s.rng.Perm(len(pool))[:k] {
		out = append(out, pool[i])
	}
	return out
}

// backfill tops picked up to targetSize with random names not yet picked.
func (s *Sampler) backfill(population, picked []name.Name, targetSize int) []name.Name {
	if len(picked) >= targetSize || len(picked) >= len(population) {
		return picked
	}

	taken := make(map[string]bool, len(picked))
	for _, n := range picked {
		taken[n.ID] = true
	}

	for _, i := range s.rng.Perm(len(population)) {
		if len(picked) >= targetSize {
			break
		}
		n := population[i]
		if taken[n.ID] {
			continue
		}
		taken[n.ID] = true
		picked = append(picked, n)
	}
	return picked
}
