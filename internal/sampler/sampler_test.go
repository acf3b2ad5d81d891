package sampler

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cradle/internal/name"
)

// makePopulation builds n names; the first evaluated of them have been rated,
// with ratings 1001, 1002, ... in creation order.
func makePopulation(n, evaluated int) []name.Name {
	out := make([]name.Name, n)
	for i := range out {
		out[i] = name.Name{
			ID:       fmt.Sprintf("id-%03d", i),
			Text:     fmt.Sprintf("Name%03d", i),
			Category: name.Female,
			Rating:   1200,
		}
		if i < evaluated {
			out[i].Rating = 1001 + i
			out[i].TimesEvaluated = 1
		}
	}
	return out
}

func assertDistinct(t *testing.T, names []name.Name) {
	t.Helper()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n.ID] {
			t.Fatalf("duplicate name %s in round", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestSelectRound_EmptyPopulation(t *testing.T) {
	s := NewSeeded(1)
	got := s.SelectRound(nil, 10)
	if got == nil || len(got) != 0 {
		t.Fatalf("SelectRound(nil) = %v, want empty non-nil slice", got)
	}
}

func TestSelectRound_SmallerThanTarget(t *testing.T) {
	s := NewSeeded(1)
	pop := makePopulation(4, 2)

	got := s.SelectRound(pop, 10)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	assertDistinct(t, got)
}

func TestSelectRound_SizeBounds(t *testing.T) {
	s := NewSeeded(7)
	for size := 0; size <= 40; size++ {
		for evaluated := 0; evaluated <= size; evaluated += 3 {
			for _, target := range []int{1, 5, 10, 12} {
				pop := makePopulation(size, evaluated)
				got := s.SelectRound(pop, target)

				want := min(target, size)
				if len(got) != want {
					t.Fatalf("size=%d evaluated=%d target=%d: len = %d, want %d",
						size, evaluated, target, len(got), want)
				}
				assertDistinct(t, got)
			}
		}
	}
}

func TestSelectRound_DoesNotMutatePopulation(t *testing.T) {
	s := NewSeeded(3)
	pop := makePopulation(30, 20)
	slices.Reverse(pop)
	before := slices.Clone(pop)

	s.SelectRound(pop, 10)

	require.Equal(t, before, pop)
}

func TestSelectRound_WithUnevaluated(t *testing.T) {
	s := NewSeeded(11)
	// 20 rated (1001..1020) + 20 unseen. The above-median half is 1011..1020,
	// so its top 20% is 1019 and 1020.
	pop := makePopulation(40, 20)

	for i := 0; i < 50; i++ {
		got := s.SelectRound(pop, 10)
		require.Len(t, got, 10)

		var unseen, top int
		for _, n := range got {
			switch {
			case n.TimesEvaluated == 0:
				unseen++
			case n.Rating >= 1019:
				top++
			default:
				t.Fatalf("unexpected evaluated name with rating %d", n.Rating)
			}
		}
		require.Equal(t, 8, unseen)
		require.Equal(t, 2, top)
	}
}

func TestSelectRound_AllEvaluated(t *testing.T) {
	s := NewSeeded(5)
	// Ratings 1001..1040: below median 1001..1020, upper 1021..1036, top 1037..1040.
	pop := makePopulation(40, 40)

	for i := 0; i < 50; i++ {
		got := s.SelectRound(pop, 10)
		require.Len(t, got, 10)

		var below, upper, top int
		for _, n := range got {
			switch {
			case n.Rating <= 1020:
				below++
			case n.Rating <= 1036:
				upper++
			default:
				top++
			}
		}
		require.Equal(t, 1, below, "below median")
		require.Equal(t, 3, top, "top fifth")
		require.Equal(t, 6, upper, "rest of upper half")
	}
}

func TestSelectRound_SurfacesEveryUnevaluatedName(t *testing.T) {
	s := NewSeeded(42)
	pop := makePopulation(60, 0)

	seen := make(map[string]bool)
	for i := 0; i < 500 && len(seen) < len(pop); i++ {
		for _, n := range s.SelectRound(pop, 10) {
			seen[n.ID] = true
		}
	}
	require.Len(t, seen, len(pop), "every unevaluated name should eventually be presented")
}

func TestSelectRound_Shuffled(t *testing.T) {
	s := NewSeeded(9)
	pop := makePopulation(40, 20)

	// Construction order puts the two top names first; shuffling should move them.
	firstIsTop := 0
	const rounds = 200
	for i := 0; i < rounds; i++ {
		if got := s.SelectRound(pop, 10); got[0].TimesEvaluated > 0 {
			firstIsTop++
		}
	}
	if firstIsTop == rounds {
		t.Errorf("a rated name led every round; result does not look shuffled")
	}
}

func TestSplit(t *testing.T) {
	st := split(makePopulation(12, 7))

	require.Len(t, st.unevaluated, 5)
	require.Len(t, st.below, 3)
	// above = 4 names, top = ceil(0.8) = 1
	require.Len(t, st.top, 1)
	require.Len(t, st.upper, 3)
	require.Equal(t, 1007, st.top[0].Rating)
}
