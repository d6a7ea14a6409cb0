package gaps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGapsBasic(t *testing.T) {
	candidate := []float64{0, 1, 2, 10, 11, 12}
	reference := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	got := Gaps(candidate, reference, 1.0)
	require.Equal(t, []Interval{{Start: 2, End: 10}}, got)
}

func TestGapsDropsGapFullyInsideReferenceGap(t *testing.T) {
	candidate := []float64{0, 5, 10}
	reference := []float64{0, 10}

	got := Gaps(candidate, reference, 1.0)
	require.Empty(t, got)
}

func TestGapsTrimsPartialOverlap(t *testing.T) {
	candidate := []float64{0, 2, 20}
	reference := []float64{0, 10}

	got := Gaps(candidate, reference, 1.0)
	require.Len(t, got, 1)
	require.Equal(t, 10.0, got[0].Start)
	require.Equal(t, 20.0, got[0].End)
}

// TestGapsInvariants exercises testable property 8: returned intervals
// are pairwise disjoint and none is fully contained in any reference
// gap.
func TestGapsInvariants(t *testing.T) {
	candidate := []float64{0, 1, 2, 3, 9, 10, 20, 21, 22, 40}
	reference := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 30, 40}

	got := Gaps(candidate, reference, 1.0)

	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].End, got[i].Start, "intervals must not overlap")
	}

	refGaps := findGaps(reference, 1.0)
	for _, g := range got {
		for _, rg := range refGaps {
			require.False(t, contains(rg, g), "candidate gap must not be fully contained in a reference gap")
		}
	}
}
