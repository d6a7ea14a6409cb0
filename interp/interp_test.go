package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpLinear(t *testing.T) {
	sourceTime := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	sourceVal := []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}
	target := []float64{0.5, 4.5, 9.0}

	got, err := Interp(sourceTime, sourceVal, target, "depth", 0)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{5.0, 45.0, 90.0}, got, 1e-9)
}

func TestInterpHeadingAngularWrap(t *testing.T) {
	sourceTime := []float64{0, 1, 2, 3, 4}
	heading := []float64{350, 355, 0, 5, 10}
	target := []float64{1.5, 2.5}

	got, err := Interp(sourceTime, heading, target, FieldHeading, 0)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{357.5, 2.5}, got, 1e-9)

	for _, v := range got {
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 360.0)
	}
}

// TestInterpIdentity exercises testable property 4: interpolating a
// source onto its own time vector returns the source unchanged.
func TestInterpIdentity(t *testing.T) {
	sourceTime := []float64{0, 2, 4, 6, 8, 10, 12}
	sourceVal := []float64{1, 4, 9, 16, 25, 36, 49}

	got, err := Interp(sourceTime, sourceVal, sourceTime, "depth", 3)
	require.NoError(t, err)
	require.InDeltaSlice(t, sourceVal, got, 1e-9)
}

func TestInterpChunkedAcrossBoundary(t *testing.T) {
	sourceTime := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	sourceVal := []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}
	target := []float64{2.5, 5.5}

	gotChunked, err := Interp(sourceTime, sourceVal, target, "depth", 3)
	require.NoError(t, err)
	gotUnchunked, err := Interp(sourceTime, sourceVal, target, "depth", 0)
	require.NoError(t, err)
	require.InDeltaSlice(t, gotUnchunked, gotChunked, 1e-9)
}

func TestInterpErrors(t *testing.T) {
	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := Interp([]float64{0, 1}, []float64{0}, []float64{0}, "depth", 0)
		require.Error(t, err)
	})

	t.Run("target times not non-decreasing", func(t *testing.T) {
		_, err := Interp([]float64{0, 1, 2}, []float64{0, 1, 2}, []float64{1, 0}, "depth", 0)
		require.Error(t, err)
	})
}
