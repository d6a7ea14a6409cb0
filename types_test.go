package swathstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillValue(t *testing.T) {
	require.True(t, math.IsNaN(float64(FillValue(Float32).(float32))))
	require.True(t, math.IsNaN(FillValue(Float64).(float64)))
	require.Equal(t, int32(999), FillValue(Int32))
	require.Equal(t, int64(999), FillValue(Int64))
	require.Equal(t, uint8(255), FillValue(Uint8))
	require.Equal(t, "", FillValue(Text))
}

func TestDTypeJSONRoundTrip(t *testing.T) {
	for _, d := range []DType{Float32, Float64, Int32, Int64, Uint8, Text} {
		b, err := d.MarshalJSON()
		require.NoError(t, err)

		var got DType
		require.NoError(t, got.UnmarshalJSON(b))
		require.Equal(t, d, got)
	}
}
