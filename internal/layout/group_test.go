package layout

import (
	"math"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/swathstore"
)

func TestCreateArrayIdempotentAndConflict(t *testing.T) {
	g, err := Open(t.TempDir())
	require.NoError(t, err)

	spec := swathstore.ArraySpec{
		Name: "x", DType: swathstore.Float64,
		Shape: []uint64{10}, Chunks: []uint64{5}, DimNames: []string{"time"},
	}
	a1, err := g.CreateArray(spec)
	require.NoError(t, err)

	a2, err := g.CreateArray(spec)
	require.NoError(t, err)
	require.Same(t, a1, a2, "re-creating with an identical spec returns the existing array")

	conflicting := spec
	conflicting.DType = swathstore.Int32
	_, err = g.CreateArray(conflicting)
	require.Error(t, err)
}

func TestResizeArrayAppendMonotonic(t *testing.T) {
	g, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = g.CreateArray(swathstore.ArraySpec{
		Name: "x", DType: swathstore.Float64,
		Shape: []uint64{10}, Chunks: []uint64{5}, DimNames: []string{"time"},
	})
	require.NoError(t, err)

	require.NoError(t, g.ResizeArrayAppend("x", 20))
	arr, _ := g.Array("x")
	require.Equal(t, uint64(20), arr.Shape()[0])

	require.Error(t, g.ResizeArrayAppend("x", 5), "shrinking the append dim must fail")
}

func TestGrowSecondaryDimBackfillsFill(t *testing.T) {
	g, err := Open(t.TempDir())
	require.NoError(t, err)

	arr, err := g.CreateArray(swathstore.ArraySpec{
		Name: "x", DType: swathstore.Float64,
		Shape: []uint64{4, 2}, Chunks: []uint64{4, 2}, DimNames: []string{"time", "beamidx"},
	})
	require.NoError(t, err)

	data := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, arr.WriteRows(0, 4, data))

	require.NoError(t, g.GrowSecondaryDim("x", 4))
	require.Equal(t, uint64(4), arr.Shape()[1])

	rows, err := arr.ReadRows(0, 4)
	require.NoError(t, err)
	wide := rows.([]float64)
	require.Len(t, wide, 16)
	for r := 0; r < 4; r++ {
		require.True(t, math.IsNaN(wide[r*4+2]))
		require.True(t, math.IsNaN(wide[r*4+3]))
	}
}

func TestGroupAttrsRoundTrip(t *testing.T) {
	g, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, g.SetAttr("horizontal_crs", gojson.RawMessage(`"EPSG:4326"`)))
	require.JSONEq(t, `"EPSG:4326"`, string(g.Attrs()["horizontal_crs"]))

	merged := map[string]gojson.RawMessage{"note": gojson.RawMessage(`"hello"`)}
	require.NoError(t, g.SetAttrs(merged))
	_, hasOldKey := g.Attrs()["horizontal_crs"]
	require.False(t, hasOldKey, "SetAttrs replaces the whole dictionary")
	require.JSONEq(t, `"hello"`, string(g.Attrs()["note"]))
}

func TestOpenReloadsExistingArraysAndAttrs(t *testing.T) {
	dir := t.TempDir()

	g1, err := Open(dir)
	require.NoError(t, err)
	_, err = g1.CreateArray(swathstore.ArraySpec{
		Name: "x", DType: swathstore.Float64,
		Shape: []uint64{10}, Chunks: []uint64{5}, DimNames: []string{"time"},
	})
	require.NoError(t, err)
	require.NoError(t, g1.SetAttr("k", gojson.RawMessage(`1`)))

	g2, err := Open(dir)
	require.NoError(t, err)
	arr, ok := g2.Array("x")
	require.True(t, ok)
	require.Equal(t, swathstore.Float64, arr.DType())
	require.JSONEq(t, `1`, string(g2.Attrs()["k"]))
}
