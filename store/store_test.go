package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/swathstore"
	"github.com/scigolib/swathstore/internal/layout"
	"github.com/scigolib/swathstore/internal/xerrors"
)

func openGroup(t *testing.T) *layout.Group {
	t.Helper()
	g, err := layout.Open(t.TempDir())
	require.NoError(t, err)
	return g
}

// TestWriteS1 exercises scenario S1: two workers append batches
// [0,1000) and [1000,2000) of variable x (1-D f64) with chunk size 500
// to a new group; reading back at indices 499, 500, 1499 yields the
// three original values.
func TestWriteS1(t *testing.T) {
	group := openGroup(t)

	x1 := make([]float64, 1000)
	for i := range x1 {
		x1[i] = float64(i)
	}
	x2 := make([]float64, 1000)
	for i := range x2 {
		x2[i] = float64(1000 + i)
	}

	finalSize := uint64(2000)
	task0 := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{1000}, Data: x1, ChunkSize: 500},
	}
	task1 := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{1000}, Data: x2, ChunkSize: 500},
	}

	err := Distribute(group, []Task{
		{Batch: task0, RowRange: RowRange{Start: 0, End: 1000}, FinalSize: &finalSize},
		{Batch: task1, RowRange: RowRange{Start: 1000, End: 2000}},
	}, Options{SkipParallel: true})
	require.NoError(t, err)

	arr, ok := group.Array("x")
	require.True(t, ok)

	got, err := arr.ReadRows(499, 500)
	require.NoError(t, err)
	require.Equal(t, []float64{499}, got)

	got, err = arr.ReadRows(500, 501)
	require.NoError(t, err)
	require.Equal(t, []float64{500}, got)

	got, err = arr.ReadRows(1499, 1500)
	require.NoError(t, err)
	require.Equal(t, []float64{1499}, got)
}

// TestWriteS2 exercises scenario S2: first batch has variable x shape
// (100, 256); second has (100, 400). After the second write, the first
// 100 rows' columns [256..400) read as NaN.
func TestWriteS2(t *testing.T) {
	group := openGroup(t)

	narrow := make([]float64, 100*256)
	for i := range narrow {
		narrow[i] = 1.0
	}
	wide := make([]float64, 100*400)
	for i := range wide {
		wide[i] = 2.0
	}

	finalSize := uint64(200)
	task0 := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time", "beamidx"}, Shape: []uint64{100, 256}, Data: narrow, ChunkSize: 100},
	}
	task1 := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time", "beamidx"}, Shape: []uint64{100, 400}, Data: wide, ChunkSize: 100},
	}

	err := Distribute(group, []Task{
		{Batch: task0, RowRange: RowRange{Start: 0, End: 100}, FinalSize: &finalSize},
		{Batch: task1, RowRange: RowRange{Start: 100, End: 200}},
	}, Options{SkipParallel: true})
	require.NoError(t, err)

	arr, ok := group.Array("x")
	require.True(t, ok)
	require.Equal(t, uint64(400), arr.Shape()[1])

	rows, err := arr.ReadRows(0, 1)
	require.NoError(t, err)
	row := rows.([]float64)
	require.Len(t, row, 400)
	for i := 0; i < 256; i++ {
		require.Equal(t, 1.0, row[i])
	}
	for i := 256; i < 400; i++ {
		require.True(t, math.IsNaN(row[i]), "column %d of backfilled row must be NaN", i)
	}
}

// TestWriteS3 exercises scenario S3: store holds time, x; a merge-write
// adds variable y of shape (50,) at row range [25,75). Reading y[0]
// returns fill value, y[50] returns the written value, y[99] returns
// fill.
func TestWriteS3(t *testing.T) {
	group := openGroup(t)

	timeData := make([]float64, 100)
	xData := make([]float64, 100)
	for i := range timeData {
		timeData[i] = float64(i)
		xData[i] = float64(i) * 2
	}

	finalSize := uint64(100)
	base := swathstore.Batch{
		"time": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{100}, Data: timeData, ChunkSize: 100},
		"x":    &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{100}, Data: xData, ChunkSize: 100},
	}
	err := Write(group, base, nil, RowRange{Start: 0, End: 100}, &finalSize, false)
	require.NoError(t, err)

	yData := make([]float64, 50)
	for i := range yData {
		yData[i] = float64(i)
	}
	mergeBatch := swathstore.Batch{
		"time": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{50}, Data: timeData[25:75], ChunkSize: 50},
		"y":    &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{50}, Data: yData, ChunkSize: 50},
	}
	err = Write(group, mergeBatch, nil, RowRange{Start: 25, End: 75}, nil, true)
	require.NoError(t, err)

	yArr, ok := group.Array("y")
	require.True(t, ok)

	got, err := yArr.ReadRows(0, 1)
	require.NoError(t, err)
	require.True(t, math.IsNaN(got.([]float64)[0]), "y[0] must be fill value")

	got, err = yArr.ReadRows(50, 51)
	require.NoError(t, err)
	require.Equal(t, 25.0, got.([]float64)[0], "y[50] must be the written value at merge offset 25")

	got, err = yArr.ReadRows(99, 100)
	require.NoError(t, err)
	require.True(t, math.IsNaN(got.([]float64)[0]), "y[99] must be fill value")
}

func TestRebaseOffsetsOnNonexistentArray(t *testing.T) {
	group := openGroup(t)

	got, err := RebaseOffsets(group, "x", []RowRange{{Start: 0, End: 500}}, 500)
	require.NoError(t, err)
	require.Equal(t, []RowRange{{Start: 0, End: 500}}, got)
}

func TestRebaseOffsetsShiftsPastExistingData(t *testing.T) {
	group := openGroup(t)

	finalSize := uint64(1000)
	batch := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{1000}, Data: make([]float64, 1000), ChunkSize: 500},
	}
	require.NoError(t, Write(group, batch, nil, RowRange{Start: 0, End: 1000}, &finalSize, false))

	got, err := RebaseOffsets(group, "x", []RowRange{{Start: 0, End: 500}}, 500)
	require.NoError(t, err)
	require.Equal(t, []RowRange{{Start: 1000, End: 1500}}, got)
}

func TestRebaseOffsetsRejectsMismatchedMultiRangeQueue(t *testing.T) {
	group := openGroup(t)

	finalSize := uint64(500)
	batch := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{500}, Data: make([]float64, 500), ChunkSize: 500},
	}
	require.NoError(t, Write(group, batch, nil, RowRange{Start: 0, End: 500}, &finalSize, false))

	_, err := RebaseOffsets(group, "x", []RowRange{{Start: 0, End: 300}, {Start: 300, End: 800}}, 500)
	require.Error(t, err)
	require.True(t, xerrors.Is(err, xerrors.KindRechunkUnsupp))
}

func TestDistributeFirstErrorPropagates(t *testing.T) {
	group := openGroup(t)

	finalSize := uint64(10)
	good := swathstore.Batch{
		"x": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{10}, Data: make([]float64, 10), ChunkSize: 10},
	}
	bad := swathstore.Batch{
		"z": &swathstore.Variable{DimNames: []string{"time"}, Shape: []uint64{10}, Data: []bool{true}, ChunkSize: 10},
	}

	err := Distribute(group, []Task{
		{Batch: good, RowRange: RowRange{Start: 0, End: 10}, FinalSize: &finalSize},
		{Batch: bad, RowRange: RowRange{Start: 0, End: 10}},
	}, Options{SkipParallel: true})
	require.Error(t, err)
}
