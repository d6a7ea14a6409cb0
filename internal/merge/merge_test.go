package merge

import (
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// TestMergeInstallAttributes exercises scenario S6: three batches with
// three install_0 JSON strings (two equal, one different) produce
// exactly two retained install* keys, and multibeam_files equals the
// sorted unique list of all raw_file_name values.
func TestMergeInstallAttributes(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{
		"install_0": gojson.RawMessage(`{"raw_file_name":"0001.all","survey_identifier":"S1"}`),
	}
	batch2 := map[string]gojson.RawMessage{
		"install_0": gojson.RawMessage(`{"raw_file_name":"0001.all","survey_identifier":"S1"}`),
	}
	batch3 := map[string]gojson.RawMessage{
		"install_0": gojson.RawMessage(`{"raw_file_name":"0002.all","survey_identifier":"S1"}`),
	}

	merged, err := Merge([]map[string]gojson.RawMessage{batch1, batch2, batch3})
	require.NoError(t, err)

	installKeys := 0
	for k := range merged {
		if len(k) >= 7 && k[:7] == "install" {
			installKeys++
		}
	}
	require.Equal(t, 2, installKeys)

	var files []string
	require.NoError(t, gojson.Unmarshal(merged["multibeam_files"], &files))
	require.Equal(t, []string{"0001.all", "0002.all"}, files)
}

func TestMergeRuntimeStripsCounterBeforeDedup(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{
		"runtime_0": gojson.RawMessage(`{"Counter":1,"MinDepth":0,"MaxDepth":100,"Mode":"auto"}`),
	}
	batch2 := map[string]gojson.RawMessage{
		"runtime_0": gojson.RawMessage(`{"Counter":2,"MinDepth":5,"MaxDepth":95,"Mode":"auto"}`),
	}

	merged, err := Merge([]map[string]gojson.RawMessage{batch1, batch2})
	require.NoError(t, err)

	runtimeKeys := 0
	for k := range merged {
		if len(k) >= 7 && k[:7] == "runtime" {
			runtimeKeys++
		}
	}
	require.Equal(t, 1, runtimeKeys, "equal-after-strip runtime records collapse into one")
}

func TestMergeMinMax(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{"min_depth": gojson.RawMessage(`10`), "max_depth": gojson.RawMessage(`100`)}
	batch2 := map[string]gojson.RawMessage{"min_depth": gojson.RawMessage(`5`), "max_depth": gojson.RawMessage(`120`)}

	merged, err := Merge([]map[string]gojson.RawMessage{batch1, batch2})
	require.NoError(t, err)
	require.JSONEq(t, `5`, string(merged["min_depth"]))
	require.JSONEq(t, `120`, string(merged["max_depth"]))
}

func TestMergeSystemSerialNumberAccumulatesUnique(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{"system_serial_number": gojson.RawMessage(`123`)}
	batch2 := map[string]gojson.RawMessage{"system_serial_number": gojson.RawMessage(`456`)}
	batch3 := map[string]gojson.RawMessage{"system_serial_number": gojson.RawMessage(`123`)}

	merged, err := Merge([]map[string]gojson.RawMessage{batch1, batch2, batch3})
	require.NoError(t, err)

	var got []int
	require.NoError(t, gojson.Unmarshal(merged["system_serial_number"], &got))
	require.Equal(t, []int{123, 456}, got)
}

func TestMergeOtherKeysFirstWriterWinsAfterFirstSeen(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{"horizontal_crs": gojson.RawMessage(`"EPSG:26910"`)}
	batch2 := map[string]gojson.RawMessage{"horizontal_crs": gojson.RawMessage(`"EPSG:4326"`)}

	merged, err := Merge([]map[string]gojson.RawMessage{batch1, batch2})
	require.NoError(t, err)
	require.JSONEq(t, `"EPSG:26910"`, string(merged["horizontal_crs"]))
}

func TestMergeAttributeConflictOnTypeChange(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{"note": gojson.RawMessage(`"a string"`)}
	batch2 := map[string]gojson.RawMessage{"note": gojson.RawMessage(`["a", "list"]`)}

	_, err := Merge([]map[string]gojson.RawMessage{batch1, batch2})
	require.Error(t, err)
}

func TestMergeXyzrphDedupDropsFullyEmptyAfter(t *testing.T) {
	batch1 := map[string]gojson.RawMessage{
		"xyzrph": gojson.RawMessage(`{"tx_x":{"1000":1.1},"tx_y":{"1000":2.2}}`),
	}
	batch2 := map[string]gojson.RawMessage{
		// identical field vector at a new timestamp: fully deduplicated away
		"xyzrph": gojson.RawMessage(`{"tx_x":{"2000":1.1},"tx_y":{"2000":2.2}}`),
	}

	merged, err := Merge([]map[string]gojson.RawMessage{batch1, batch2})
	require.NoError(t, err)

	var table map[string]map[string]gojson.RawMessage
	require.NoError(t, gojson.Unmarshal(merged["xyzrph"], &table))
	require.Len(t, table["tx_x"], 1, "duplicate field vector at a new timestamp must not be added")
}
