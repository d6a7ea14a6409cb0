package merge

import (
	"sort"

	gojson "github.com/goccy/go-json"
)

// xyzrphTable is a two-level field -> timestamp -> value mapping,
// the lever-arm/offset record structure xarray_helpers.py calls
// "xyzrph".
type xyzrphTable map[string]map[string]gojson.RawMessage

// mergeXyzrph folds one batch's xyzrph object into merged["xyzrph"].
// A timestamp is dropped if its full field-vector already matches an
// existing timestamp's field-vector exactly (StructuredOverride); if
// the table ends up with zero timestamps across every field, the key
// is omitted from merged entirely rather than left as an empty object.
func mergeXyzrph(merged map[string]gojson.RawMessage, value gojson.RawMessage) error {
	var incoming xyzrphTable
	if err := gojson.Unmarshal(value, &incoming); err != nil {
		return err
	}

	existing := xyzrphTable{}
	if raw, ok := merged["xyzrph"]; ok {
		if err := gojson.Unmarshal(raw, &existing); err != nil {
			return err
		}
	}

	fields := unionFields(existing, incoming)
	existingTimestamps := allTimestamps(existing)

	for _, ts := range sortedTimestamps(incoming) {
		vec := fieldVector(incoming, fields, ts)
		if timestampMatches(existing, fields, existingTimestamps, vec) {
			continue
		}
		for _, field := range fields {
			tsVals, ok := incoming[field]
			if !ok {
				continue
			}
			v, ok := tsVals[ts]
			if !ok {
				continue
			}
			if existing[field] == nil {
				existing[field] = map[string]gojson.RawMessage{}
			}
			existing[field][ts] = v
		}
		existingTimestamps = append(existingTimestamps, ts)
	}

	if tableIsEmpty(existing) {
		delete(merged, "xyzrph")
		return nil
	}

	data, err := gojson.Marshal(existing)
	if err != nil {
		return err
	}
	merged["xyzrph"] = data
	return nil
}

func unionFields(a, b xyzrphTable) []string {
	set := map[string]struct{}{}
	for f := range a {
		set[f] = struct{}{}
	}
	for f := range b {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func allTimestamps(t xyzrphTable) []string {
	set := map[string]struct{}{}
	for _, tsVals := range t {
		for ts := range tsVals {
			set[ts] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for ts := range set {
		out = append(out, ts)
	}
	return out
}

func sortedTimestamps(t xyzrphTable) []string {
	set := map[string]struct{}{}
	for _, tsVals := range t {
		for ts := range tsVals {
			set[ts] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for ts := range set {
		out = append(out, ts)
	}
	sort.Strings(out)
	return out
}

func fieldVector(t xyzrphTable, fields []string, ts string) []string {
	vec := make([]string, len(fields))
	for i, f := range fields {
		if tsVals, ok := t[f]; ok {
			if v, ok := tsVals[ts]; ok {
				vec[i] = string(v)
				continue
			}
		}
		vec[i] = ""
	}
	return vec
}

func timestampMatches(existing xyzrphTable, fields []string, candidates []string, vec []string) bool {
	for _, ts := range candidates {
		if equalVec(fieldVector(existing, fields, ts), vec) {
			return true
		}
	}
	return false
}

func equalVec(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tableIsEmpty(t xyzrphTable) bool {
	for _, tsVals := range t {
		if len(tsVals) > 0 {
			return false
		}
	}
	return true
}
