// Package merge implements the Attribute Merger: domain-aware
// combination of per-batch metadata into a group's attribute
// dictionary, grounded directly on
// original_source/HSTB/kluster/xarray_helpers.py::combine_xr_attributes
// and its helpers (_attributes_only_unique_profile/settings/xyzrph).
package merge

import (
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/scigolib/swathstore/internal/xerrors"
)

// installFields are promoted to top-level lists from every install*
// attribute's nested JSON object.
const (
	installFileField   = "raw_file_name"
	installSurveyField = "survey_identifier"
)

// runtimeStripFields are removed from a runtime* JSON object before it
// is compared for equality with a previously-seen record.
var runtimeStripFields = []string{"Counter", "MinDepth", "MaxDepth"}

// Merge folds a sequence of per-batch attribute dictionaries into one
// merged dictionary, applying the tagged routing table by key prefix:
// install*, runtime*, profile*, system_serial_number(s), min*/max*,
// xyzrph, and for everything else the default rule (the first value
// seen for a key is kept; see lastWriterWins). batches is applied
// in order, so "first" and "last" writer semantics below are relative
// to this order.
func Merge(batches []map[string]gojson.RawMessage) (map[string]gojson.RawMessage, error) {
	merged := map[string]gojson.RawMessage{}

	// install* and runtime* accumulate candidate records per key before
	// the unique-filter step collapses them; keys are tracked in first-
	// seen order in ordered slices so collapsing a group is deterministic.
	installRecords := map[string][]gojson.RawMessage{}
	runtimeRecords := map[string][]gojson.RawMessage{}
	profileFirstSeen := map[string]gojson.RawMessage{}
	profileSeenValues := map[string]struct{}{}
	multibeamFiles := map[string]struct{}{}
	surveyNumbers := map[string]struct{}{}

	var installKeyOrder, runtimeKeyOrder, profileKeyOrder []string

	for _, attrs := range batches {
		keys := sortedKeys(attrs)
		for _, key := range keys {
			value := attrs[key]
			switch {
			case strings.HasPrefix(key, "install"):
				fields, err := extractObjectFields(value)
				if err == nil {
					if f, ok := fields[installFileField]; ok {
						multibeamFiles[f] = struct{}{}
					}
					if s, ok := fields[installSurveyField]; ok {
						surveyNumbers[s] = struct{}{}
					}
				}
				if _, seen := installRecords[key]; !seen {
					installKeyOrder = append(installKeyOrder, key)
				}
				installRecords[key] = append(installRecords[key], value)

			case strings.HasPrefix(key, "runtime"):
				if _, seen := runtimeRecords[key]; !seen {
					runtimeKeyOrder = append(runtimeKeyOrder, key)
				}
				runtimeRecords[key] = append(runtimeRecords[key], value)

			case strings.HasPrefix(key, "profile"):
				// Only the first occurrence of each distinct cast value is
				// kept; a later key holding an already-seen cast is dropped
				// entirely rather than overwriting an earlier key.
				if _, alreadyKept := profileFirstSeen[key]; alreadyKept {
					continue
				}
				if _, dup := profileSeenValues[string(value)]; dup {
					continue
				}
				profileSeenValues[string(value)] = struct{}{}
				profileFirstSeen[key] = value
				profileKeyOrder = append(profileKeyOrder, key)

			case key == "system_serial_number" || key == "secondary_system_serial_number":
				if err := accumulateUnique(merged, key, value); err != nil {
					return nil, err
				}

			case strings.HasPrefix(key, "min"):
				if err := numericReduce(merged, key, value, true); err != nil {
					return nil, err
				}

			case strings.HasPrefix(key, "max"):
				if err := numericReduce(merged, key, value, false); err != nil {
					return nil, err
				}

			case key == "xyzrph":
				if err := mergeXyzrph(merged, value); err != nil {
					return nil, err
				}

			default:
				if err := lastWriterWins(merged, key, value); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := collapseInstallRecords(merged, installKeyOrder, installRecords); err != nil {
		return nil, err
	}
	collapseRuntimeRecords(merged, runtimeKeyOrder, runtimeRecords)
	for _, key := range profileKeyOrder {
		merged[key] = profileFirstSeen[key]
	}

	if len(multibeamFiles) > 0 {
		merged["multibeam_files"] = mustMarshalSortedSet(multibeamFiles)
	}
	if len(surveyNumbers) > 0 {
		merged["survey_number"] = mustMarshalSortedSet(surveyNumbers)
	}

	return merged, nil
}

func sortedKeys(m map[string]gojson.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extractObjectFields pulls named string sub-keys out of a JSON object
// value; an absent sub-key is a benign no-op, not an error, matching
// the source's tolerant pop() behavior.
func extractObjectFields(value gojson.RawMessage) (map[string]string, error) {
	var nested map[string]gojson.RawMessage
	if err := gojson.Unmarshal(value, &nested); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, field := range []string{installFileField, installSurveyField} {
		raw, ok := nested[field]
		if !ok {
			continue
		}
		var s string
		if err := gojson.Unmarshal(raw, &s); err == nil {
			out[field] = s
		}
	}
	return out, nil
}

// collapseInstallRecords keeps each distinct record of an install* key:
// the first under key itself, later distinct ones under key_1, key_2, ...;
// an exactly-equal sub-object on a later batch is discarded (ExtractAndListify).
func collapseInstallRecords(merged map[string]gojson.RawMessage, order []string, records map[string][]gojson.RawMessage) error {
	for _, key := range order {
		seen := records[key]
		unique := dedupRaw(seen)
		for i, v := range unique {
			outKey := key
			if i > 0 {
				outKey = key + "_" + itoa(i)
			}
			merged[outKey] = v
		}
	}
	return nil
}

// collapseRuntimeRecords strips Counter/MinDepth/MaxDepth before
// comparing runtime* records for equality, then restores Counter on
// the kept record (StripFieldsThenDedup).
func collapseRuntimeRecords(merged map[string]gojson.RawMessage, order []string, records map[string][]gojson.RawMessage) {
	for _, key := range order {
		values := records[key]
		keptStripped := map[string]gojson.RawMessage{}
		keptOrder := []string{}
		keptOriginal := map[string]gojson.RawMessage{}

		for _, v := range values {
			stripped, _ := stripFields(v, runtimeStripFields)
			sig := string(stripped)
			if _, ok := keptStripped[sig]; !ok {
				keptStripped[sig] = stripped
				keptOrder = append(keptOrder, sig)
				keptOriginal[sig] = v
			}
		}
		for i, sig := range keptOrder {
			outKey := key
			if i > 0 {
				outKey = key + "_" + itoa(i)
			}
			merged[outKey] = keptOriginal[sig]
		}
	}
}

// stripFields removes the given top-level keys from a JSON object and
// re-marshals it canonically (sorted keys) so equality comparison is
// stable regardless of original key order.
func stripFields(value gojson.RawMessage, fields []string) (gojson.RawMessage, error) {
	var obj map[string]gojson.RawMessage
	if err := gojson.Unmarshal(value, &obj); err != nil {
		return value, err
	}
	for _, f := range fields {
		delete(obj, f)
	}
	return gojson.Marshal(obj)
}

// accumulateUnique maintains a sorted, deduplicated JSON array under
// key (system_serial_number / secondary_system_serial_number).
func accumulateUnique(merged map[string]gojson.RawMessage, key string, value gojson.RawMessage) error {
	set := map[string]struct{}{}
	if existing, ok := merged[key]; ok {
		var vals []gojson.RawMessage
		if err := gojson.Unmarshal(existing, &vals); err == nil {
			for _, v := range vals {
				set[string(v)] = struct{}{}
			}
		}
	}
	set[string(value)] = struct{}{}

	items := make([]string, 0, len(set))
	for k := range set {
		items = append(items, k)
	}
	sort.Strings(items)

	raw := "[" + strings.Join(items, ",") + "]"
	merged[key] = gojson.RawMessage(raw)
	return nil
}

// numericReduce folds key by numeric min or max across batches.
func numericReduce(merged map[string]gojson.RawMessage, key string, value gojson.RawMessage, wantMin bool) error {
	var v float64
	if err := gojson.Unmarshal(value, &v); err != nil {
		return xerrors.Wrap(xerrors.KindAttrConflict, "numeric reduce on "+key, err)
	}
	existing, ok := merged[key]
	if !ok {
		merged[key] = value
		return nil
	}
	var cur float64
	if err := gojson.Unmarshal(existing, &cur); err != nil {
		return xerrors.Wrap(xerrors.KindAttrConflict, "numeric reduce on "+key, err)
	}
	if (wantMin && v < cur) || (!wantMin && v > cur) {
		merged[key] = value
	}
	return nil
}

// lastWriterWins applies the default rule: last-writer-wins if the key
// was absent before, first-writer-wins otherwise. Fails with
// AttributeConflict if the JSON value kind (object/array/string/number/
// bool) changes between the existing and incoming value.
func lastWriterWins(merged map[string]gojson.RawMessage, key string, value gojson.RawMessage) error {
	existing, ok := merged[key]
	if !ok {
		merged[key] = value
		return nil
	}
	if valueKind(existing) != valueKind(value) {
		return xerrors.New(xerrors.KindAttrConflict, "attribute "+key+" changed type across batches")
	}
	// First-writer-wins once a value for this key already exists: the
	// original source only continues overwriting for keys it has not
	// yet seen; once seen, later same-type divergences keep the first.
	return nil
}

func valueKind(raw gojson.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return 'o'
		case '[':
			return 'a'
		case '"':
			return 's'
		case 't', 'f':
			return 'b'
		case 'n':
			return 'n'
		default:
			return 'd' // number
		}
	}
	return 0
}

func dedupRaw(values []gojson.RawMessage) []gojson.RawMessage {
	var out []gojson.RawMessage
	seen := map[string]struct{}{}
	for _, v := range values {
		sig := string(v)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, v)
	}
	return out
}

func mustMarshalSortedSet(set map[string]struct{}) gojson.RawMessage {
	items := make([]string, 0, len(set))
	for k := range set {
		items = append(items, k)
	}
	sort.Strings(items)
	data, _ := gojson.Marshal(items)
	return data
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
