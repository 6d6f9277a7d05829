package registry

import jsoniter "github.com/json-iterator/go"

// expandMinified implements the minified-delta expansion from spec §4.3/§6:
// each subsequent entry in a version list may carry only the top-level
// fields that differ from the previous entry; absent fields inherit the
// prior entry's raw value verbatim. This is the field-inheritance table
// fixed by the Open Question in DESIGN.md: inheritance operates per
// top-level key (version, require, require-dev, replace, provide, dist,
// source), not per nested sub-field -- a later entry that sets "dist" at
// all fully replaces the prior "dist", it does not merge type/url/shasum
// individually.
func expandMinified(raw []map[string]jsoniter.RawMessage) []map[string]jsoniter.RawMessage {
	out := make([]map[string]jsoniter.RawMessage, len(raw))
	var prev map[string]jsoniter.RawMessage
	for i, entry := range raw {
		merged := make(map[string]jsoniter.RawMessage, len(entry)+len(prev))
		for k, v := range prev {
			merged[k] = v
		}
		for k, v := range entry {
			merged[k] = v
		}
		out[i] = merged
		prev = merged
	}
	return out
}

// isUnset reports whether a require-family raw field is absent or the
// "__unset" sentinel string, per spec §6.
func isUnset(raw jsoniter.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == unsetSentinel
	}
	return false
}
