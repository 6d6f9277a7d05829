package registry

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
)

func TestExpandMinifiedInheritsAbsentFields(t *testing.T) {
	raw := []map[string]jsoniter.RawMessage{
		{
			"version": jsoniter.RawMessage(`"1.0.0"`),
			"require": jsoniter.RawMessage(`{"vendor/dep":"^1.0"}`),
			"dist":    jsoniter.RawMessage(`{"type":"zip","url":"https://example.test/1.0.0.zip"}`),
		},
		{
			"version": jsoniter.RawMessage(`"1.1.0"`),
		},
		{
			"version": jsoniter.RawMessage(`"1.2.0"`),
			"dist":    jsoniter.RawMessage(`{"type":"zip","url":"https://example.test/1.2.0.zip"}`),
		},
	}

	out := expandMinified(raw)
	if len(out) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out))
	}

	// entry 1 carries no "require"/"dist" of its own: both inherit whole
	// from entry 0.
	if string(out[1]["require"]) != `{"vendor/dep":"^1.0"}` {
		t.Fatalf("expected inherited require, got %s", out[1]["require"])
	}
	if string(out[1]["dist"]) != `{"type":"zip","url":"https://example.test/1.0.0.zip"}` {
		t.Fatalf("expected inherited dist, got %s", out[1]["dist"])
	}

	// entry 2 sets its own "dist": it fully replaces the inherited one,
	// field-by-field merge does not apply across the dist boundary.
	if string(out[2]["dist"]) != `{"type":"zip","url":"https://example.test/1.2.0.zip"}` {
		t.Fatalf("expected entry 2's own dist to win, got %s", out[2]["dist"])
	}
	// entry 2 still inherits "require" from entry 0 via entry 1's merged map.
	if string(out[2]["require"]) != `{"vendor/dep":"^1.0"}` {
		t.Fatalf("expected require to still be inherited at entry 2, got %s", out[2]["require"])
	}
}

func TestIsUnsetSentinel(t *testing.T) {
	cases := []struct {
		raw  jsoniter.RawMessage
		want bool
	}{
		{nil, true},
		{jsoniter.RawMessage(``), true},
		{jsoniter.RawMessage(`"__unset"`), true},
		{jsoniter.RawMessage(`{"vendor/dep":"^1.0"}`), false},
	}
	for _, c := range cases {
		if got := isUnset(c.raw); got != c.want {
			t.Errorf("isUnset(%s) = %v, want %v", c.raw, got, c.want)
		}
	}
}
