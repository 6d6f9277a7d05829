package manifest

import (
	"strings"
	"testing"

	"github.com/libretto-pm/libretto/internal/version"
)

const sample = `{
	"name": "acme/widget",
	"require": {
		"vendor/a": "^1.0",
		"vendor/b": "self.version"
	},
	"require-dev": {
		"vendor/test-tools": "~2.0"
	},
	"minimum-stability": "beta",
	"prefer-stable": true
}`

func TestReadParsesAllSections(t *testing.T) {
	m, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if m.Name != "acme/widget" {
		t.Fatalf("unexpected name %q", m.Name)
	}
	if m.MinimumStability != version.StabilityBeta {
		t.Fatalf("expected beta stability floor, got %v", m.MinimumStability)
	}
	if !m.PreferStable {
		t.Fatal("expected prefer-stable to be true")
	}
	if len(m.Require) != 2 {
		t.Fatalf("expected 2 require entries, got %d", len(m.Require))
	}
	if len(m.RequireDev) != 1 {
		t.Fatalf("expected 1 require-dev entry, got %d", len(m.RequireDev))
	}

	var sawSelfVersion bool
	for _, r := range m.Require {
		if r.Target.String() == "vendor/b" {
			sawSelfVersion = r.SelfVersion
		}
	}
	if !sawSelfVersion {
		t.Fatal("expected vendor/b to be marked self.version")
	}
}

func TestReadRejectsMissingName(t *testing.T) {
	_, err := Read(strings.NewReader(`{"require": {}}`))
	if err == nil {
		t.Fatal("expected an error for a manifest without a name")
	}
}

func TestContentHashIsDeterministic(t *testing.T) {
	m1, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	h1, err := m1.ContentHash()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := m2.ContentHash()
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hashes, got %s vs %s", h1, h2)
	}
}

func TestRootRequirementsRespectsDevMode(t *testing.T) {
	m, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	if got := len(m.RootRequirements(false)); got != 2 {
		t.Fatalf("expected 2 root requirements without dev mode, got %d", got)
	}
	if got := len(m.RootRequirements(true)); got != 3 {
		t.Fatalf("expected 3 root requirements with dev mode, got %d", got)
	}
}
