package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
)

// fakeIndex is an in-memory package universe for solver tests, grounded
// on the shape of spec §9's worked scenarios.
type fakeIndex struct {
	entries   map[model.Name][]model.VersionEntry
	providers map[model.Name][]model.Name
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		entries:   make(map[model.Name][]model.VersionEntry),
		providers: make(map[model.Name][]model.Name),
	}
}

func (f *fakeIndex) add(t *testing.T, name, ver string, deps ...model.DependencyRecord) {
	t.Helper()
	n := mustName(t, name)
	v := mustVersion(t, ver)
	f.entries[n] = append(f.entries[n], model.VersionEntry{Name: n, Version: v, Deps: deps})
}

func (f *fakeIndex) dep(t *testing.T, name, constraint string) model.DependencyRecord {
	t.Helper()
	n := mustName(t, name)
	c, floor, hasFloor, err := version.ParseConstraint(constraint)
	if err != nil {
		t.Fatalf("ParseConstraint(%q): %v", constraint, err)
	}
	return model.DependencyRecord{Target: n, Constraint: c, StabilityFloor: floor, HasStabilityFloor: hasFloor, Kind: model.KindRequired}
}

func (f *fakeIndex) Versions(ctx context.Context, name model.Name, c version.Constraint, floor version.Stability) ([]model.VersionEntry, error) {
	var out []model.VersionEntry
	for _, e := range f.entries[name] {
		if e.Version.StabilityRank() < floor {
			continue
		}
		if c != nil && !version.Matches(c, e.Version) {
			continue
		}
		out = append(out, e)
	}
	// newest first, matching internal/index.Index.Versions's contract.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if version.Less(out[i].Version, out[j].Version) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeIndex) Providers(name model.Name) []model.Name {
	return f.providers[name]
}

func mustName(t *testing.T, s string) model.Name {
	t.Helper()
	n, err := model.ParseName(s)
	if err != nil {
		t.Fatalf("ParseName(%q): %v", s, err)
	}
	return n
}

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.ParseVersion(s)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", s, err)
	}
	return v
}

func TestResolveSimpleChain(t *testing.T) {
	idx := newFakeIndex()
	idx.add(t, "vendor/a", "1.0.0", idx.dep(t, "vendor/b", "^1.0"))
	idx.add(t, "vendor/b", "1.0.0")
	idx.add(t, "vendor/b", "2.0.0")

	s := New(idx, Options{Mode: ModeNewest})
	res, err := s.Resolve(context.Background(), []model.DependencyRecord{idx.dep(t, "vendor/a", "^1.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(res.Packages) != 2 {
		t.Fatalf("expected 2 resolved packages, got %d: %v", len(res.Packages), res.Packages)
	}
	b := res.Packages[mustName(t, "vendor/b")]
	if b.Version.String() != "1.0.0.0" {
		t.Fatalf("expected vendor/b resolved to 1.0.0 (only version satisfying ^1.0), got %s", b.Version)
	}
}

func TestResolvePicksNewestWithinConstraint(t *testing.T) {
	idx := newFakeIndex()
	idx.add(t, "vendor/b", "1.0.0")
	idx.add(t, "vendor/b", "1.5.0")
	idx.add(t, "vendor/b", "2.0.0")

	s := New(idx, Options{Mode: ModeNewest})
	res, err := s.Resolve(context.Background(), []model.DependencyRecord{idx.dep(t, "vendor/b", "^1.0")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b := res.Packages[mustName(t, "vendor/b")]
	if b.Version.String() != "1.5.0.0" {
		t.Fatalf("expected newest matching version 1.5.0, got %s", b.Version)
	}
}

// TestResolveConflictExplanation exercises spec §9 scenario S3: a 1.0.0
// requires c ^1.0, b 1.0.0 requires c ^2.0, root requires a ^1.0 and
// b ^1.0; no version of c can satisfy both.
func TestResolveConflictExplanation(t *testing.T) {
	idx := newFakeIndex()
	idx.add(t, "vendor/a", "1.0.0", idx.dep(t, "vendor/c", "^1.0"))
	idx.add(t, "vendor/b", "1.0.0", idx.dep(t, "vendor/c", "^2.0"))
	idx.add(t, "vendor/c", "1.0.0")
	idx.add(t, "vendor/c", "2.0.0")

	s := New(idx, Options{Mode: ModeNewest})
	_, err := s.Resolve(context.Background(), []model.DependencyRecord{
		idx.dep(t, "vendor/a", "^1.0"),
		idx.dep(t, "vendor/b", "^1.0"),
	})
	if err == nil {
		t.Fatal("expected a conflict error")
	}

	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConflictError, got %T: %v", err, err)
	}
	for _, want := range []string{"vendor/a", "vendor/b", "vendor/c"} {
		if !contains(ce.Explanation, want) {
			t.Errorf("expected explanation to mention %s, got: %s", want, ce.Explanation)
		}
	}
}

func TestResolvePackageNotFound(t *testing.T) {
	idx := newFakeIndex()

	s := New(idx, Options{Mode: ModeNewest})
	_, err := s.Resolve(context.Background(), []model.DependencyRecord{idx.dep(t, "vendor/missing", "^1.0")})
	if err == nil {
		t.Fatal("expected an error")
	}
	var nf *PackageNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *PackageNotFoundError, got %T: %v", err, err)
	}
}

func TestResolveVirtualPackageViaProvider(t *testing.T) {
	idx := newFakeIndex()
	virtual := mustName(t, "psr/log-implementation")
	idx.add(t, "vendor/logger-impl", "1.0.0")
	idx.providers[virtual] = []model.Name{mustName(t, "vendor/logger-impl")}

	s := New(idx, Options{Mode: ModeNewest})
	res, err := s.Resolve(context.Background(), []model.DependencyRecord{idx.dep(t, "psr/log-implementation", "*")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := res.Packages[mustName(t, "vendor/logger-impl")]; !ok {
		t.Fatalf("expected provider package to be resolved, got %v", res.Packages)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
