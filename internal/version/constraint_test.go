package version

import "testing"

func mustParseC(t *testing.T, s string) Constraint {
	t.Helper()
	c, _, _, err := ParseConstraint(s)
	if err != nil {
		t.Fatalf("ParseConstraint(%q): %v", s, err)
	}
	return c
}

func mustV(t *testing.T, s string) Version {
	t.Helper()
	v, err := ParseVersion(s)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", s, err)
	}
	return v
}

func TestCaretConstraint(t *testing.T) {
	c := mustParseC(t, "^1.0")
	if c.Matches(mustV(t, "2.0.0")) {
		t.Error("^1.0 should reject 2.0.0")
	}
	if !c.Matches(mustV(t, "1.999.999")) {
		t.Error("^1.0 should accept 1.999.999")
	}
	if !c.Matches(mustV(t, "1.0.0")) {
		t.Error("^1.0 should accept 1.0.0")
	}
}

func TestCaretZeroMajor(t *testing.T) {
	c := mustParseC(t, "^0.2.3")
	if !c.Matches(mustV(t, "0.2.9")) {
		t.Error("^0.2.3 should accept 0.2.9")
	}
	if c.Matches(mustV(t, "0.3.0")) {
		t.Error("^0.2.3 should reject 0.3.0")
	}
}

func TestTildeConstraint(t *testing.T) {
	c := mustParseC(t, "~1.2")
	if c.Matches(mustV(t, "1.3.0")) {
		t.Error("~1.2 should reject 1.3.0")
	}
	if !c.Matches(mustV(t, "1.2.17")) {
		t.Error("~1.2 should accept 1.2.17")
	}
}

func TestWildcardConstraint(t *testing.T) {
	c := mustParseC(t, "1.2.*")
	if c.Matches(mustV(t, "1.3.0")) {
		t.Error("1.2.* should reject 1.3.0")
	}
	if !c.Matches(mustV(t, "1.2.17")) {
		t.Error("1.2.* should accept 1.2.17")
	}
}

func TestHyphenRange(t *testing.T) {
	c := mustParseC(t, "1.0 - 2.0")
	if !c.Matches(mustV(t, "1.0.0")) {
		t.Error("1.0 - 2.0 should include 1.0.0")
	}
	if c.Matches(mustV(t, "2.1.0")) {
		t.Error("1.0 - 2.0 should exclude 2.1.0")
	}
	if !c.Matches(mustV(t, "2.0.0")) {
		t.Error("1.0 - 2.0 (partial upper) should include 2.0.0")
	}
}

func TestOrAndPrecedence(t *testing.T) {
	// "1.0, 2.0 || 3.0" means (1.0 AND 2.0) OR 3.0 -- the first branch is
	// unsatisfiable (two distinct exact versions), so only 3.0.0 matches.
	c := mustParseC(t, "1.0, 2.0 || 3.0")
	if c.Matches(mustV(t, "1.0.0")) {
		t.Error("unexpected match on 1.0.0")
	}
	if !c.Matches(mustV(t, "3.0.0")) {
		t.Error("expected match on 3.0.0")
	}
}

func TestDevBranchConstraint(t *testing.T) {
	c := mustParseC(t, "dev-master")
	if !c.Matches(mustV(t, "dev-master")) {
		t.Error("expected dev-master to match itself")
	}
	if c.Matches(mustV(t, "dev-feature")) {
		t.Error("dev-master should not match dev-feature")
	}
}

func TestStabilityFloorSuffix(t *testing.T) {
	_, floor, hasFloor, err := ParseConstraint(">=1.0@dev")
	if err != nil {
		t.Fatal(err)
	}
	if !hasFloor {
		t.Error("expected hasFloor to be true for an explicit @dev suffix")
	}
	if floor != StabilityDev {
		t.Errorf("expected dev floor, got %v", floor)
	}
}

func TestStabilityFloorExplicitStableIsNotDroppedAsAbsent(t *testing.T) {
	_, floor, hasFloor, err := ParseConstraint(">=1.0@stable")
	if err != nil {
		t.Fatal(err)
	}
	if !hasFloor {
		t.Error("expected hasFloor to be true for an explicit @stable suffix, even though its value equals the zero floor")
	}
	if floor != StabilityStable {
		t.Errorf("expected stable floor, got %v", floor)
	}
}

func TestStabilityFloorAbsentWhenNoSuffix(t *testing.T) {
	_, _, hasFloor, err := ParseConstraint(">=1.0")
	if err != nil {
		t.Fatal(err)
	}
	if hasFloor {
		t.Error("expected hasFloor to be false when no @stability suffix is present")
	}
}

func TestIntersectNarrows(t *testing.T) {
	a := mustParseC(t, ">=1.0.0")
	b := mustParseC(t, "<2.0.0")
	i := a.Intersect(b)
	if !i.Matches(mustV(t, "1.5.0")) {
		t.Error("intersection should accept 1.5.0")
	}
	if i.Matches(mustV(t, "2.0.0")) {
		t.Error("intersection should reject 2.0.0")
	}
}

func TestIntersectEmpty(t *testing.T) {
	a := mustParseC(t, "^1.0")
	b := mustParseC(t, "^2.0")
	if a.Intersect(b) != None() {
		t.Error("^1.0 and ^2.0 should not intersect")
	}
}
