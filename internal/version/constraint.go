package version

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Constraint is a boolean combination of atomic clauses over Versions, per
// spec §4.1. The private method keeps the set of implementations closed to
// this package, same shape as the teacher's gps.Constraint.
type Constraint interface {
	fmt.Stringer
	Matches(Version) bool
	MatchesAny(Constraint) bool
	Intersect(Constraint) Constraint
	gatherAtoms(*[]rangeClause)
}

// MinStability is the floor under which versions are hidden unless the
// constraint's own stability suffix (or an explicit floor) allows them.
type MinStability = Stability

var (
	any  Constraint = anyConstraint{}
	none Constraint = noneConstraint{}
)

// Any returns the constraint that matches every version.
func Any() Constraint { return any }

// None returns the constraint that matches no version.
func None() Constraint { return none }

type anyConstraint struct{}

func (anyConstraint) String() string                  { return "*" }
func (anyConstraint) Matches(Version) bool             { return true }
func (anyConstraint) MatchesAny(Constraint) bool       { return true }
func (anyConstraint) Intersect(c Constraint) Constraint { return c }
func (anyConstraint) gatherAtoms(*[]rangeClause)        {}

type noneConstraint struct{}

func (noneConstraint) String() string                  { return "<none>" }
func (noneConstraint) Matches(Version) bool             { return false }
func (noneConstraint) MatchesAny(Constraint) bool       { return false }
func (noneConstraint) Intersect(Constraint) Constraint { return none }
func (noneConstraint) gatherAtoms(*[]rangeClause)       {}

// rangeClause is a single atomic bound: min <= v <= max (bounds optional,
// inclusivity tracked independently). A single exact version is a range
// whose min == max and both inclusive.
type rangeClause struct {
	hasMin, hasMax         bool
	min, max               Version
	minIncl, maxIncl       bool
}

func (r rangeClause) String() string {
	switch {
	case r.hasMin && r.hasMax && Equal(r.min, r.max) && r.minIncl && r.maxIncl:
		return r.min.String()
	case r.hasMin && r.hasMax:
		lo, hi := ">=", "<="
		if !r.minIncl {
			lo = ">"
		}
		if !r.maxIncl {
			hi = "<"
		}
		return fmt.Sprintf("%s%s %s%s", lo, r.min, hi, r.max)
	case r.hasMin:
		op := ">="
		if !r.minIncl {
			op = ">"
		}
		return op + r.min.String()
	case r.hasMax:
		op := "<="
		if !r.maxIncl {
			op = "<"
		}
		return op + r.max.String()
	default:
		return "*"
	}
}

func (r rangeClause) Matches(v Version) bool {
	if v.IsBranch {
		return false
	}
	if r.hasMin {
		c := Compare(v, r.min)
		if c < 0 || (c == 0 && !r.minIncl) {
			return false
		}
	}
	if r.hasMax {
		c := Compare(v, r.max)
		if c > 0 || (c == 0 && !r.maxIncl) {
			return false
		}
	}
	return true
}

func (r rangeClause) MatchesAny(c Constraint) bool {
	return r.Intersect(c) != none
}

func (r rangeClause) Intersect(c Constraint) Constraint {
	switch tc := c.(type) {
	case anyConstraint:
		return r
	case noneConstraint:
		return none
	case rangeClause:
		out := r
		if tc.hasMin {
			if !out.hasMin || Compare(tc.min, out.min) > 0 || (Compare(tc.min, out.min) == 0 && !tc.minIncl) {
				out.hasMin, out.min, out.minIncl = true, tc.min, tc.minIncl
			}
		}
		if tc.hasMax {
			if !out.hasMax || Compare(tc.max, out.max) < 0 || (Compare(tc.max, out.max) == 0 && !tc.maxIncl) {
				out.hasMax, out.max, out.maxIncl = true, tc.max, tc.maxIncl
			}
		}
		if out.hasMin && out.hasMax {
			c := Compare(out.min, out.max)
			if c > 0 || (c == 0 && !(out.minIncl && out.maxIncl)) {
				return none
			}
		}
		return out
	case branchConstraint:
		return none
	case orConstraint:
		var results []Constraint
		for _, sub := range tc.clauses {
			if ic := r.Intersect(sub); ic != none {
				results = append(results, ic)
			}
		}
		return simplifyOr(results)
	case andConstraint:
		return tc.Intersect(r)
	}
	return none
}

func (r rangeClause) gatherAtoms(out *[]rangeClause) { *out = append(*out, r) }

// branchConstraint matches exactly one dev branch by name.
type branchConstraint struct {
	name string
}

func (b branchConstraint) String() string { return "dev-" + b.name }
func (b branchConstraint) Matches(v Version) bool {
	return v.IsBranch && v.BranchName == b.name
}
func (b branchConstraint) MatchesAny(c Constraint) bool { return b.Intersect(c) != none }
func (b branchConstraint) Intersect(c Constraint) Constraint {
	switch tc := c.(type) {
	case anyConstraint:
		return b
	case branchConstraint:
		if tc.name == b.name {
			return b
		}
		return none
	case orConstraint:
		for _, sub := range tc.clauses {
			if ic := b.Intersect(sub); ic != none {
				return ic
			}
		}
	}
	return none
}
func (b branchConstraint) gatherAtoms(*[]rangeClause) {}

// andConstraint is the conjunction of its clauses (AND binds tighter than
// OR, per spec §4.1).
type andConstraint struct {
	clauses []Constraint
}

func (a andConstraint) String() string {
	parts := make([]string, len(a.clauses))
	for i, c := range a.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func (a andConstraint) Matches(v Version) bool {
	for _, c := range a.clauses {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

func (a andConstraint) MatchesAny(c Constraint) bool { return a.Intersect(c) != none }

func (a andConstraint) Intersect(c Constraint) Constraint {
	result := Constraint(any)
	for _, clause := range a.clauses {
		result = result.Intersect(clause)
		if result == none {
			return none
		}
	}
	return result.Intersect(c)
}

func (a andConstraint) gatherAtoms(out *[]rangeClause) {
	for _, c := range a.clauses {
		c.gatherAtoms(out)
	}
}

// orConstraint is the disjunction of its clauses.
type orConstraint struct {
	clauses []Constraint
}

func (o orConstraint) String() string {
	parts := make([]string, len(o.clauses))
	for i, c := range o.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " || ")
}

func (o orConstraint) Matches(v Version) bool {
	for _, c := range o.clauses {
		if c.Matches(v) {
			return true
		}
	}
	return false
}

func (o orConstraint) MatchesAny(c Constraint) bool {
	for _, clause := range o.clauses {
		if clause.MatchesAny(c) {
			return true
		}
	}
	return false
}

func (o orConstraint) Intersect(c Constraint) Constraint {
	var results []Constraint
	for _, clause := range o.clauses {
		if ic := clause.Intersect(c); ic != none {
			results = append(results, ic)
		}
	}
	return simplifyOr(results)
}

func (o orConstraint) gatherAtoms(out *[]rangeClause) {
	for _, c := range o.clauses {
		c.gatherAtoms(out)
	}
}

func simplifyOr(cs []Constraint) Constraint {
	switch len(cs) {
	case 0:
		return none
	case 1:
		return cs[0]
	default:
		return orConstraint{clauses: cs}
	}
}

// exact builds a single-version range clause.
func exact(v Version) rangeClause {
	return rangeClause{hasMin: true, hasMax: true, min: v, max: v, minIncl: true, maxIncl: true}
}

func gte(v Version) rangeClause { return rangeClause{hasMin: true, min: v, minIncl: true} }
func gt(v Version) rangeClause  { return rangeClause{hasMin: true, min: v, minIncl: false} }
func lte(v Version) rangeClause { return rangeClause{hasMax: true, max: v, maxIncl: true} }
func lt(v Version) rangeClause  { return rangeClause{hasMax: true, max: v, maxIncl: false} }

// ---- memoized evaluation ----
//
// Evaluation of (constraint, version) is memoized in a concurrent map, as
// required by spec §4.1's caching policy. Keys are hashed with xxhash,
// which is appropriate here because the memo table is not a security
// boundary -- only a performance one.

var memo evalCache

func init() {
	memo.m = make(map[uint64]bool, 1024)
}

type evalCache struct {
	mu sync.RWMutex
	m  map[uint64]bool
}

func memoKey(c Constraint, v Version) uint64 {
	h := xxhash.New()
	h.WriteString(c.String())
	h.WriteString("@")
	h.WriteString(v.Original())
	return h.Sum64()
}

// Matches evaluates whether v satisfies c, consulting and populating the
// shared memoization cache.
func Matches(c Constraint, v Version) bool {
	key := memoKey(c, v)
	memo.mu.RLock()
	if b, ok := memo.m[key]; ok {
		memo.mu.RUnlock()
		return b
	}
	memo.mu.RUnlock()

	b := c.Matches(v)

	memo.mu.Lock()
	memo.m[key] = b
	memo.mu.Unlock()
	return b
}

// ParseConstraint parses the grammar from spec §4.1: whitespace/comma/pipe
// as AND, double-pipe as OR (AND binds tighter), exact/range/hyphen/wildcard/
// tilde/caret atoms, dev-branch matches, and a trailing "@stability" floor.
//
// The returned Constraint never itself encodes a stability floor -- callers
// combine the parsed floor (second return value) with the resolver's
// min_stability option, per spec §4.5. The third return value reports
// whether an explicit "@stability" floor was present in text at all, so an
// explicit "@stable" (whose Stability value is indistinguishable from "no
// floor given" by value alone) is not silently treated as absent by a
// caller that only looks at the Stability value.
func ParseConstraint(text string) (Constraint, Stability, bool, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return any, StabilityStable, false, nil
	}

	floor := StabilityStable
	hasFloor := false
	if i := strings.LastIndex(t, "@"); i >= 0 {
		tag := t[i+1:]
		if isStabilityTag(tag) {
			floor = ParseStability(tag)
			hasFloor = true
			t = strings.TrimSpace(t[:i])
		}
	}

	if t == "" || t == "*" {
		return any, floor, hasFloor, nil
	}

	orParts := splitTop(t, "||")
	var orClauses []Constraint
	for _, op := range orParts {
		andParts := splitAndParts(op)
		var andClauses []Constraint
		for _, ap := range andParts {
			c, err := parseAtomOrHyphen(ap)
			if err != nil {
				return nil, 0, false, err
			}
			andClauses = append(andClauses, c)
		}
		switch len(andClauses) {
		case 0:
			return nil, 0, false, &ParseError{Text: text, Reason: "empty constraint clause"}
		case 1:
			orClauses = append(orClauses, andClauses[0])
		default:
			orClauses = append(orClauses, andConstraint{clauses: andClauses})
		}
	}

	switch len(orClauses) {
	case 1:
		return orClauses[0], floor, hasFloor, nil
	default:
		return orConstraint{clauses: orClauses}, floor, hasFloor, nil
	}
}

func isStabilityTag(s string) bool {
	switch strings.ToLower(s) {
	case "dev", "alpha", "beta", "rc", "stable", "a", "b":
		return true
	}
	return false
}

// splitTop splits on a top-level separator (not inside whitespace-hyphen
// ranges); "||" never appears inside an atom so a plain split is safe.
func splitTop(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitAndParts splits an AND-level clause on commas or whitespace, while
// keeping a hyphen range ("1.0 - 2.0") and a comparator-operand pair
// ("<=", "1.2.3") glued together.
func splitAndParts(s string) []string {
	// First try comma-separated (Composer's unambiguous AND separator).
	if strings.Contains(s, ",") {
		var out []string
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	fields := strings.Fields(s)
	var out []string
	i := 0
	for i < len(fields) {
		f := fields[i]
		// Hyphen range: "A - B" (standalone "-" token).
		if i+2 < len(fields) && fields[i+1] == "-" {
			out = append(out, f+" - "+fields[i+2])
			i += 3
			continue
		}
		// Comparator glued to next token: ">=", "1.2.3" (split by Fields
		// already keeps them separate only if there's a space; if the
		// operator and version are separate fields, glue them).
		if isBareComparator(f) && i+1 < len(fields) {
			out = append(out, f+fields[i+1])
			i += 2
			continue
		}
		out = append(out, f)
		i++
	}
	return out
}

func isBareComparator(s string) bool {
	switch s {
	case ">=", "<=", ">", "<", "=", "^", "~":
		return true
	}
	return false
}

func parseAtomOrHyphen(s string) (Constraint, error) {
	if strings.Contains(s, " - ") {
		parts := strings.SplitN(s, " - ", 2)
		lo := strings.TrimSpace(parts[0])
		hi := strings.TrimSpace(parts[1])
		return parseHyphenRange(lo, hi)
	}
	return parseAtom(s)
}

// parseHyphenRange implements "A - B": if B is a partial version (fewer
// than 4 numeric components and no prerelease), its upper bound is
// exclusive of the next value at the omitted precision, per spec §4.1
// ("upper bound is <1.3.0" for "1.2").
func parseHyphenRange(lo, hi string) (Constraint, error) {
	loV, err := ParseVersion(lo)
	if err != nil {
		return nil, err
	}
	hiParts := strings.Split(strings.TrimPrefix(hi, "v"), ".")
	hiV, err := ParseVersion(hi)
	if err != nil {
		return nil, err
	}

	min := gte(loV)
	if len(hiParts) >= 4 {
		return rangeClause{hasMin: true, min: loV, minIncl: true, hasMax: true, max: hiV, maxIncl: true}, nil
	}
	upper := bumpAt(hiV, len(hiParts))
	return rangeClause{hasMin: min.hasMin, min: min.min, minIncl: true, hasMax: true, max: upper, maxIncl: false}, nil
}

// bumpAt returns the version obtained by incrementing the component at
// index (0=major,1=minor,2=patch) and zeroing everything after it --
// the "next value at this precision" used by wildcard/tilde/hyphen rules.
func bumpAt(v Version, precision int) Version {
	out := v
	out.HasPre = false
	out.Stability = StabilityStable
	out.PreNum = 0
	switch precision {
	case 1:
		out.Major++
		out.Minor, out.Patch, out.Build = 0, 0, 0
	case 2:
		out.Minor++
		out.Patch, out.Build = 0, 0
	default:
		out.Patch++
		out.Build = 0
	}
	return out
}

func parseAtom(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return any, nil
	}
	if strings.HasPrefix(s, "dev-") {
		return branchConstraint{name: s[len("dev-"):]}, nil
	}

	switch {
	case strings.HasPrefix(s, ">="):
		v, err := ParseVersion(s[2:])
		if err != nil {
			return nil, err
		}
		return gte(v), nil
	case strings.HasPrefix(s, "<="):
		v, err := ParseVersion(s[2:])
		if err != nil {
			return nil, err
		}
		return lte(v), nil
	case strings.HasPrefix(s, ">"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return nil, err
		}
		return gt(v), nil
	case strings.HasPrefix(s, "<"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return nil, err
		}
		return lt(v), nil
	case strings.HasPrefix(s, "="):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return nil, err
		}
		return exact(v), nil
	case strings.HasPrefix(s, "^"):
		return parseCaret(s[1:])
	case strings.HasPrefix(s, "~"):
		return parseTilde(s[1:])
	}

	if strings.HasSuffix(s, ".*") || strings.HasSuffix(s, ".x") || strings.HasSuffix(s, ".X") {
		base := s[:len(s)-2]
		return parseWildcard(base)
	}
	if s == "*" {
		return any, nil
	}

	v, err := ParseVersion(s)
	if err != nil {
		return nil, err
	}
	return exact(v), nil
}

func parseWildcard(base string) (Constraint, error) {
	parts := strings.Split(base, ".")
	v, err := ParseVersion(base)
	if err != nil {
		return nil, err
	}
	upper := bumpAt(v, len(parts))
	return rangeClause{hasMin: true, min: v, minIncl: true, hasMax: true, max: upper, maxIncl: false}, nil
}

// parseCaret implements "^X" => ">=X.0.0 <(X+1).0.0" for X>=1, and the
// leading-zero-major special cases ("^0.Y" => ">=0.Y.0 <0.(Y+1).0",
// "^0.0.Z" => ">=0.0.Z <0.0.(Z+1)"), matching Composer/npm caret semantics.
func parseCaret(body string) (Constraint, error) {
	v, err := ParseVersion(body)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(body, ".")

	var upper Version
	switch {
	case v.Major > 0:
		upper = Version{Major: v.Major + 1, Stability: StabilityStable}
	case v.Minor > 0:
		upper = Version{Major: 0, Minor: v.Minor + 1, Stability: StabilityStable}
	case len(parts) >= 3 && v.Patch > 0:
		upper = Version{Major: 0, Minor: 0, Patch: v.Patch + 1, Stability: StabilityStable}
	default:
		// ^0 or ^0.0 or ^0.0.0: degenerate to just above the given precision.
		upper = bumpAt(v, maxInt(len(parts), 1))
	}

	floor := v
	floor.HasPre = false
	floor.Stability = StabilityStable
	floor.PreNum = 0
	return rangeClause{hasMin: true, min: floor, minIncl: true, hasMax: true, max: upper, maxIncl: false}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// parseTilde implements "~X.Y" => ">=X.Y.0 <X.(Y+1).0" and "~X" =>
// ">=X.0.0 <(X+1).0.0".
func parseTilde(body string) (Constraint, error) {
	v, err := ParseVersion(body)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(body, ".")
	precision := len(parts)
	if precision < 1 {
		precision = 1
	}

	floor := v
	floor.HasPre = false
	floor.Stability = StabilityStable
	floor.PreNum = 0
	upper := bumpAt(v, precision)
	return rangeClause{hasMin: true, min: floor, minIncl: true, hasMax: true, max: upper, maxIncl: false}, nil
}

// Best selects the highest (mode=newest) or lowest (mode=lowest) version in
// list that satisfies c and meets the stability floor.
type Mode int

const (
	ModeNewest Mode = iota
	ModeLowest
)

func Best(list []Version, c Constraint, floor Stability, mode Mode) (Version, bool) {
	var best Version
	found := false
	for _, v := range list {
		if v.StabilityRank() < floor {
			continue
		}
		if !Matches(c, v) {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		cmp := Compare(v, best)
		if (mode == ModeNewest && cmp > 0) || (mode == ModeLowest && cmp < 0) {
			best = v
		}
	}
	return best, found
}
