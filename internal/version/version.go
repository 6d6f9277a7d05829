// Package version implements Composer-flavored version parsing, ordering,
// and constraint matching (component V of the design).
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Stability is the prerelease rank of a Version, ordered dev < alpha <
// beta < RC < stable.
type Stability int

const (
	StabilityDev Stability = iota
	StabilityAlpha
	StabilityBeta
	StabilityRC
	StabilityStable
)

func (s Stability) String() string {
	switch s {
	case StabilityDev:
		return "dev"
	case StabilityAlpha:
		return "alpha"
	case StabilityBeta:
		return "beta"
	case StabilityRC:
		return "RC"
	default:
		return "stable"
	}
}

// ParseStability maps a stability tag spelling (case-insensitively) to its
// rank. An unrecognized spelling is treated as stable, matching Composer's
// permissive behavior for unknown suffixes.
func ParseStability(tag string) Stability {
	switch strings.ToLower(tag) {
	case "dev":
		return StabilityDev
	case "a", "alpha":
		return StabilityAlpha
	case "b", "beta":
		return StabilityBeta
	case "rc":
		return StabilityRC
	default:
		return StabilityStable
	}
}

// Version is the 4-tuple (major, minor, patch, build) plus optional
// prerelease and dev-branch markers described in spec §3/§4.1.
type Version struct {
	Major, Minor, Patch, Build int

	Stability   Stability
	PreNum      int // the numeric suffix of a prerelease tag, e.g. "RC2" -> 2
	HasPre      bool
	IsBranch    bool   // true for "dev-<name>" branch versions
	BranchName  string // populated when IsBranch
	original    string
}

// String returns the canonical textual form, not necessarily the original
// input text (use Original for that).
func (v Version) String() string {
	if v.IsBranch {
		return "dev-" + v.BranchName
	}
	s := fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
	if v.HasPre {
		tag := v.Stability.String()
		if v.Stability == StabilityDev {
			s += "-dev"
		} else {
			s += fmt.Sprintf("-%s%d", tag, v.PreNum)
		}
	}
	return s
}

// Original returns the exact text this Version was parsed from.
func (v Version) Original() string {
	if v.original == "" {
		return v.String()
	}
	return v.original
}

var numRE = `(\d+)`

// ParseVersion parses a Composer-style version string: an optional leading
// "v", 1-4 dot-separated numeric components (missing trailing components
// default to zero), an optional prerelease tag, or a "dev-<branch>" marker.
func ParseVersion(text string) (Version, error) {
	orig := text
	t := strings.TrimSpace(text)
	if t == "" {
		return Version{}, &ParseError{Text: orig, Reason: "empty version string"}
	}

	if strings.HasPrefix(t, "dev-") {
		return Version{IsBranch: true, BranchName: t[len("dev-"):], original: orig}, nil
	}

	t = strings.TrimPrefix(t, "v")

	// split off a prerelease tag, introduced by '-' or, informally, by a
	// trailing alpha run glued to the numeric tuple (e.g. "1.0.0RC1").
	core, pre, hasPre := splitPrerelease(t)

	parts := strings.Split(core, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return Version{}, &ParseError{Text: orig, Reason: "expected 1-4 numeric components"}
	}

	var nums [4]int
	for i, p := range parts {
		if p == "" {
			return Version{}, &ParseError{Text: orig, Reason: "empty version component"}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, &ParseError{Text: orig, Reason: fmt.Sprintf("invalid numeric component %q", p)}
		}
		nums[i] = n
	}

	v := Version{
		Major: nums[0], Minor: nums[1], Patch: nums[2], Build: nums[3],
		Stability: StabilityStable,
		original:  orig,
	}

	if hasPre {
		st, num, err := parsePreTag(pre)
		if err != nil {
			return Version{}, &ParseError{Text: orig, Reason: err.Error()}
		}
		v.HasPre = true
		v.Stability = st
		v.PreNum = num
	}

	return v, nil
}

// splitPrerelease separates the numeric core from a trailing prerelease tag.
// Accepts "-alpha.3", "-RC1", "-dev", and the looser glued forms Composer
// tolerates such as "1.0.0RC1" or "1.0.0alpha1".
func splitPrerelease(t string) (core, pre string, has bool) {
	if i := strings.IndexByte(t, '-'); i >= 0 {
		return t[:i], t[i+1:], true
	}
	// look for a glued alpha run after the last digit
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c < '0' || c > '9') && c != '.' {
			return t[:i], t[i:], true
		}
	}
	return t, "", false
}

func parsePreTag(pre string) (Stability, int, error) {
	pre = strings.TrimPrefix(pre, ".")
	if strings.EqualFold(pre, "dev") {
		return StabilityDev, 0, nil
	}

	lower := strings.ToLower(pre)
	var tag, numPart string
	switch {
	case strings.HasPrefix(lower, "alpha"):
		tag, numPart = "alpha", pre[len("alpha"):]
	case strings.HasPrefix(lower, "beta"):
		tag, numPart = "beta", pre[len("beta"):]
	case strings.HasPrefix(lower, "rc"):
		tag, numPart = "rc", pre[len("rc"):]
	case strings.HasPrefix(lower, "a"):
		tag, numPart = "alpha", pre[len("a"):]
	case strings.HasPrefix(lower, "b"):
		tag, numPart = "beta", pre[len("b"):]
	default:
		return 0, 0, errors.Errorf("unrecognized prerelease tag %q", pre)
	}

	numPart = strings.TrimPrefix(numPart, ".")
	num := 0
	if numPart != "" {
		n, err := strconv.Atoi(numPart)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "invalid prerelease number in %q", pre)
		}
		num = n
	}
	return ParseStability(tag), num, nil
}

// ParseError reports a parse failure alongside the offending text, per
// spec §4.1's error contract.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Text, e.Reason)
}

// Compare implements the total order from spec §3: tuple, then stability
// rank, then build, with branch versions sorting after stable versions.
func Compare(a, b Version) int {
	if a.IsBranch || b.IsBranch {
		switch {
		case a.IsBranch && b.IsBranch:
			return strings.Compare(a.BranchName, b.BranchName)
		case a.IsBranch:
			return 1
		default:
			return -1
		}
	}

	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	if c := compareInt(a.Build, b.Build); c != 0 {
		return c
	}
	if c := compareInt(int(a.Stability), int(b.Stability)); c != 0 {
		return c
	}
	return compareInt(a.PreNum, b.PreNum)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts before b under Compare.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// Equal reports value equality under Compare (not textual equality).
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// StabilityRank returns the numeric rank used for stability-floor checks.
func (v Version) StabilityRank() Stability {
	if v.IsBranch {
		return StabilityDev
	}
	if v.HasPre {
		return v.Stability
	}
	return StabilityStable
}
