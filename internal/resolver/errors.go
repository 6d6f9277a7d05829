package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
)

// PackageNotFoundError surfaces that a required name has no known
// versions anywhere in the reachable universe, per spec §4.5's failure
// taxonomy.
type PackageNotFoundError struct {
	Name model.Name
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package not found: %s", e.Name)
}

// NoMatchingVersionError surfaces that name exists but no version
// satisfies the accumulated constraint/stability floor.
type NoMatchingVersionError struct {
	Name       model.Name
	Constraint string
}

func (e *NoMatchingVersionError) Error() string {
	return fmt.Sprintf("no version of %s matches %s", e.Name, e.Constraint)
}

// StabilityFilteredOutError surfaces that candidates exist for name but
// all were excluded by the stability floor.
type StabilityFilteredOutError struct {
	Name  model.Name
	Floor string
}

func (e *StabilityFilteredOutError) Error() string {
	return fmt.Sprintf("no version of %s meets the %s stability floor", e.Name, e.Floor)
}

// NetworkFailure wraps an error propagated up from the index/fetcher
// while gathering candidates.
type NetworkFailure struct {
	Name model.Name
	Err  error
}

func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Name, e.Err)
}

func (e *NetworkFailure) Unwrap() error { return e.Err }

// ConflictError carries the human-readable narrative for an
// unsatisfiable set of requirements on a single package, per spec
// §4.5's "Conflict explanation" requirement.
type ConflictError struct {
	Name        model.Name
	Explanation string
}

func (e *ConflictError) Error() string { return e.Explanation }

// conflictFor builds the failure for st once its candidate list has come
// up empty. It first distinguishes a truly unknown package (no versions
// at all, regardless of constraint) from one whose versions just don't
// satisfy the accumulated requirement, then -- for the latter -- whether
// a single root requirement or multiple competing requirers are at fault.
func (s *Solver) conflictFor(ctx context.Context, st *pkgState) error {
	any, err := s.idx.Versions(ctx, st.name, version.Any(), 0)
	if err != nil {
		return &NetworkFailure{Name: st.name, Err: err}
	}
	if len(any) == 0 && len(s.idx.Providers(st.name)) == 0 {
		return &PackageNotFoundError{Name: st.name}
	}

	if len(st.requirers) == 1 && st.requirers[0].fromRoot {
		return &NoMatchingVersionError{Name: st.name, Constraint: st.effectiveConstraint().String()}
	}

	lines := describeRequirers(st.name, st.requirers)
	sort.Strings(lines)

	return &ConflictError{
		Name:        st.name,
		Explanation: fmt.Sprintf("Because %s, no version of %s can satisfy all of them.", strings.Join(lines, " and "), st.name),
	}
}

func describeRequirers(target model.Name, requirers []requirer) []string {
	lines := make([]string, 0, len(requirers))
	for _, r := range requirers {
		if r.fromRoot {
			lines = append(lines, fmt.Sprintf("the root package requires %s %s", target, r.constraint))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s requires %s %s", r.name, r.ver, target, r.constraint))
	}
	return lines
}
