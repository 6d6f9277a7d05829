// Package resolver implements the PubGrub-flavored dependency solver
// (component R): a CDCL-style decision/backtrack loop over Composer-
// flavored constraints, producing either a complete resolution or a
// stable conflict narrative. Grounded on the teacher's solver.go (the
// selection-stack + unselected-priority-queue + version-queue backtracking
// shape) and satisfy.go/selection.go, generalized from Go import-reach
// analysis to explicit require/require-dev/replace/provide records.
package resolver

import (
	"context"
	"errors"
	"sort"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
)

// Mode selects the version-ordering policy used when trying candidates
// for a package, per spec §4.5.
type Mode int

const (
	ModeNewest Mode = iota
	ModeLowest
	ModeLockCompat
)

// Index is the subset of internal/index.Index the solver depends on,
// kept narrow so tests can substitute a fake package universe.
type Index interface {
	Versions(ctx context.Context, name model.Name, c version.Constraint, floor version.Stability) ([]model.VersionEntry, error)
	Providers(name model.Name) []model.Name
}

// Options configures a resolve run, per spec §4.5.
type Options struct {
	Mode         Mode
	MinStability version.Stability
	PreferStable bool
	LockHints    map[model.Name]version.Version
	Pinned       map[model.Name]version.Version
	DevMode      bool
}

// Resolution is a successful solve: one chosen version entry per
// resolved package name.
type Resolution struct {
	Packages map[model.Name]model.VersionEntry
}

// Solver runs one resolve operation. It is not safe for concurrent
// reuse across calls; build a fresh Solver per Resolve.
type Solver struct {
	idx  Index
	opts Options

	// states holds one pkgState per package name that has ever had a
	// requirer, keyed by name. Entries persist across backtracking so
	// their candidate lists need not be refetched.
	states map[model.Name]*pkgState

	// selection is the decision stack, in the order packages were chosen.
	// Backtracking pops from the end.
	selection []model.Name

	attempts int
}

// New builds a Solver against idx with the given options.
func New(idx Index, opts Options) *Solver {
	return &Solver{
		idx:    idx,
		opts:   opts,
		states: make(map[model.Name]*pkgState),
	}
}

// Resolve seeds the virtual root with rootDeps and runs the decision
// loop to completion, per spec §4.5's algorithm.
func (s *Solver) Resolve(ctx context.Context, rootDeps []model.DependencyRecord) (*Resolution, error) {
	for _, dep := range rootDeps {
		if dep.Kind == model.KindSuggest {
			continue
		}
		if dep.Kind == model.KindDev && !s.opts.DevMode {
			continue
		}
		st := s.stateFor(dep.Target)
		st.addRequirer(requirer{
			fromRoot:   true,
			constraint: dep.Constraint,
			floor:      s.effectiveFloor(dep),
		})
	}

	for {
		name, ok := s.nextUndecided()
		if !ok {
			break
		}

		if err := s.decide(ctx, name); err != nil {
			var ce *ConflictError
			if errors.As(err, &ce) {
				if s.backtrackPast(name) {
					continue
				}
			}
			return nil, err
		}
	}

	out := &Resolution{Packages: make(map[model.Name]model.VersionEntry, len(s.selection))}
	for _, name := range s.selection {
		st := s.states[name]
		key := name
		if st.viaProvider != "" {
			key = st.viaProvider
		}
		out.Packages[key] = st.chosen
	}
	return out, nil
}

func (s *Solver) effectiveFloor(dep model.DependencyRecord) version.Stability {
	if dep.HasStabilityFloor {
		return dep.StabilityFloor
	}
	return s.opts.MinStability
}

func (s *Solver) stateFor(name model.Name) *pkgState {
	st, ok := s.states[name]
	if !ok {
		st = &pkgState{name: name}
		s.states[name] = st
	}
	return st
}

// nextUndecided picks the next package to work on using the priority
// order from spec §4.5: fewest remaining candidates first, then
// lockfile-hinted packages, then alphabetical.
func (s *Solver) nextUndecided() (model.Name, bool) {
	var candidates []model.Name
	for name, st := range s.states {
		if st.hasRequirers() && !st.decided {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := s.states[candidates[i]], s.states[candidates[j]]
		return s.lessPriority(a, b)
	})
	return candidates[0], true
}

func (s *Solver) lessPriority(a, b *pkgState) bool {
	if a.candidatesKnown && b.candidatesKnown && len(a.candidates) != len(b.candidates) {
		return len(a.candidates) < len(b.candidates)
	}
	_, aHint := s.opts.LockHints[a.name]
	_, bHint := s.opts.LockHints[b.name]
	if aHint != bHint {
		return aHint
	}
	return a.name < b.name
}

// backtrackPast undoes decisions back through (and including) the
// package that just failed to find a candidate, resuming at the most
// recent prior decision that still has untried candidates. Returns
// false if no further backtracking is possible (solve has failed).
func (s *Solver) backtrackPast(failed model.Name) bool {
	for len(s.selection) > 0 {
		last := s.selection[len(s.selection)-1]
		s.selection = s.selection[:len(s.selection)-1]
		s.undecide(last)

		st := s.states[last]
		st.triedIdx++
		if st.triedIdx < len(st.candidates) {
			if err := s.commit(last, st.candidates[st.triedIdx]); err == nil {
				s.attempts++
				return true
			}
		}
	}
	return false
}

// undecide reverts a package's decision and removes the requirer edges
// it had pushed onto its dependencies, mirroring the teacher's
// unselectLast.
func (s *Solver) undecide(name model.Name) {
	st := s.states[name]
	st.decided = false
	for _, pushed := range st.pushedTo {
		target := s.states[pushed]
		target.removeRequirerFrom(name)
	}
	st.pushedTo = nil
	st.chosen = model.VersionEntry{}
}
