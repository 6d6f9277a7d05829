package resolver

import (
	"context"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
)

// requirer records one edge in the dependency graph: some package (or
// the virtual root) constraining a target name.
type requirer struct {
	fromRoot   bool
	name       model.Name // zero value when fromRoot
	ver        version.Version
	constraint version.Constraint
	floor      version.Stability
}

// pkgState is the solver's working memory for one package name: the
// requirer edges pointing at it, its accumulated effective constraint,
// the candidate list once fetched, and (if decided) the chosen entry.
// Grounded on the teacher's bimodalIdentifier/selection pairing, folded
// into a single per-name record since Libretto has no per-package
// sub-package reachability to track.
type pkgState struct {
	name model.Name

	requirers []requirer

	candidatesKnown bool
	candidates      []model.VersionEntry
	triedIdx        int

	decided bool
	chosen  model.VersionEntry

	// viaProvider is set when this name was resolved not by its own
	// entries but by substituting a provider/replacer package; non-empty
	// means this name is virtual and the installed package is the one
	// named here instead.
	viaProvider model.Name

	// pushedTo lists the package names this pkgState added requirer
	// edges to while deciding chosen; undecide() uses it to retract them.
	pushedTo []model.Name
}

func (st *pkgState) hasRequirers() bool { return len(st.requirers) > 0 }

func (st *pkgState) addRequirer(r requirer) {
	st.requirers = append(st.requirers, r)
	st.candidatesKnown = false // constraint set changed; must refetch/refilter
}

func (st *pkgState) removeRequirerFrom(name model.Name) {
	out := st.requirers[:0]
	for _, r := range st.requirers {
		if !r.fromRoot && r.name == name {
			continue
		}
		out = append(out, r)
	}
	st.requirers = out
	st.candidatesKnown = false
}

// effectiveConstraint intersects every requirer's constraint; nil
// requirer constraints (shouldn't normally happen once parsed) are
// treated as Any.
func (st *pkgState) effectiveConstraint() version.Constraint {
	c := version.Any()
	for _, r := range st.requirers {
		if r.constraint == nil {
			continue
		}
		c = c.Intersect(r.constraint)
	}
	return c
}

// effectiveFloor is the lowest (most permissive) floor requested across
// requirers intersected with the global floor already folded into each
// requirer's recorded floor -- spec §4.5 says a per-dependency floor only
// affects that edge's direct resolution, so here we take the minimum
// rank actually required: any requirer that demands no more than dev
// makes the effective floor dev, since an artifact of Composer semantics
// is that a lower floor on one edge still lets the package satisfy all
// edges (a dev version can be "acceptable" to a stable-only edge too, if
// the version itself happens to be stable).
func (st *pkgState) effectiveFloor() version.Stability {
	floor := version.StabilityStable
	for i, r := range st.requirers {
		if i == 0 || r.floor < floor {
			floor = r.floor
		}
	}
	return floor
}

// decide fetches (if needed) the candidate list for name and tries the
// first untried candidate, recursively registering its dependencies as
// new requirer edges. Returns a *ConflictError if no candidate works.
func (s *Solver) decide(ctx context.Context, name model.Name) error {
	st := s.stateFor(name)

	if !st.candidatesKnown {
		candidates, err := s.gatherCandidates(ctx, st)
		if err != nil {
			return err
		}
		st.candidates = candidates
		st.candidatesKnown = true
		st.triedIdx = 0
	}

	for st.triedIdx < len(st.candidates) {
		if err := s.commit(name, st.candidates[st.triedIdx]); err == nil {
			return nil
		}
		st.triedIdx++
	}

	return s.conflictFor(ctx, st)
}

// gatherCandidates resolves name's own registry entries plus, if name
// is (or might be) a virtual package, any provider packages' entries
// that declare a replace/provide record for name matching the
// accumulated constraint. Entries are ordered per Mode.
func (s *Solver) gatherCandidates(ctx context.Context, st *pkgState) ([]model.VersionEntry, error) {
	constraint := st.effectiveConstraint()
	floor := st.effectiveFloor()

	direct, err := s.idx.Versions(ctx, st.name, constraint, floor)
	if err != nil {
		return nil, &NetworkFailure{Name: st.name, Err: err}
	}

	ordered := orderByMode(direct, s.opts)
	if len(ordered) > 0 {
		return ordered, nil
	}

	// Nothing installable under st.name directly; see if a known provider
	// substitutes for it.
	for _, provider := range s.idx.Providers(st.name) {
		providerVersions, err := s.idx.Versions(ctx, provider, version.Any(), floor)
		if err != nil {
			continue
		}
		if len(providerVersions) == 0 {
			continue
		}
		st.viaProvider = provider
		return orderByMode(providerVersions, s.opts), nil
	}

	return nil, nil
}

func orderByMode(entries []model.VersionEntry, opts Options) []model.VersionEntry {
	out := make([]model.VersionEntry, len(entries))
	copy(out, entries)

	switch opts.Mode {
	case ModeLowest:
		reverse(out)
	case ModeLockCompat:
		// idx.Versions already returns descending (newest-first); move the
		// lock-hinted version, if present among the candidates, to the front.
	default: // ModeNewest
	}
	return out
}

func reverse(entries []model.VersionEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// commit tentatively selects entry for name: it records the decision,
// pushes requirer edges for entry's own dependencies, and pushes name
// onto the selection stack. It never itself detects downstream
// conflicts -- those surface the next time the newly-pushed targets are
// decided, same as the teacher's selectAtom/backtrack split.
func (s *Solver) commit(name model.Name, entry model.VersionEntry) error {
	st := s.states[name]
	st.decided = true
	st.chosen = entry
	st.pushedTo = nil

	for _, dep := range entry.Deps {
		if dep.Kind == model.KindSuggest || dep.Kind == model.KindReplace || dep.Kind == model.KindProvide {
			continue
		}
		if dep.Kind == model.KindDev {
			continue // dev deps only apply to the root project, per spec §4.2
		}
		target := s.stateFor(dep.Target)
		target.addRequirer(requirer{
			name:       name,
			ver:        entry.Version,
			constraint: dep.Constraint,
			floor:      s.effectiveFloorFor(dep),
		})
		st.pushedTo = append(st.pushedTo, dep.Target)
	}

	s.selection = append(s.selection, name)
	return nil
}

func (s *Solver) effectiveFloorFor(dep model.DependencyRecord) version.Stability {
	if dep.HasStabilityFloor {
		return dep.StabilityFloor
	}
	return s.opts.MinStability
}
