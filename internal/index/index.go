// Package index implements the resolver-facing package index (component
// X): a per-name memoization layer in front of the registry client, plus
// the virtual-package table used to resolve "provide"/"replace" records
// to the concrete package that satisfies them. Grounded on the teacher's
// bridge.go (the solver-facing cache/memo layer in front of a
// SourceManager) and selection.go's per-name version list handling.
package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
)

// state is the per-name fetch lifecycle from spec §4.4.
type state int

const (
	stateUncached state = iota
	stateFetching
	stateReady
	stateFailed
)

// failedRetryBackoff is how long a stateFailed entry keeps returning its
// cached error before Get tries the registry again, per spec §4.4's
// retry-after-a-short-backoff-window requirement.
const failedRetryBackoff = 10 * time.Second

// Fetcher is the subset of registry.Client the index depends on, kept
// narrow so tests can substitute a fake registry.
type Fetcher interface {
	Fetch(ctx context.Context, name model.Name) ([]model.VersionEntry, error)
}

type entryState struct {
	mu       sync.Mutex
	state    state
	entries  []model.VersionEntry
	err      error
	done     chan struct{}
	failedAt time.Time
}

// Index memoizes registry lookups per package name and tracks which
// concrete packages provide or replace which virtual names, per spec
// §4.4/§4.2.
type Index struct {
	fetcher Fetcher

	mu     sync.RWMutex
	names  map[model.Name]*entryState
	// virtual maps a provided/replaced name to the set of concrete
	// package names observed to provide or replace it.
	virtual map[model.Name]map[model.Name]struct{}
}

// New builds an Index backed by fetcher.
func New(fetcher Fetcher) *Index {
	return &Index{
		fetcher: fetcher,
		names:   make(map[model.Name]*entryState),
		virtual: make(map[model.Name]map[model.Name]struct{}),
	}
}

// Get returns every known version entry for name, fetching and caching on
// first access. Concurrent calls for the same name coalesce on the same
// in-flight fetch.
func (idx *Index) Get(ctx context.Context, name model.Name) ([]model.VersionEntry, error) {
	st := idx.stateFor(name)

	st.mu.Lock()
	switch st.state {
	case stateReady:
		entries, err := st.entries, st.err
		st.mu.Unlock()
		return entries, err
	case stateFetching:
		done := st.done
		st.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		st.mu.Lock()
		entries, err := st.entries, st.err
		st.mu.Unlock()
		return entries, err
	case stateFailed:
		if time.Since(st.failedAt) < failedRetryBackoff {
			err := st.err
			st.mu.Unlock()
			return nil, err
		}
		// Backoff window elapsed; retry as if this were the first fetch.
		fallthrough
	default: // stateUncached, or stateFailed past its backoff window
		st.state = stateFetching
		st.done = make(chan struct{})
		done := st.done
		st.mu.Unlock()

		entries, err := idx.fetcher.Fetch(ctx, name)

		st.mu.Lock()
		st.entries, st.err = entries, err
		if err != nil {
			st.state = stateFailed
			st.failedAt = time.Now()
		} else {
			st.state = stateReady
			idx.recordVirtualNames(name, entries)
		}
		st.mu.Unlock()
		close(done)
		return entries, err
	}
}

func (idx *Index) stateFor(name model.Name) *entryState {
	idx.mu.RLock()
	st, ok := idx.names[name]
	idx.mu.RUnlock()
	if ok {
		return st
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if st, ok := idx.names[name]; ok {
		return st
	}
	st = &entryState{}
	idx.names[name] = st
	return st
}

// recordVirtualNames indexes every name this package's versions provide
// or replace, so later lookups of the virtual name can discover the
// concrete provider. Must be called with st.mu held for name's entryState.
func (idx *Index) recordVirtualNames(name model.Name, entries []model.VersionEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		for _, d := range e.Deps {
			if d.Kind != model.KindProvide && d.Kind != model.KindReplace {
				continue
			}
			set, ok := idx.virtual[d.Target]
			if !ok {
				set = make(map[model.Name]struct{})
				idx.virtual[d.Target] = set
			}
			set[name] = struct{}{}
		}
	}
}

// Providers returns the concrete package names known to provide or
// replace the virtual name, in no particular order. Only accurate for
// names whose providing packages have already been fetched via Get.
func (idx *Index) Providers(name model.Name) []model.Name {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set := idx.virtual[name]
	out := make([]model.Name, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

// Versions returns name's known versions satisfying constraint c at or
// above stability floor, sorted descending by spec §3's total order
// (newest first) -- the order the resolver's decision heuristic expects
// to try first.
func (idx *Index) Versions(ctx context.Context, name model.Name, c version.Constraint, floor version.Stability) ([]model.VersionEntry, error) {
	entries, err := idx.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	matching := make([]model.VersionEntry, 0, len(entries))
	for _, e := range entries {
		if e.Version.StabilityRank() < floor {
			continue
		}
		if c != nil && !version.Matches(c, e.Version) {
			continue
		}
		matching = append(matching, e)
	}

	sort.Slice(matching, func(i, j int) bool {
		return version.Less(matching[j].Version, matching[i].Version)
	})

	return matching, nil
}

// Clear drops all cached state, forcing the next Get/Versions call to
// re-fetch from the registry. Used between resolver runs that must not
// see stale metadata, per spec §4.4.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.names = make(map[model.Name]*entryState)
	idx.virtual = make(map[model.Name]map[model.Name]struct{})
}
