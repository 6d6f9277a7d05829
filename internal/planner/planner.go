// Package planner implements the install planner/executor (component
// P): it drives the manifest → resolve → fetch/download/store/link
// pipeline and writes the lockfile atomically once every install task
// has succeeded. Grounded on the teacher's ensure.go (the overall
// solve-then-materialize command shape) and project_manager.go, and on
// the bounded-parallel errgroup+semaphore fan-out pattern used for
// concurrent registry/fetch work in the wider example pack (see
// DESIGN.md's per-component ledger entry for this package).
package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/libretto-pm/libretto/internal/config"
	"github.com/libretto-pm/libretto/internal/download"
	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/lockfile"
	"github.com/libretto-pm/libretto/internal/manifest"
	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/registry"
	"github.com/libretto-pm/libretto/internal/resolver"
	"github.com/libretto-pm/libretto/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Options configures one Install run.
type Options struct {
	DevMode bool
	// Update, when true, ignores lockfile version hints and re-resolves
	// to the newest versions permitted by the manifest.
	Update bool
	Mode   resolver.Mode
}

// Planner wires together the registry fetcher, index, resolver,
// downloader, and CAS into one install pipeline.
type Planner struct {
	cfg *config.Config
	idx *index.Index
	dl  *download.Client
	cas *store.Store
	log *logrus.Entry
}

// New builds a Planner from a resolved Config.
func New(cfg *config.Config, log *logrus.Entry) (*Planner, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}

	reg, err := registry.NewClient(defaultRegistryBaseURL(), cfg.CacheDir, log)
	if err != nil {
		return nil, errors.Wrap(err, "building registry client")
	}

	cas, err := store.New(filepath.Join(cfg.CacheDir, "cas"))
	if err != nil {
		return nil, errors.Wrap(err, "building content-addressable store")
	}

	return &Planner{
		cfg: cfg,
		idx: index.New(reg),
		dl:  download.NewClient(),
		cas: cas,
		log: log,
	}, nil
}

func defaultRegistryBaseURL() string {
	if u := os.Getenv("LIBRETTO_REGISTRY_URL"); u != "" {
		return u
	}
	return "https://repo.libretto-pm.org"
}

// Install runs the full pipeline and returns the lockfile that was
// written, or an error. On any failure, no lockfile is written and
// in-flight vendor materialization is rolled back, per spec §4.8/§7.
func (p *Planner) Install(ctx context.Context, opts Options) (*lockfile.Lockfile, error) {
	m, err := manifest.Load(filepath.Join(p.cfg.ProjectRoot, manifest.FileName))
	if err != nil {
		return nil, err
	}

	contentHash, err := m.ContentHash()
	if err != nil {
		return nil, errors.Wrap(err, "hashing manifest")
	}

	resolveOpts := resolver.Options{
		Mode:         opts.Mode,
		MinStability: m.MinimumStability,
		PreferStable: m.PreferStable,
		DevMode:      opts.DevMode,
	}

	if !opts.Update {
		existing, err := lockfile.Load(filepath.Join(p.cfg.ProjectRoot, lockfile.FileName))
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ContentHash == contentHash {
			resolveOpts.LockHints = existing.VersionHints()
			resolveOpts.Mode = resolver.ModeLockCompat
		}
	}

	sol := resolver.New(p.idx, resolveOpts)
	resolution, err := sol.Resolve(ctx, m.RootRequirements(opts.DevMode))
	if err != nil {
		return nil, err
	}

	devNames := devOnlyNames(m, resolution)

	if err := p.materializeAll(ctx, resolution); err != nil {
		return nil, err
	}

	lf := lockfile.FromResolution(resolution.Packages, devNames, contentHash)
	if err := lockfile.Write(filepath.Join(p.cfg.ProjectRoot, lockfile.FileName), lf); err != nil {
		return nil, err
	}
	return lf, nil
}

// devOnlyNames identifies resolved packages reachable only through the
// manifest's require-dev edges (a package reachable through both a prod
// and a dev edge is treated as prod), walking the resolution's selected
// entries with dev roots seeded first so prod reachability can override.
func devOnlyNames(m *manifest.Manifest, resolution *resolver.Resolution) map[model.Name]bool {
	reachableFrom := func(roots []model.DependencyRecord) map[model.Name]bool {
		seen := make(map[model.Name]bool)
		var stack []model.Name
		for _, r := range roots {
			stack = append(stack, r.Target)
		}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[n] {
				continue
			}
			seen[n] = true
			if entry, ok := resolution.Packages[n]; ok {
				for _, d := range entry.Deps {
					if d.Kind == model.KindRequired {
						stack = append(stack, d.Target)
					}
				}
			}
		}
		return seen
	}

	devReachable := reachableFrom(m.RequireDev)
	prodReachable := reachableFrom(m.Require)

	out := make(map[model.Name]bool)
	for name := range devReachable {
		if !prodReachable[name] {
			out[name] = true
		}
	}
	return out
}

// materializeAll schedules one install task per resolved package onto a
// bounded pool (default 8×CPU, per spec §4.8), cancelling the remaining
// tasks on the first failure.
func (p *Planner) materializeAll(ctx context.Context, resolution *resolver.Resolution) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(concurrencyLimit()))

	var mu sync.Mutex
	var completedVendorPaths []string
	var failures *multierror.Error

	for name, entry := range resolution.Packages {
		name, entry := name, entry
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			vendorPath, err := p.materializeOne(gctx, name, entry)
			if err != nil {
				wrapped := errors.Wrapf(err, "installing %s", name)
				mu.Lock()
				failures = multierror.Append(failures, wrapped)
				mu.Unlock()
				return wrapped
			}

			mu.Lock()
			completedVendorPaths = append(completedVendorPaths, vendorPath)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Cancellation/failure: remove everything this run materialized
		// so a partial install never looks complete, per spec §7/§5.
		mu.Lock()
		for _, vp := range completedVendorPaths {
			os.RemoveAll(vp)
		}
		mu.Unlock()
		// errgroup.Wait only ever returns the first goroutine error; the
		// multierror built alongside it reports every task that failed
		// before cancellation reached the others, which matters when a
		// bad manifest points several packages at broken dists at once.
		if failures != nil {
			failures.ErrorFormat = func(errs []error) string {
				msgs := make([]string, len(errs))
				for i, e := range errs {
					msgs[i] = e.Error()
				}
				return fmt.Sprintf("%d install task(s) failed: %s", len(errs), strings.Join(msgs, "; "))
			}
			return failures.ErrorOrNil()
		}
		return err
	}
	return nil
}

// materializeOne performs the per-package download→verify→store→link
// sequence required by spec §5's ordering guarantee ("a single
// package's download, verify, store, and link happen in that order").
func (p *Planner) materializeOne(ctx context.Context, name model.Name, entry model.VersionEntry) (string, error) {
	vendorPath := filepath.Join(p.cfg.VendorDir, string(name))
	checksum := entry.ContentChecksum
	if checksum == "" {
		checksum = entry.Dist.Checksum
	}

	if checksum != "" {
		if entryPath, ok := p.cas.Lookup(checksum); ok {
			if err := store.LinkInto(entryPath, vendorPath); err != nil {
				return "", err
			}
			return vendorPath, nil
		}
	}

	if entry.Dist.IsZero() {
		return "", errors.Errorf("%s %s has no dist archive to download", name, entry.Version)
	}

	tempDir, err := os.MkdirTemp(p.cfg.CacheDir, "download-*")
	if err != nil {
		return "", errors.Wrap(err, "creating download temp directory")
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, "artifact")
	finalPath := filepath.Join(tempDir, "artifact.final")

	res, err := p.dl.Download(ctx, entry.Dist.URL, checksum, tempPath, finalPath, nil)
	if err != nil {
		return "", err
	}

	key := checksum
	if key == "" {
		key = res.ActualChecksum
	}

	entryPath, err := p.cas.Store(key, res.Path, entry.Dist.URL)
	if err != nil {
		return "", err
	}
	if err := store.LinkInto(entryPath, vendorPath); err != nil {
		return "", err
	}
	return vendorPath, nil
}

// concurrencyLimit returns the bounded pool size for install tasks,
// defaulting to 8×CPU per spec §4.8, overridable for constrained CI
// environments via LIBRETTO_MAX_CONCURRENCY.
func concurrencyLimit() int {
	if v := os.Getenv("LIBRETTO_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	n := runtime.GOMAXPROCS(0) * 8
	if n < 4 {
		n = 4
	}
	return n
}
