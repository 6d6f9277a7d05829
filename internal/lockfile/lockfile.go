// Package lockfile implements the resolved-dependency lockfile (spec
// §6's "Lockfile": a JSON document with a readme preamble, a
// content-hash of the input manifest, and packages/packages-dev
// arrays in a fixed key order). Grounded on the teacher's lock.go
// (rawLock/lockedDep decode shape, InputHash-style memo field) and
// txn_writer.go's temp-file-then-rename write pattern, reformatted
// from TOML to the spec's JSON layout.
package lockfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
	"github.com/pkg/errors"
)

// FileName is the lockfile's conventional on-disk name.
const FileName = "libretto.lock.json"

const readme = "This file locks the dependencies of your project to a known state. " +
	"Do not edit it manually."

// Package is one resolved entry, in the fixed field order spec §6
// requires within each package object.
type Package struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Source    *PackageSource `json:"source,omitempty"`
	Dist      *PackageDist   `json:"dist,omitempty"`
	Require   map[string]string `json:"require,omitempty"`
}

type PackageSource struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Reference string `json:"reference,omitempty"`
}

type PackageDist struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Shasum string `json:"shasum,omitempty"`
}

// Lockfile is the parsed, in-memory lockfile.
type Lockfile struct {
	Readme      string    `json:"readme,omitempty"`
	ContentHash string    `json:"content-hash"`
	Packages    []Package `json:"packages"`
	PackagesDev []Package `json:"packages-dev"`
}

// FromResolution builds a Lockfile from a resolver resolution, splitting
// entries into Packages/PackagesDev by whether their name was reached
// only through a require-dev edge. devNames carries the root
// require-dev target names; every other resolved name is a production
// package regardless of what pulled it in transitively, since a single
// package can be depended on by both a prod and dev edge.
func FromResolution(packages map[model.Name]model.VersionEntry, devNames map[model.Name]bool, contentHash string) *Lockfile {
	lf := &Lockfile{Readme: readme, ContentHash: contentHash}

	names := make([]string, 0, len(packages))
	for n := range packages {
		names = append(names, n.String())
	}
	sort.Strings(names)

	for _, n := range names {
		name := model.Name(n)
		entry := packages[name]
		pkg := toPackage(entry)
		if devNames[name] {
			lf.PackagesDev = append(lf.PackagesDev, pkg)
		} else {
			lf.Packages = append(lf.Packages, pkg)
		}
	}
	return lf
}

func toPackage(e model.VersionEntry) Package {
	pkg := Package{
		Name:    e.Name.String(),
		Version: e.Version.String(),
	}
	if !e.Source.IsZero() {
		pkg.Source = &PackageSource{Type: e.Source.VCSKind, URL: e.Source.URL, Reference: e.Source.Reference}
	}
	if !e.Dist.IsZero() {
		pkg.Dist = &PackageDist{Type: e.Dist.ArchiveKind, URL: e.Dist.URL, Shasum: e.Dist.Checksum}
	}

	if len(e.Deps) > 0 {
		req := make(map[string]string)
		for _, d := range e.Deps {
			if d.Kind != model.KindRequired {
				continue
			}
			if d.SelfVersion {
				req[d.Target.String()] = "self.version"
				continue
			}
			req[d.Target.String()] = d.Constraint.String()
		}
		if len(req) > 0 {
			pkg.Require = req
		}
	}
	return pkg
}

// Write serializes lf as pretty-printed JSON with a trailing newline and
// atomically replaces path (temp file + rename), per spec §6/§4.8.
func Write(path string, lf *Lockfile) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(lf); err != nil {
		return errors.Wrap(err, "encoding lockfile")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".libretto.lock.*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp lockfile")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp lockfile")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "syncing temp lockfile")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp lockfile")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "renaming lockfile into place")
	}
	return nil
}

// Load reads and parses the lockfile at path. A missing file is not an
// error: callers treat it as "no lock hints yet".
func Load(path string) (*Lockfile, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading lockfile %s", path)
	}

	var lf Lockfile
	if err := json.Unmarshal(b, &lf); err != nil {
		return nil, errors.Wrap(err, "parsing lockfile")
	}
	return &lf, nil
}

// VersionHints extracts a name→version map usable as resolver
// Options.LockHints, ignoring any entry whose version string fails to
// parse (a lock from an incompatible future version, say).
func (lf *Lockfile) VersionHints() map[model.Name]version.Version {
	if lf == nil {
		return nil
	}
	hints := make(map[model.Name]version.Version)
	for _, group := range [][]Package{lf.Packages, lf.PackagesDev} {
		for _, pkg := range group {
			v, err := version.ParseVersion(pkg.Version)
			if err != nil {
				continue
			}
			hints[model.Name(pkg.Name)] = v
		}
	}
	return hints
}
