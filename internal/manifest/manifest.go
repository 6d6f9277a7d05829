// Package manifest implements the project manifest document (spec
// §6's "Project manifest"): the JSON file declaring a project's name,
// dependency constraints, stability policy, and repository overrides.
// Grounded on the teacher's manifest.go (rawManifest/possibleProps
// decode-then-validate shape), reformatted from TOML-flavored
// dependency maps to Composer's plain name→constraint-string maps.
package manifest

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
	"github.com/pkg/errors"
)

// FileName is the manifest's conventional on-disk name.
const FileName = "libretto.json"

// Repository is a registry override entry, per spec §6.
type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Manifest is the parsed, validated project manifest.
type Manifest struct {
	Name             string
	Require          []model.DependencyRecord
	RequireDev       []model.DependencyRecord
	Replace          []model.DependencyRecord
	Provide          []model.DependencyRecord
	MinimumStability version.Stability
	PreferStable     bool
	Repositories     []Repository
}

type rawManifest struct {
	Name             string            `json:"name"`
	Require          map[string]string `json:"require,omitempty"`
	RequireDev       map[string]string `json:"require-dev,omitempty"`
	Replace          map[string]string `json:"replace,omitempty"`
	Provide          map[string]string `json:"provide,omitempty"`
	MinimumStability string            `json:"minimum-stability,omitempty"`
	PreferStable     bool              `json:"prefer-stable,omitempty"`
	Repositories     []Repository      `json:"repositories,omitempty"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening manifest %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a manifest document from r.
func Read(r io.Reader) (*Manifest, error) {
	var raw rawManifest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	if raw.Name == "" {
		return nil, errors.New("manifest is missing a \"name\"")
	}

	m := &Manifest{
		Name:         raw.Name,
		PreferStable: raw.PreferStable,
		Repositories: raw.Repositories,
	}
	if raw.MinimumStability != "" {
		m.MinimumStability = version.ParseStability(raw.MinimumStability)
	} else {
		m.MinimumStability = version.StabilityStable
	}

	var err error
	if m.Require, err = decodeDeps(raw.Require, model.KindRequired); err != nil {
		return nil, err
	}
	if m.RequireDev, err = decodeDeps(raw.RequireDev, model.KindDev); err != nil {
		return nil, err
	}
	if m.Replace, err = decodeDeps(raw.Replace, model.KindReplace); err != nil {
		return nil, err
	}
	if m.Provide, err = decodeDeps(raw.Provide, model.KindProvide); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeDeps(raw map[string]string, kind model.DependencyKind) ([]model.DependencyRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(raw))
	for n := range raw {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]model.DependencyRecord, 0, len(raw))
	for _, n := range names {
		target, err := model.ParseName(n)
		if err != nil {
			return nil, err
		}

		constraintText := raw[n]
		rec := model.DependencyRecord{Target: target, Kind: kind}
		if constraintText == "self.version" {
			rec.SelfVersion = true
		} else {
			c, stability, hasFloor, err := version.ParseConstraint(constraintText)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing constraint for %s", n)
			}
			rec.Constraint = c
			rec.HasStabilityFloor = hasFloor
			rec.StabilityFloor = stability
		}
		out = append(out, rec)
	}
	return out, nil
}

// RootRequirements returns Require and (if devMode) RequireDev as the
// root dependency set the resolver is seeded with.
func (m *Manifest) RootRequirements(devMode bool) []model.DependencyRecord {
	all := make([]model.DependencyRecord, 0, len(m.Require)+len(m.RequireDev))
	all = append(all, m.Require...)
	if devMode {
		all = append(all, m.RequireDev...)
	}
	return all
}

// ContentHash returns the deterministic hash of the manifest's
// normalized requirements, stored in the lockfile's content-hash field
// so a stale lock can be detected.
func (m *Manifest) ContentHash() (string, error) {
	return hashManifest(m)
}
