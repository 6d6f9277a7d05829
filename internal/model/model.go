// Package model implements the package identity and dependency-record
// types shared by every other component (component M of the design),
// grounded on the teacher's orig_types.go/types.go (ProjectIdentifier,
// ProjectRoot) and alias.go (replace/provide virtual packages).
package model

import (
	"regexp"
	"strings"

	"github.com/libretto-pm/libretto/internal/version"
	"github.com/pkg/errors"
)

// nameRE matches "owner/name", lowercase, per spec §4.2.
var nameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?/[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// Name is a validated, lowercased "owner/name" package identifier.
type Name string

// ParseName validates and normalizes a package name.
func ParseName(s string) (Name, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if !nameRE.MatchString(lower) {
		return "", errors.Errorf("invalid package name %q", s)
	}
	return Name(lower), nil
}

func (n Name) String() string { return string(n) }

// DependencyKind distinguishes the role a DependencyRecord plays, per
// spec §3's dependency-record definition.
type DependencyKind int

const (
	KindRequired DependencyKind = iota
	KindDev
	KindReplace
	KindProvide
	KindSuggest
)

func (k DependencyKind) String() string {
	switch k {
	case KindDev:
		return "require-dev"
	case KindReplace:
		return "replace"
	case KindProvide:
		return "provide"
	case KindSuggest:
		return "suggest"
	default:
		return "require"
	}
}

// DependencyRecord is (target-name, constraint, kind) from spec §3.
type DependencyRecord struct {
	Target     Name
	Constraint version.Constraint
	// StabilityFloor is the per-dependency stability override, if any
	// was given via an "@stability" suffix (spec §4.5).
	StabilityFloor    version.Stability
	HasStabilityFloor bool
	Kind              DependencyKind

	// SelfVersion marks a "replace" record whose manifest constraint was
	// the literal string "self.version"; Constraint is left nil until
	// NormalizeSelfVersion resolves it against the enclosing entry.
	SelfVersion bool
}

// SourceDescriptor identifies a VCS-backed source for a version, per
// spec §3.
type SourceDescriptor struct {
	VCSKind   string
	URL       string
	Reference string
}

func (s SourceDescriptor) IsZero() bool { return s.URL == "" }

// DistDescriptor identifies an archive distribution for a version.
type DistDescriptor struct {
	ArchiveKind string
	URL         string
	Checksum    string // optional, shasum as given by the registry
}

func (d DistDescriptor) IsZero() bool { return d.URL == "" }

// VersionEntry is a single package version and everything the solver and
// installer need to know about it, per spec §3's "package version entry".
type VersionEntry struct {
	Name    Name
	Version version.Version

	Deps []DependencyRecord

	Source SourceDescriptor
	Dist   DistDescriptor

	// ContentChecksum is the expected content hash of the dist archive,
	// when the registry supplies one (spec's dist.shasum).
	ContentChecksum string
}

// HasSource reports whether the entry has at least one of source or dist,
// the invariant spec §3 requires.
func (e VersionEntry) HasSource() bool {
	return !e.Source.IsZero() || !e.Dist.IsZero()
}

// NormalizeSelfVersion resolves a "replace" dependency whose constraint is
// the literal string "self.version" against the enclosing entry's exact
// version, per spec §4.2.
func NormalizeSelfVersion(e *VersionEntry) {
	for i := range e.Deps {
		d := &e.Deps[i]
		if d.Kind != KindReplace || !d.SelfVersion {
			continue
		}
		exact, _, _, _ := version.ParseConstraint("=" + e.Version.Original())
		d.Constraint = exact
	}
}
