package registry

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/libretto-pm/libretto/internal/model"
	"github.com/libretto-pm/libretto/internal/version"
	"github.com/pkg/errors"
)

// parsePackagePayload turns a registry response body into fully-expanded
// VersionEntry values for the named package.
func parsePackagePayload(name model.Name, body []byte) ([]model.VersionEntry, error) {
	var payload packagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "parsing registry payload")
	}

	rawList, ok := payload.Packages[name.String()]
	if !ok {
		return nil, nil
	}

	maps := make([]map[string]jsoniter.RawMessage, len(rawList))
	for i, rm := range rawList {
		var m map[string]jsoniter.RawMessage
		if err := json.Unmarshal(rm, &m); err != nil {
			return nil, errors.Wrapf(err, "parsing version entry %d of %s", i, name)
		}
		maps[i] = m
	}

	expanded := expandMinified(maps)

	entries := make([]model.VersionEntry, 0, len(expanded))
	for i, m := range expanded {
		entry, err := decodeEntry(name, m)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding version entry %d of %s", i, name)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(name model.Name, m map[string]jsoniter.RawMessage) (model.VersionEntry, error) {
	var raw rawVersionEntry
	if vRaw, ok := m["version"]; ok {
		if err := json.Unmarshal(vRaw, &raw.Version); err != nil {
			return model.VersionEntry{}, err
		}
	}
	if dRaw, ok := m["dist"]; ok {
		if err := json.Unmarshal(dRaw, &raw.Dist); err != nil {
			return model.VersionEntry{}, err
		}
	}
	if sRaw, ok := m["source"]; ok {
		if err := json.Unmarshal(sRaw, &raw.Source); err != nil {
			return model.VersionEntry{}, err
		}
	}
	raw.Require = m["require"]
	raw.RequireDev = m["require-dev"]
	raw.Replace = m["replace"]
	raw.Provide = m["provide"]

	v, err := version.ParseVersion(raw.Version)
	if err != nil {
		return model.VersionEntry{}, errors.Wrapf(err, "package %s", name)
	}

	var deps []model.DependencyRecord
	deps = append(deps, decodeDeps(raw.Require, model.KindRequired)...)
	deps = append(deps, decodeDeps(raw.RequireDev, model.KindDev)...)
	deps = append(deps, decodeDeps(raw.Replace, model.KindReplace)...)
	deps = append(deps, decodeDeps(raw.Provide, model.KindProvide)...)

	entry := model.VersionEntry{
		Name:            name,
		Version:         v,
		Deps:            deps,
		ContentChecksum: raw.Dist.Shasum,
	}
	if raw.Dist.URL != "" {
		entry.Dist = model.DistDescriptor{ArchiveKind: raw.Dist.Type, URL: raw.Dist.URL, Checksum: raw.Dist.Shasum}
	}
	if raw.Source.URL != "" {
		entry.Source = model.SourceDescriptor{VCSKind: raw.Source.Type, URL: raw.Source.URL, Reference: raw.Source.Reference}
	}

	model.NormalizeSelfVersion(&entry)
	return entry, nil
}

func decodeDeps(raw jsoniter.RawMessage, kind model.DependencyKind) []model.DependencyRecord {
	if isUnset(raw) {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	deps := make([]model.DependencyRecord, 0, len(m))
	for target, constraintText := range m {
		name, err := model.ParseName(target)
		if err != nil {
			continue
		}
		rec := model.DependencyRecord{Target: name, Kind: kind}
		if kind == model.KindReplace && constraintText == "self.version" {
			rec.SelfVersion = true
		} else {
			c, floor, hasFloor, err := version.ParseConstraint(constraintText)
			if err != nil {
				continue
			}
			rec.Constraint = c
			rec.StabilityFloor = floor
			rec.HasStabilityFloor = hasFloor
		}
		deps = append(deps, rec)
	}
	return deps
}
