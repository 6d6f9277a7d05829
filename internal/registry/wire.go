package registry

import jsoniter "github.com/json-iterator/go"

// packagePayload is the top-level registry response shape from spec §6:
// { "packages": { "<owner>/<name>": [ <version-entry>, ... ] } }.
type packagePayload struct {
	Packages map[string][]jsoniter.RawMessage `json:"packages"`
}

// rawDist/rawSource mirror the fields read from version-entry.dist/.source
// per spec §6.
type rawDist struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Shasum  string `json:"shasum"`
}

type rawSource struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Reference string `json:"reference"`
}

// unsetSentinel is the string some registries emit in place of an absent
// require-family field, per spec §6.
const unsetSentinel = "__unset"

// rawVersionEntry is a single fully-materialized version-entry, after
// minified-delta expansion.
type rawVersionEntry struct {
	Version    string                     `json:"version"`
	Require    jsoniter.RawMessage        `json:"require"`
	RequireDev jsoniter.RawMessage        `json:"require-dev"`
	Replace    jsoniter.RawMessage        `json:"replace"`
	Provide    jsoniter.RawMessage        `json:"provide"`
	Dist       rawDist                    `json:"dist"`
	Source     rawSource                  `json:"source"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary
