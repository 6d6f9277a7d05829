package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/libretto-pm/libretto/internal/model"
)

// hashManifest builds a canonical JSON projection of the fields that
// affect resolution (everything except repositories/name, which don't
// change what gets installed) and hashes it, so the lockfile's
// content-hash changes iff a future resolve could produce a different
// answer. encoding/json already sorts map[string]string keys when
// marshaling, so this projection is canonical without extra sorting.
func hashManifest(m *Manifest) (string, error) {
	canonical := struct {
		Require          map[string]string `json:"require,omitempty"`
		RequireDev       map[string]string `json:"require-dev,omitempty"`
		Replace          map[string]string `json:"replace,omitempty"`
		Provide          map[string]string `json:"provide,omitempty"`
		MinimumStability string            `json:"minimum-stability"`
		PreferStable     bool              `json:"prefer-stable"`
	}{
		Require:          depsToStringMap(m.Require),
		RequireDev:       depsToStringMap(m.RequireDev),
		Replace:          depsToStringMap(m.Replace),
		Provide:          depsToStringMap(m.Provide),
		MinimumStability: m.MinimumStability.String(),
		PreferStable:     m.PreferStable,
	}

	b, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func depsToStringMap(recs []model.DependencyRecord) map[string]string {
	if len(recs) == 0 {
		return nil
	}
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		if r.SelfVersion {
			out[r.Target.String()] = "self.version"
			continue
		}
		out[r.Target.String()] = r.Constraint.String()
	}
	return out
}
