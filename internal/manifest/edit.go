package manifest

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// AddRequirement sets name's constraint in the require (or, if dev is
// true, require-dev) section of the manifest at path, validates the
// result, and writes it back. Other top-level keys are preserved
// untouched since this edits the raw JSON object directly rather than
// round-tripping through the domain Manifest type.
func AddRequirement(path, name, constraintText string, dev bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading manifest %s", path)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return errors.Wrap(err, "parsing manifest")
	}

	key := "require"
	if dev {
		key = "require-dev"
	}

	section := make(map[string]string)
	if raw, ok := doc[key]; ok {
		if err := json.Unmarshal(raw, &section); err != nil {
			return errors.Wrapf(err, "parsing manifest %q section", key)
		}
	}
	section[name] = constraintText

	sectionRaw, err := json.Marshal(section)
	if err != nil {
		return err
	}
	doc[key] = sectionRaw

	if _, err := Read(bytes.NewReader(mustMarshal(doc))); err != nil {
		return errors.Wrap(err, "updated manifest failed validation")
	}

	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	out = append(out, '\n')

	return os.WriteFile(path, out, 0o644)
}

func mustMarshal(doc map[string]json.RawMessage) []byte {
	b, _ := json.Marshal(doc)
	return b
}
