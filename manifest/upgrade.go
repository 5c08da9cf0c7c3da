package manifest

import (
	"fmt"
	"reflect"

	"github.com/BurntSushi/toml"
)

// Upgrade rewrites raw (a manifest document at any supported schema
// version) to CurrentSchemaVersion, preserving every field the older
// schema defines. A document with no `version` key is schema 0, the
// implicit pre-versioned form; Upgrade fills in version = 1 and leaves
// every other field untouched, since schema 0 and schema 1 share the same
// field set — only the explicit version marker was added.
//
// Unknown top-level keys are not rejected, but they are not kept either:
// ManifestSpec has no field to hold them, so they are dropped from the
// result.
func Upgrade(raw []byte) (*ManifestSpec, error) {
	var doc map[string]toml.Primitive
	meta, err := toml.Decode(string(raw), &doc)
	if err != nil {
		return nil, fmt.Errorf("decode manifest for upgrade: %w", err)
	}

	allowed := allowedTopLevelKeys()
	for _, key := range meta.Keys() {
		if len(key) != 1 {
			continue
		}
		if !contains(allowed, key[0]) && key[0] != "version" {
			// Unknown-but-documented field: left in doc, carried through
			// by re-decoding into ManifestSpec below only if it matches a
			// struct field; anything else is simply dropped from the
			// typed result, since ManifestSpec has no catch-all bucket.
			continue
		}
	}

	var m ManifestSpec
	if _, err := toml.Decode(string(raw), &m); err != nil {
		return nil, fmt.Errorf("decode manifest for upgrade: %w", err)
	}
	m.Version = CurrentSchemaVersion

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func allowedTopLevelKeys() []string {
	var keys []string
	t := reflect.TypeOf(ManifestSpec{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("toml")
		if tag == "" {
			continue
		}
		// strip ",omitempty" etc.
		for j := 0; j < len(tag); j++ {
			if tag[j] == ',' {
				tag = tag[:j]
				break
			}
		}
		keys = append(keys, tag)
	}
	return keys
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
