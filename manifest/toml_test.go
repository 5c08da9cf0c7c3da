package manifest

import (
	"testing"
)

const sampleManifest = `
version = 1

[[remotes]]
name = "origin"
url_base = "https://example.com/org"

[defaults]
revision = "main"

[[dependencies]]
name = "mylib"
remote = "origin"
revision = "v1.0"
`

func TestParseRoundTrip(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(m.Remotes) != 1 || m.Remotes[0].Name != "origin" {
		t.Fatalf("Remotes = %+v, want one remote named origin", m.Remotes)
	}
	if len(m.Dependencies) != 1 || m.Dependencies[0].Name != "mylib" {
		t.Fatalf("Dependencies = %+v, want one dependency named mylib", m.Dependencies)
	}
	if m.Dependencies[0].EffectivePath() != "mylib" {
		t.Errorf("EffectivePath() = %q, want mylib", m.Dependencies[0].EffectivePath())
	}
	if !m.Dependencies[0].EffectiveSubmodules(m.Defaults) {
		t.Errorf("EffectiveSubmodules() = false, want true (default)")
	}
}

func TestEffectiveSubmodulesFallsBackToManifestDefaults(t *testing.T) {
	disabled := false
	d := Defaults{Submodules: &disabled}

	if (ProjectSpec{}).EffectiveSubmodules(d) {
		t.Error("EffectiveSubmodules() = true, want false from defaults.submodules when dependency leaves it unset")
	}

	enabled := true
	p := ProjectSpec{Submodules: &enabled}
	if !p.EffectiveSubmodules(d) {
		t.Error("EffectiveSubmodules() = false, want true: an explicit dependency-level submodules overrides defaults")
	}
}

func TestParseUnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("version = 1\nbogus_top_level = true\n"))
	if err == nil {
		t.Fatal("Parse() = nil error, want rejection of unknown top-level field")
	}
}

func TestUpgradeFillsVersion(t *testing.T) {
	const legacy = `
[[remotes]]
name = "origin"
url_base = "https://example.com/org"

[[dependencies]]
name = "mylib"
remote = "origin"
`
	m, err := Upgrade([]byte(legacy))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if m.Version != CurrentSchemaVersion {
		t.Errorf("Version = %d, want %d", m.Version, CurrentSchemaVersion)
	}
	if len(m.Dependencies) != 1 {
		t.Errorf("Dependencies = %+v, want one entry preserved", m.Dependencies)
	}
}
