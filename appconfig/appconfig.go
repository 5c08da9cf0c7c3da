// Package appconfig layers the CLI's own application settings —
// independent of any single manifest or workspace — across system, user,
// and workspace scope, the way the mirrored-repository binary layers an
// environment variable override atop a flag default.
package appconfig

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Settings are the CLI's ambient options: nothing here is part of a
// manifest or a workspace's resolved project set.
type Settings struct {
	LogLevel          string   `toml:"log_level,omitempty"`
	GitExecutablePath string   `toml:"git_executable,omitempty"`
	DefaultGroupFilters []string `toml:"default_group_filters,omitempty"`
	HTTPBindAddress   string   `toml:"http_bind_address,omitempty"`
}

func defaults() Settings {
	return Settings{
		LogLevel:          "info",
		GitExecutablePath: "git",
		HTTPBindAddress:   ":9001",
	}
}

// SystemPath and UserPath are the well-known locations Load searches
// before falling back to built-in defaults.
func SystemPath() string {
	return "/etc/git-ws/config.toml"
}

func UserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "git-ws", "config.toml")
}

// WorkspacePath is the workspace-local override file, layered on top of
// system/user settings but below environment variables.
func WorkspacePath(workspaceRoot string) string {
	if workspaceRoot == "" {
		return ""
	}
	return filepath.Join(workspaceRoot, ".git-ws", "settings.toml")
}

// Load merges settings from, in increasing precedence: built-in defaults,
// the system file, the user file, the workspace override file, then
// GIT_WS_<NAME> environment variables. Missing files at any layer are not
// an error.
func Load(workspaceRoot string) (*Settings, error) {
	s := defaults()

	for _, path := range []string{SystemPath(), UserPath(), WorkspacePath(workspaceRoot)} {
		if path == "" {
			continue
		}
		if err := mergeFile(&s, path); err != nil {
			return nil, err
		}
	}

	applyEnv(&s)
	return &s, nil
}

func mergeFile(s *Settings, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var layer Settings
	if _, err := toml.Decode(string(raw), &layer); err != nil {
		return err
	}
	merge(s, layer)
	return nil
}

func merge(dst *Settings, src Settings) {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.GitExecutablePath != "" {
		dst.GitExecutablePath = src.GitExecutablePath
	}
	if len(src.DefaultGroupFilters) > 0 {
		dst.DefaultGroupFilters = src.DefaultGroupFilters
	}
	if src.HTTPBindAddress != "" {
		dst.HTTPBindAddress = src.HTTPBindAddress
	}
}

func applyEnv(s *Settings) {
	if v := envString("GIT_WS_LOG_LEVEL", ""); v != "" {
		s.LogLevel = v
	}
	if v := envString("GIT_WS_GIT_EXECUTABLE", ""); v != "" {
		s.GitExecutablePath = v
	}
	if v := envString("GIT_WS_HTTP_BIND_ADDRESS", ""); v != "" {
		s.HTTPBindAddress = v
	}
}

// envString mirrors the mirrored-repository binary's env-var-overrides-
// default helper.
func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// envBool is the boolean counterpart of envString; EnvBool exports it for
// the CLI's flag wiring of its own GIT_WS_* flags.
func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// EnvBool is the exported form of envBool, used by cmd/git-ws.
func EnvBool(key string, fallback bool) bool { return envBool(key, fallback) }

// EnvString is the exported form of envString, used by cmd/git-ws.
func EnvString(key, fallback string) string { return envString(key, fallback) }
