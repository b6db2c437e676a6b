package cli

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// envConfigPathKey overrides the default config path.
	envConfigPathKey = "WITFLO_CONFIG_PATH"

	defaultConfigName = ".witflo.toml"

	defaultSessionDuration = "5m"
)

// ConfigFileError wraps a single invalid config field.
type ConfigFileError struct {
	Opt string
	Err error
}

func (e *ConfigFileError) Error() string {
	return "config: " + strings.Join([]string{e.Opt, e.Err.Error()}, ": ")
}

func (e *ConfigFileError) Unwrap() error { return e.Err }

// FileConfig is the full structure of ~/.witflo.toml.
//
//nolint:tagalign
type FileConfig struct {
	Workspace WorkspaceConfig `toml:"workspace" json:"workspace"`
	Sync      *SyncConfig     `toml:"sync" comment:"Default backend settings for 'witflo sync'." json:"sync"`

	path string // path the config was loaded from; empty if none was used.
}

// WorkspaceConfig holds workspace- and session-related settings.
//
//nolint:tagalign,tagliatelle
type WorkspaceConfig struct {
	Root                string `toml:"root,commented" comment:"Workspace root path (default: '~/.witflo' if not set)" json:"root,omitempty"`
	DefaultVault        string `toml:"default_vault,commented" comment:"Vault id to use when --vault is not given" json:"default_vault,omitempty"`
	SessionDuration      string `toml:"session_duration,commented" comment:"How long a daemon-custodied session lasts before requiring the passphrase again (default: '5m')" json:"session_duration,omitempty"`
	AutoLockOnBackground bool   `toml:"auto_lock_on_background,commented" comment:"Lock immediately when the host app reports backgrounding" json:"auto_lock_on_background,omitempty"`
}

// SyncConfig holds default sync backend settings.
//
//nolint:tagalign,tagliatelle
type SyncConfig struct {
	Backend  string `toml:"backend,commented" comment:"Sync backend: 'local' (default, no-op); any other value, 'http' included, falls back to 'local' with a warning" json:"backend,omitempty"`
	Endpoint string `toml:"endpoint,commented" comment:"Backend endpoint URL, required for the 'http' backend" json:"endpoint,omitempty"`
}

func newFileConfig() *FileConfig {
	return &FileConfig{Sync: &SyncConfig{}}
}

// LoadFileConfig loads the config from path, or the default path if path
// is empty. A missing default-path file is not an error: LoadFileConfig
// falls back to an empty config.
func LoadFileConfig(path string) (*FileConfig, error) {
	defaultPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}

	configPath := cmp.Or(path, defaultPath)

	c, err := parseFileConfig(configPath)
	if err != nil {
		if len(path) == 0 && errors.Is(err, fs.ErrNotExist) {
			c = newFileConfig()
		} else {
			return nil, err
		}
	} else {
		c.path = configPath
	}

	return c, c.validate()
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: user home dir: %w", err)
	}

	path := filepath.Join(home, defaultConfigName)
	if p, ok := os.LookupEnv(envConfigPathKey); ok {
		path = p
	}

	return path, nil
}

func parseFileConfig(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: stat file: %w", err)
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	c := newFileConfig()
	if err := toml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}

	return c, nil
}

func (c *FileConfig) validate() error {
	if c == nil {
		return &ConfigFileError{Err: errors.New("cannot validate a nil config")}
	}

	if c.Sync != nil && c.Sync.Backend == "http" && len(c.Sync.Endpoint) == 0 {
		return &ConfigFileError{Opt: "sync.endpoint", Err: errors.New("required when sync.backend is 'http'")}
	}

	return nil
}
