package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/navygator/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	Storage       StorageConfig `mapstructure:"storage" yaml:"storage"`
	History       HistoryConfig `mapstructure:"history" yaml:"history"`
	Browser       BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Auth          AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Chrome        ChromeConfig  `mapstructure:"chrome" yaml:"chrome"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig selects the key-value backend holding tab state.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// HistoryConfig configures the browsing history database.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// BrowserConfig controls address normalization and the home page.
type BrowserConfig struct {
	HomeURL   string   `mapstructure:"home_url" yaml:"home_url"`
	SearchURL string   `mapstructure:"search_url" yaml:"search_url"`
	Schemes   []string `mapstructure:"schemes" yaml:"schemes"`
}

// AuthConfig configures the local account file.
type AuthConfig struct {
	AccountFile string `mapstructure:"account_file" yaml:"account_file"`
}

// ChromeConfig configures the headless Chrome rendering surface.
type ChromeConfig struct {
	Headless               bool   `mapstructure:"headless" yaml:"headless"`
	ExecPath               string `mapstructure:"exec_path" yaml:"exec_path"`
	NavigateTimeoutSeconds int    `mapstructure:"navigate_timeout_seconds" yaml:"navigate_timeout_seconds"`
}

// SessionConfig returns the core session settings.
func (c Config) SessionConfig() schema.SessionConfig {
	return schema.SessionConfig{
		HomeURL:   c.Browser.HomeURL,
		SearchURL: c.Browser.SearchURL,
		Schemes:   append([]string(nil), c.Browser.Schemes...),
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".navygator")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(base, "state"),
		Storage: StorageConfig{
			Backend:    BackendFile,
			SQLitePath: filepath.Join(base, "state", "kv.db"),
		},
		History: HistoryConfig{
			DBPath: filepath.Join(base, "state", "history.db"),
		},
		Browser: BrowserConfig{
			HomeURL:   schema.DefaultHomeURL,
			SearchURL: schema.DefaultSearchURL,
			Schemes:   append([]string(nil), schema.DefaultSchemes...),
		},
		Auth: AuthConfig{
			AccountFile: filepath.Join(base, "accounts.json"),
		},
		Chrome: ChromeConfig{
			Headless:               true,
			ExecPath:               "",
			NavigateTimeoutSeconds: 30,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".navygator", "config.yaml"), nil
}
