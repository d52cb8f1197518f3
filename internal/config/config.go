// Package config loads the tracker settings.
//
// Settings come from, in increasing precedence: built-in defaults, the
// mt.yaml config file, and MT_-prefixed environment variables
// (MT_SHEETS_SPREADSHEET_ID overrides sheets.spreadsheet_id).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sheets"
	"github.com/aisuara/marketing-tracker/internal/store"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "MT"

// Gateway backends.
const (
	SheetsGoogle = "google"
	SheetsMemory = "memory"
)

// Settings is the resolved configuration.
type Settings struct {
	DataDir  string         `mapstructure:"data_dir"`
	Timezone string         `mapstructure:"timezone"`
	Store    StoreSettings  `mapstructure:"store"`
	Sheets   SheetsSettings `mapstructure:"sheets"`
	Log      LogSettings    `mapstructure:"log"`

	Dashboard DashboardSettings `mapstructure:"dashboard"`
	Watch     WatchSettings     `mapstructure:"watch"`

	// File is the config file that was read, or "" when none was found.
	File string `mapstructure:"-"`
}

type StoreSettings struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	SeedAdmin  bool   `mapstructure:"seed_admin"`
}

type SheetsSettings struct {
	Backend           string            `mapstructure:"backend"`
	SpreadsheetID     string            `mapstructure:"spreadsheet_id"`
	CredentialsFile   string            `mapstructure:"credentials_file"`
	SecretsFile       string            `mapstructure:"secrets_file"`
	CreateMissingTabs bool              `mapstructure:"create_missing_tabs"`
	Tabs              map[string]string `mapstructure:"tabs"`
}

type LogSettings struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DashboardSettings struct {
	Port int `mapstructure:"port"`
}

type WatchSettings struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	Interval  time.Duration `mapstructure:"interval"`
	Overwrite bool          `mapstructure:"overwrite"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("timezone", "Asia/Jakarta")

	v.SetDefault("store.backend", store.BackendYAML)
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.seed_admin", true)

	v.SetDefault("sheets.backend", SheetsGoogle)
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.secrets_file", filepath.Join(".streamlit", "secrets.toml"))
	v.SetDefault("sheets.create_missing_tabs", false)
	for _, t := range schema.Tables() {
		v.SetDefault("sheets.tabs."+t.String(), t.DefaultTab())
	}

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("dashboard.port", 8080)

	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("watch.interval", 5*time.Minute)
	v.SetDefault("watch.overwrite", false)
}

// Load reads the settings. An explicit path must exist; otherwise mt.yaml
// is looked up in the working directory and $HOME/.config/mt, and its
// absence is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mt"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	s.File = v.ConfigFileUsed()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the enumerated settings. A missing spreadsheet id is
// reported when the gateway is built, so offline commands still work.
func (s *Settings) Validate() error {
	switch s.Store.Backend {
	case store.BackendYAML, store.BackendSQLite:
	default:
		return fmt.Errorf("invalid store.backend %q (want %s or %s)", s.Store.Backend, store.BackendYAML, store.BackendSQLite)
	}
	switch s.Sheets.Backend {
	case SheetsGoogle, SheetsMemory:
	default:
		return fmt.Errorf("invalid sheets.backend %q (want %s or %s)", s.Sheets.Backend, SheetsGoogle, SheetsMemory)
	}
	for name := range s.Sheets.Tabs {
		if _, err := schema.ParseTable(name); err != nil {
			return fmt.Errorf("invalid sheets.tabs key: %w", err)
		}
	}
	if s.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	return nil
}

// TabNames returns the tab of every table.
func (s *Settings) TabNames() sheets.TabNames {
	names := sheets.DefaultTabNames()
	for name, tab := range s.Sheets.Tabs {
		t, err := schema.ParseTable(name)
		if err != nil || strings.TrimSpace(tab) == "" {
			continue
		}
		names[t] = tab
	}
	return names
}

// Credentials returns where the service account key is looked up.
func (s *Settings) Credentials() sheets.CredentialSource {
	return sheets.CredentialSource{
		SecretsFile:     s.Sheets.SecretsFile,
		CredentialsFile: s.Sheets.CredentialsFile,
	}
}
