// CLAUDE:SUMMARY Defines bidicheck config structs, loads them from YAML and BIDICHECK_ env vars through viper, applies defaults.
// Package config handles bidicheck configuration from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. BIDICHECK_CHECK_DIR.
const EnvPrefix = "BIDICHECK"

// Config is the top-level bidicheck configuration.
type Config struct {
	Check   CheckConfig   `yaml:"check" mapstructure:"check"`
	Browser BrowserConfig `yaml:"browser" mapstructure:"browser"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Sinks   []SinkConfig  `yaml:"sinks,omitempty" mapstructure:"sinks"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CheckConfig holds the scan defaults.
type CheckConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`           // ltr | rtl | unknown
	Revision    int    `yaml:"revision" mapstructure:"revision"` // 1 | 2
	Table       string `yaml:"table" mapstructure:"table"`       // v1 | v2
	StopOnFirst bool   `yaml:"stop_on_first" mapstructure:"stop_on_first"`
	FiltersFile string `yaml:"filters_file" mapstructure:"filters_file"`
}

// BrowserConfig controls page acquisition through Chrome.
type BrowserConfig struct {
	Mode             string        `yaml:"mode" mapstructure:"mode"` // static | live | auto
	Remote           string        `yaml:"remote" mapstructure:"remote"`
	Bin              string        `yaml:"bin" mapstructure:"bin"`
	Stealth          bool          `yaml:"stealth" mapstructure:"stealth"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RecycleInterval  time.Duration `yaml:"recycle_interval" mapstructure:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking,omitempty" mapstructure:"resource_blocking"`
}

// FetchConfig controls plain HTTP fetches.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Attempts  uint          `yaml:"attempts" mapstructure:"attempts"`
	Delay     time.Duration `yaml:"delay" mapstructure:"delay"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig locates the scan history database.
type StoreConfig struct {
	Path string `yaml:"db_path" mapstructure:"db_path"`
	// Save records every CLI scan, as if --save were given.
	Save bool `yaml:"save" mapstructure:"save"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type" mapstructure:"type"` // stdout | webhook
	URL  string `yaml:"url" mapstructure:"url"`   // for webhook
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug | info | warn | error
	Format string `yaml:"format" mapstructure:"format"` // text | json
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Check.Revision == 0 {
		c.Check.Revision = 2
	}
	if c.Check.Table == "" {
		c.Check.Table = "v2"
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "static"
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Browser.RecycleInterval == 0 {
		c.Browser.RecycleInterval = time.Hour
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.Attempts == 0 {
		c.Fetch.Attempts = 3
	}
	if c.Fetch.Delay == 0 {
		c.Fetch.Delay = 500 * time.Millisecond
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath()
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func defaultStorePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/bidicheck/history.db"
	}
	return "bidicheck-history.db"
}

// LoadFile reads a YAML configuration file without environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads cfgFile (or bidicheck.yaml in . and $HOME/.bidicheck when
// empty) and applies BIDICHECK_* environment overrides. A missing default
// config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bidicheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bidicheck")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("check.dir", d.Check.Dir)
	v.SetDefault("check.revision", d.Check.Revision)
	v.SetDefault("check.table", d.Check.Table)
	v.SetDefault("check.stop_on_first", d.Check.StopOnFirst)
	v.SetDefault("check.filters_file", d.Check.FiltersFile)

	v.SetDefault("browser.mode", d.Browser.Mode)
	v.SetDefault("browser.remote", d.Browser.Remote)
	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("browser.stealth", d.Browser.Stealth)
	v.SetDefault("browser.timeout", d.Browser.Timeout)
	v.SetDefault("browser.recycle_interval", d.Browser.RecycleInterval)
	v.SetDefault("browser.resource_blocking", d.Browser.ResourceBlocking)

	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.attempts", d.Fetch.Attempts)
	v.SetDefault("fetch.delay", d.Fetch.Delay)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)

	v.SetDefault("store.db_path", d.Store.Path)
	v.SetDefault("store.save", d.Store.Save)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	header := []byte("# bidicheck configuration\n# Every key can be overridden with BIDICHECK_<SECTION>_<KEY>, e.g. BIDICHECK_CHECK_DIR=rtl\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
