// Package config loads dtrack settings.
//
// Sources, lowest precedence first: built-in defaults, ~/.dtrack/config.yaml,
// ./dtrack.yaml, an explicit --config file, DTRACK_* environment variables.
// Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/pushover"
)

const (
	EnvPrefix         = "DTRACK"
	ProjectConfigName = "dtrack.yaml"

	TLSOff        = ""
	TLSSelfSigned = "self-signed"
	TLSCustom     = "custom"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	TLS       string `mapstructure:"tls" yaml:"tls"`
	Cert      string `mapstructure:"cert" yaml:"cert"`
	Key       string `mapstructure:"key" yaml:"key"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
	MDNS      bool   `mapstructure:"mdns" yaml:"mdns"`
}

// NotifierConfig configures the git activity log.
type NotifierConfig struct {
	Enabled          bool          `mapstructure:"enabled" yaml:"enabled"`
	RepoDir          string        `mapstructure:"repo_dir" yaml:"repo_dir"`
	CommitsPerUpdate int           `mapstructure:"commits_per_update" yaml:"commits_per_update"`
	DailyGoal        int           `mapstructure:"daily_goal" yaml:"daily_goal"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	QueueSize        int           `mapstructure:"queue_size" yaml:"queue_size"`
	RecentLimit      int           `mapstructure:"recent_limit" yaml:"recent_limit"`
	AuthorName       string        `mapstructure:"author_name" yaml:"author_name"`
	AuthorEmail      string        `mapstructure:"author_email" yaml:"author_email"`
	StageData        bool          `mapstructure:"stage_data" yaml:"stage_data"`
}

// Config is the resolved dtrack configuration.
type Config struct {
	DataDir     string          `mapstructure:"data_dir" yaml:"data_dir"`
	Backend     string          `mapstructure:"backend" yaml:"backend"`
	CatalogFile string          `mapstructure:"catalog_file" yaml:"catalog_file"`
	DebugDir    string          `mapstructure:"debug_dir" yaml:"debug_dir"`
	Debounce    time.Duration   `mapstructure:"debounce" yaml:"debounce"`
	Window      datekey.Window  `mapstructure:"window" yaml:"window"`
	Server      ServerConfig    `mapstructure:"server" yaml:"server"`
	Notifier    NotifierConfig  `mapstructure:"notifier" yaml:"notifier"`
	Pushover    pushover.Config `mapstructure:"pushover" yaml:"pushover"`

	// Sources lists the config files that were merged, in order.
	Sources []string `mapstructure:"-" yaml:"-"`
}

// Dir returns the dtrack home directory (~/.dtrack).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".dtrack")
}

// GlobalConfigPath returns ~/.dtrack/config.yaml.
func GlobalConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	base := Dir()
	v.SetDefault("data_dir", filepath.Join(base, "data"))
	v.SetDefault("backend", "files")
	v.SetDefault("catalog_file", "")
	v.SetDefault("debug_dir", filepath.Join(base, "debug"))
	v.SetDefault("debounce", time.Second)
	v.SetDefault("window.start", datekey.DefaultWindow.Start)
	v.SetDefault("window.end", datekey.DefaultWindow.End)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.tls", TLSOff)
	v.SetDefault("server.cert", "")
	v.SetDefault("server.key", "")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.mdns", false)

	v.SetDefault("notifier.enabled", true)
	v.SetDefault("notifier.repo_dir", base)
	v.SetDefault("notifier.commits_per_update", 1)
	v.SetDefault("notifier.daily_goal", 10)
	v.SetDefault("notifier.timeout", 5*time.Second)
	v.SetDefault("notifier.queue_size", 64)
	v.SetDefault("notifier.recent_limit", 10)
	v.SetDefault("notifier.author_name", "")
	v.SetDefault("notifier.author_email", "")
	v.SetDefault("notifier.stage_data", true)

	v.SetDefault("pushover.user_key", "")
	v.SetDefault("pushover.app_token", "")
}

// Load resolves the configuration. A non-empty explicitPath must exist.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var sources []string
	candidates := []string{GlobalConfigPath()}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ProjectConfigName))
	}
	for _, path := range candidates {
		ok, err := mergeFile(v, path)
		if err != nil {
			return nil, err
		}
		if ok {
			sources = append(sources, path)
		}
	}
	if explicitPath != "" {
		ok, err := mergeFile(v, explicitPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("config file %s not found", explicitPath)
		}
		sources = append(sources, explicitPath)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Sources = sources
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(v *viper.Viper, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return false, fmt.Errorf("reading config %s: %w", path, err)
	}
	return true, nil
}

func (c *Config) normalize() {
	c.DataDir = expandHome(c.DataDir)
	c.CatalogFile = expandHome(c.CatalogFile)
	c.DebugDir = expandHome(c.DebugDir)
	c.Notifier.RepoDir = expandHome(c.Notifier.RepoDir)
	c.Server.Cert = expandHome(c.Server.Cert)
	c.Server.Key = expandHome(c.Server.Key)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Server.TLS = strings.ToLower(strings.TrimSpace(c.Server.TLS))
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Backend {
	case "files", "blob", "sqlite":
	default:
		return fmt.Errorf("backend %q: want files, blob or sqlite", c.Backend)
	}
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.TLS {
	case TLSOff, TLSSelfSigned:
	case TLSCustom:
		if c.Server.Cert == "" || c.Server.Key == "" {
			return fmt.Errorf("server.tls=custom requires server.cert and server.key")
		}
	default:
		return fmt.Errorf("server.tls %q: want self-signed or custom", c.Server.TLS)
	}
	if c.Notifier.CommitsPerUpdate < 1 {
		return fmt.Errorf("notifier.commits_per_update must be at least 1")
	}
	if c.Notifier.DailyGoal < 1 {
		return fmt.Errorf("notifier.daily_goal must be at least 1")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}

// StagePaths returns the data directory relative to the notifier repo when
// stage_data is on and the data lives inside the repo.
func (c *Config) StagePaths() []string {
	if !c.Notifier.StageData {
		return nil
	}
	rel, err := filepath.Rel(c.Notifier.RepoDir, c.DataDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{filepath.ToSlash(rel)}
}

// WriteYAML writes the resolved config with secrets masked.
func (c *Config) WriteYAML(w io.Writer) error {
	cp := *c
	cp.Server.AuthToken = MaskSecret(cp.Server.AuthToken)
	cp.Pushover.UserKey = MaskSecret(cp.Pushover.UserKey)
	cp.Pushover.AppToken = MaskSecret(cp.Pushover.AppToken)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&cp); err != nil {
		return err
	}
	return enc.Close()
}

// MaskSecret keeps the first four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
