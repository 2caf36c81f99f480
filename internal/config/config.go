package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for KnowledgeScout.
type Config struct {
	General   GeneralConfig   `json:"general" yaml:"general"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Ask       AskConfig       `json:"ask" yaml:"ask"`
	Hackathon HackathonConfig `json:"hackathon" yaml:"hackathon"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"` // "debug" | "info" | "warn" | "error"
}

type ServerConfig struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	MaxUploadBytes         int64  `json:"maxUploadBytes" yaml:"maxUploadBytes"`
	ShutdownTimeoutSeconds int    `json:"shutdownTimeoutSeconds" yaml:"shutdownTimeoutSeconds"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StoreConfig struct {
	Backend      string `json:"backend" yaml:"backend"`           // "memory" | "sqlite"
	MaxDocuments int    `json:"maxDocuments" yaml:"maxDocuments"` // 0 = unlimited
}

// RateLimitConfig configures the per-endpoint cooldown.
type RateLimitConfig struct {
	CooldownMillis int  `json:"cooldownMillis" yaml:"cooldownMillis"` // 0 = disabled
	PerClient      bool `json:"perClient" yaml:"perClient"`           // key by endpoint + client IP
	MaxKeys        int  `json:"maxKeys" yaml:"maxKeys"`
}

type CacheConfig struct {
	TTLSeconds int `json:"ttlSeconds" yaml:"ttlSeconds"` // 0 = disabled
	MaxEntries int `json:"maxEntries" yaml:"maxEntries"`
}

type AskConfig struct {
	DefaultK int `json:"defaultK" yaml:"defaultK"`
	MaxK     int `json:"maxK" yaml:"maxK"`
}

// HackathonConfig feeds /.well-known/hackathon.json.
type HackathonConfig struct {
	Team             string `json:"team" yaml:"team"`
	ProblemStatement int    `json:"problemStatement" yaml:"problemStatement"`
}

// DefaultConfigDir returns the default config directory (~/.knowledgescout).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".knowledgescout"
	}
	return filepath.Join(home, ".knowledgescout")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a JSON or YAML config file (chosen by extension) over Defaults.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes cfg as JSON or YAML depending on the path's extension.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if cfg.Server.MaxUploadBytes < 1 {
		errs = append(errs, "server.maxUploadBytes must be >= 1")
	}
	if cfg.Server.ShutdownTimeoutSeconds < 1 {
		errs = append(errs, "server.shutdownTimeoutSeconds must be >= 1")
	}

	switch cfg.Store.Backend {
	case "memory", "sqlite":
		// valid
	default:
		errs = append(errs, "store.backend must be one of: memory, sqlite")
	}
	if cfg.Store.MaxDocuments < 0 {
		errs = append(errs, "store.maxDocuments must be >= 0")
	}

	if cfg.RateLimit.CooldownMillis < 0 {
		errs = append(errs, "rateLimit.cooldownMillis must be >= 0")
	}
	if cfg.RateLimit.MaxKeys < 1 {
		errs = append(errs, "rateLimit.maxKeys must be >= 1")
	}

	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttlSeconds must be >= 0")
	}
	if cfg.Cache.MaxEntries < 1 {
		errs = append(errs, "cache.maxEntries must be >= 1")
	}

	if cfg.Ask.MaxK < 1 || cfg.Ask.MaxK > 100 {
		errs = append(errs, "ask.maxK must be between 1 and 100")
	}
	if cfg.Ask.DefaultK < 1 || cfg.Ask.DefaultK > cfg.Ask.MaxK {
		errs = append(errs, "ask.defaultK must be between 1 and ask.maxK")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
