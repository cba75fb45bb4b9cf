package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3030
	defaultEnv        = "development"
	defaultDBPath     = "data/meme-navigator.db"
	defaultRedisURL   = "redis://localhost:6379/0"
	defaultStaticDir  = "static"
	defaultLogDir     = "logs"
	defaultTokenDays  = 90
	defaultSiteTitle  = "Meme Navigator"
)

// AppConfig holds runtime startup configuration loaded from YAML. It is built
// once in main and passed down explicitly; nothing reads the process
// environment ad hoc.
type AppConfig struct {
	Port           int           `yaml:"port"`
	Env            string        `yaml:"env"` // "development" | "production"
	DatabasePath   string        `yaml:"database_path"`
	RedisURL       string        `yaml:"redis_url"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTLDays   int           `yaml:"token_ttl_days"`
	SiteTitle      string        `yaml:"site_title"`
	SiteURL        string        `yaml:"site_url"`
	Paths          PathsConfig   `yaml:"paths"`
	WebPush        WebPushConfig `yaml:"web_push"`
}

// PathsConfig locates writable directories.
type PathsConfig struct {
	Static string `yaml:"static"`
	Logs   string `yaml:"logs"`
}

// WebPushConfig carries the VAPID key pair for Web Push delivery. Push is
// disabled when the keys are empty.
type WebPushConfig struct {
	Subject         string `yaml:"subject"` // mailto: or https: contact URI
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
}

// Enabled reports whether push delivery is configured.
func (w WebPushConfig) Enabled() bool {
	return strings.TrimSpace(w.VAPIDPublicKey) != "" && strings.TrimSpace(w.VAPIDPrivateKey) != ""
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// StaticDir returns the static files directory.
func (c *AppConfig) StaticDir() string {
	if v := strings.TrimSpace(c.Paths.Static); v != "" {
		return v
	}
	return defaultStaticDir
}

// LogDir returns the log directory.
func (c *AppConfig) LogDir() string {
	if v := strings.TrimSpace(c.Paths.Logs); v != "" {
		return v
	}
	return defaultLogDir
}

// Load reads and validates the YAML config at path. Missing file is an error;
// missing fields fall back to defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.TokenTTLDays < 1 {
		return nil, fmt.Errorf("invalid token_ttl_days %d in %q, expected >= 1", cfg.TokenTTLDays, path)
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return nil, fmt.Errorf("database_path is empty in %q", path)
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir %q: %w", dir, err)
		}
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:         defaultPort,
		Env:          defaultEnv,
		DatabasePath: defaultDBPath,
		RedisURL:     defaultRedisURL,
		TokenTTLDays: defaultTokenDays,
		SiteTitle:    defaultSiteTitle,
		Paths: PathsConfig{
			Static: defaultStaticDir,
			Logs:   defaultLogDir,
		},
	}
}
