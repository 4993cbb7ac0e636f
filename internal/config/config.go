// Package config loads the layered YAML configuration for the uigen server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jivzik/uigen/internal/appdirs"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Model   ModelConfig   `yaml:"model"`
	Storage StorageConfig `yaml:"storage"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type AuthConfig struct {
	// JWTSecret signs session tokens. When empty a key derived from the
	// secrets store master key is used.
	JWTSecret         string        `yaml:"jwt_secret"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	CookieName        string        `yaml:"cookie_name"`
	AnonCookieName    string        `yaml:"anon_cookie_name"`
	SecureCookies     bool          `yaml:"secure_cookies"`
	MinPasswordLength int           `yaml:"min_password_length"`
}

type ModelConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	// APIKey is usually supplied through ANTHROPIC_API_KEY. Without one the
	// mock provider is used.
	APIKey       string `yaml:"api_key"`
	MaxTokens    int    `yaml:"max_tokens"`
	MaxSteps     int    `yaml:"max_steps"`
	MockMaxSteps int    `yaml:"mock_max_steps"`
}

type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	DatabasePath string `yaml:"database_path"`
	AnonDir      string `yaml:"anon_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Auth: AuthConfig{
			SessionTTL:        7 * 24 * time.Hour,
			CookieName:        "auth-token",
			AnonCookieName:    "uigen-anon",
			MinPasswordLength: 8,
		},
		Model: ModelConfig{
			Name:         "claude-haiku-4-5",
			Endpoint:     "https://api.anthropic.com",
			MaxTokens:    10000,
			MaxSteps:     40,
			MockMaxSteps: 4,
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.CookieName == "" || c.Auth.AnonCookieName == "" {
		return fmt.Errorf("auth cookie names are required")
	}
	if c.Auth.CookieName == c.Auth.AnonCookieName {
		return fmt.Errorf("auth.cookie_name and auth.anon_cookie_name must differ")
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be at least 1")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if u, err := url.Parse(c.Model.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("model.endpoint must be an absolute URL")
	}
	if c.Model.MaxSteps < 1 || c.Model.MockMaxSteps < 1 {
		return fmt.Errorf("model step limits must be at least 1")
	}
	if c.Model.MaxTokens < 1 {
		return fmt.Errorf("model.max_tokens must be at least 1")
	}
	return nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge copies every non-zero field of other over c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ReadTimeout != 0 {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}
	if other.Server.WriteTimeout != 0 {
		c.Server.WriteTimeout = other.Server.WriteTimeout
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}
	if other.Server.MaxBodyBytes != 0 {
		c.Server.MaxBodyBytes = other.Server.MaxBodyBytes
	}

	if other.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = other.Auth.JWTSecret
	}
	if other.Auth.SessionTTL != 0 {
		c.Auth.SessionTTL = other.Auth.SessionTTL
	}
	if other.Auth.CookieName != "" {
		c.Auth.CookieName = other.Auth.CookieName
	}
	if other.Auth.AnonCookieName != "" {
		c.Auth.AnonCookieName = other.Auth.AnonCookieName
	}
	if other.Auth.SecureCookies {
		c.Auth.SecureCookies = true
	}
	if other.Auth.MinPasswordLength != 0 {
		c.Auth.MinPasswordLength = other.Auth.MinPasswordLength
	}

	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.APIKey != "" {
		c.Model.APIKey = other.Model.APIKey
	}
	if other.Model.MaxTokens != 0 {
		c.Model.MaxTokens = other.Model.MaxTokens
	}
	if other.Model.MaxSteps != 0 {
		c.Model.MaxSteps = other.Model.MaxSteps
	}
	if other.Model.MockMaxSteps != 0 {
		c.Model.MockMaxSteps = other.Model.MockMaxSteps
	}

	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.DatabasePath != "" {
		c.Storage.DatabasePath = other.Storage.DatabasePath
	}
	if other.Storage.AnonDir != "" {
		c.Storage.AnonDir = other.Storage.AnonDir
	}
}

// ResolvePaths fills storage locations left empty from the data directory.
func (c *Config) ResolvePaths() error {
	if c.Storage.DataDir == "" {
		dir, err := appdirs.DataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.Storage.DataDir = dir
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = appdirs.DatabasePath(c.Storage.DataDir)
	}
	if c.Storage.AnonDir == "" {
		c.Storage.AnonDir = appdirs.AnonWorkDir(c.Storage.DataDir)
	}
	return nil
}

// UseMockProvider reports whether generation runs without a real model.
func (c *Config) UseMockProvider() bool {
	return c.Model.APIKey == ""
}
