package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/jivzik/uigen/internal/appdirs"
	"github.com/jivzik/uigen/internal/envfile"
	"github.com/jivzik/uigen/internal/envutil"
)

// ProjectConfigFile is looked up in the working directory and its parents.
const ProjectConfigFile = "uigen.yaml"

// Loader applies, in order: defaults, the user config, the project config
// (or an explicit --config path), then environment variables.
type Loader struct {
	logger *slog.Logger
	// ExplicitPath replaces project config discovery when set.
	ExplicitPath string
	// WorkDir is where project discovery starts; defaults to the process cwd.
	WorkDir string
	// UserPath overrides the per-user config location.
	UserPath string
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	userPath := l.UserPath
	if userPath == "" {
		if p, err := appdirs.UserConfigPath(); err == nil {
			userPath = p
		}
	}
	if userPath != "" {
		if userCfg, err := LoadFromFile(userPath); err == nil {
			l.logger.Debug("config.user_loaded", "path", userPath)
			cfg.Merge(userCfg)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("config.user_load_failed", "path", userPath, "error", err.Error())
		}
	}

	projectPath := l.ExplicitPath
	if projectPath == "" {
		projectPath = l.findProjectConfig()
	}
	if projectPath != "" {
		projectCfg, err := LoadFromFile(projectPath)
		if err != nil {
			if l.ExplicitPath != "" {
				return nil, err
			}
			l.logger.Warn("config.project_load_failed", "path", projectPath, "error", err.Error())
		} else {
			l.logger.Debug("config.project_loaded", "path", projectPath)
			cfg.Merge(projectCfg)
		}
	}

	applyEnv(cfg)
	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = envutil.String("UIGEN_ADDR", cfg.Server.Addr)
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("UIGEN_ADDR") == "" {
		cfg.Server.Addr = ":" + port
	}
	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.SessionTTL = envutil.Duration("UIGEN_SESSION_TTL", cfg.Auth.SessionTTL)
	if envutil.Production() {
		cfg.Auth.SecureCookies = true
	}
	cfg.Model.APIKey = envutil.String("ANTHROPIC_API_KEY", cfg.Model.APIKey)
	cfg.Model.Name = envutil.String("UIGEN_MODEL", cfg.Model.Name)
	cfg.Model.Endpoint = envutil.String("UIGEN_MODEL_ENDPOINT", cfg.Model.Endpoint)
	cfg.Storage.DataDir = envutil.String("UIGEN_DATA_DIR", cfg.Storage.DataDir)
}

func (l *Loader) findProjectConfig() string {
	dir := l.WorkDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}
	return envfile.FindUpwards(dir, ProjectConfigFile)
}
