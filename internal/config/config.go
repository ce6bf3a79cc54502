package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
	EventsConfig
}

// Settings is the raw configuration tree. YAML keys nest under app/api/store/events;
// environment variables override the file.
type Settings struct {
	EnvVars `yaml:"app"`
	API     `yaml:"api"`
	Store   `yaml:"store"`
	Events  `yaml:"events"`
}

type mainConfig struct {
	*Settings
}

var _ Config = mainConfig{}

// LoadDotEnv loads .env style files into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// New reads configuration from the environment only.
func New() (Config, error) {
	return Load("")
}

// Load reads the YAML file at path (when set), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	s := &Settings{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, s); err != nil {
			return nil, fmt.Errorf("[config.Load] read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(s); err != nil {
		return nil, fmt.Errorf("[config.Load] read env: %w", err)
	}

	if s.Store.Path == "" {
		s.Store.Path = defaultStorePath(s.Store.Driver)
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	return mainConfig{Settings: s}, nil
}

// Usage describes every environment variable, for --help output.
func Usage() string {
	desc, err := cleanenv.GetDescription(&Settings{}, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}

func validate(s *Settings) error {
	u, err := url.Parse(s.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "API_BASE_URL must be an absolute http(s) URL, got %q", s.API.BaseURL)
	}
	if s.API.RequestTimeout <= 0 || s.API.LogoutTimeout <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "API timeouts must be positive")
	}

	switch s.Store.Driver {
	case StoreMemory, StoreFile, StoreSQLite:
	case StoreRedis:
		if s.Store.RedisAddr == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "REDIS_ADDR is required for the redis store")
		}
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "unknown STORE_DRIVER %q", s.Store.Driver)
	}
	return nil
}

func defaultStorePath(driver string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch driver {
	case StoreSQLite:
		return filepath.Join(home, ".sessionctl", "credentials.db")
	case StoreFile:
		return filepath.Join(home, ".sessionctl", "credentials.yaml")
	default:
		return ""
	}
}
