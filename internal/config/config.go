package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	API         APIConfig   `yaml:"api"`
	Credentials CredsConfig `yaml:"credentials"`
	Log         LogConfig   `yaml:"log"`
}

type APIConfig struct {
	// BaseURL is the root of the Poulin Pay REST API, including the /api prefix.
	BaseURL string        `yaml:"base_url" env:"POULIN_API_BASE_URL" env-default:"http://localhost:8000/api"`
	Timeout time.Duration `yaml:"timeout" env:"POULIN_HTTP_TIMEOUT" env-default:"30s"`
}

type CredsConfig struct {
	// File holds the stored token pair. "~" expands to the user's home directory.
	File string `yaml:"file" env:"POULIN_CREDENTIALS_FILE" env-default:"~/.poulin/credentials.json"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"POULIN_LOG_LEVEL" env-default:"warning"`
	Format string `yaml:"format" env:"POULIN_LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from an optional yaml file overlaid with
// environment variables. An empty path means env-only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q not readable: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	file, err := expandHome(cfg.Credentials.File)
	if err != nil {
		return nil, err
	}
	cfg.Credentials.File = file

	return &cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
