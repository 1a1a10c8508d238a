package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localBaseURL      = "http://localhost:8000"
	productionBaseURL = "https://todo-web-app-i8sh.onrender.com"
)

type Config struct {
	APIBaseURL string `yaml:"api_base_url"`
	StateDir   string `yaml:"state_dir"`
	Hostname   string `yaml:"hostname"`
	Debug      bool   `yaml:"debug"`
}

func DefaultConfig() Config {
	host, _ := os.Hostname()
	return Config{
		Hostname: host,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("TASKFLOW_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("TASKFLOW_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = ResolveBaseURL(cfg.Hostname)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir()
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "taskflow", "config.yml")
}

// DefaultStateDir prefers the XDG data dir and falls back to the home
// directory, the same chain used for every other on-disk artifact.
func DefaultStateDir() string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, "taskflow")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "taskflow")
	}
	return filepath.Join(os.TempDir(), "taskflow")
}

// ResolveBaseURL picks the backend host when no explicit base URL is
// configured: local hostnames talk to a local backend, everything else to
// the production deployment.
func ResolveBaseURL(hostname string) string {
	switch strings.ToLower(strings.TrimSpace(hostname)) {
	case "localhost", "127.0.0.1":
		return localBaseURL
	default:
		return productionBaseURL
	}
}
