package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "https://delta-scope.net/api/results"
	DefaultPort      = 8089
	DefaultHistory   = 500
	defaultPoll      = 5 * time.Second
	defaultHeartbeat = 60 * time.Second
	defaultTimeout   = 10 * time.Second
)

// AppConfig mirrors config.yaml.
type AppConfig struct {
	ServerPort int `yaml:"server_port"`
	API        struct {
		BaseURL           string        `yaml:"base_url"`
		PollInterval      time.Duration `yaml:"poll_interval"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Alert struct {
		CooldownSeconds int    `yaml:"cooldown_seconds"`
		NotifyRemovals  bool   `yaml:"notify_removals"`
		HistoryLimit    int    `yaml:"history_limit"`
		CSVDir          string `yaml:"csv_dir"`
	} `yaml:"alert"`
	NTFY struct {
		Endpoint string `yaml:"endpoint"`
		Topic    string `yaml:"topic"`
	} `yaml:"ntfy"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Persistence struct {
		SettingsDB string `yaml:"settings_db"`
	} `yaml:"persistence"`

	// LicenseKey comes from the environment only and seeds the settings store.
	LicenseKey string `yaml:"-"`
}

// Load reads the optional .env file and the YAML config at path. A missing
// config file is not an error; every field falls back to its default.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env loaded", "error", err)
	}

	cfg := &AppConfig{}
	if strings.TrimSpace(path) != "" {
		if err := loadYAML(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			slog.Info("config file not found, using defaults", "path", path)
		}
	}

	cfg.LicenseKey = strings.TrimSpace(os.Getenv("DELTASCOPE_LICENSE_KEY"))
	if p := strings.TrimSpace(os.Getenv("DELTAWATCH_PORT")); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			cfg.ServerPort = v
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

func (c *AppConfig) applyDefaults() {
	if c.ServerPort <= 0 {
		c.ServerPort = DefaultPort
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.PollInterval <= 0 {
		c.API.PollInterval = defaultPoll
	}
	if c.API.HeartbeatInterval <= 0 {
		c.API.HeartbeatInterval = defaultHeartbeat
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaultTimeout
	}
	if c.Alert.CooldownSeconds < 0 {
		c.Alert.CooldownSeconds = 0
	}
	if c.Alert.HistoryLimit <= 0 {
		c.Alert.HistoryLimit = DefaultHistory
	}
	if strings.TrimSpace(c.Alert.CSVDir) == "" {
		c.Alert.CSVDir = "alerts"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Logging.File) == "" {
		c.Logging.File = "logs/deltawatch.log"
	}
	if strings.TrimSpace(c.Persistence.SettingsDB) == "" {
		c.Persistence.SettingsDB = "deltawatch.db"
	}
}

// Cooldown returns the per-name alert cooldown; zero disables it.
func (c *AppConfig) Cooldown() time.Duration {
	return time.Duration(c.Alert.CooldownSeconds) * time.Second
}

// Addr is the HTTP listen address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
