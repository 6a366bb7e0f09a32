package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	LLM           LLMConfig           `toml:"llm"`
	Email         EmailConfig         `toml:"email"`
	Scheduler     SchedulerConfig     `toml:"scheduler"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
}

// LLMConfig holds text-generation provider settings
type LLMConfig struct {
	GeminiAPIKey string  `toml:"gemini_api_key"`
	Model        string  `toml:"model"`
	RateLimitRPS float64 `toml:"rate_limit_rps"`
}

// EmailConfig holds the delivery relay settings
type EmailConfig struct {
	RelayURL string `toml:"relay_url"`
	From     string `toml:"from"`
}

// SchedulerConfig holds the periodic job settings
type SchedulerConfig struct {
	DrainCron     string `toml:"drain_cron"`
	FollowUpCron  string `toml:"follow_up_cron"`
	CleanupCron   string `toml:"cleanup_cron"`
	SnapshotCron  string `toml:"snapshot_cron"`
	BatchSize     int    `toml:"batch_size"`
	RetentionDays int    `toml:"retention_days"`
}

// NotificationsConfig holds operator alert settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds HTTP API settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".pipeline-orch", "pipeline.db"),
		},
		LLM: LLMConfig{
			Model:        "gemini-2.0-flash",
			RateLimitRPS: 1,
		},
		Scheduler: SchedulerConfig{
			BatchSize:     10,
			RetentionDays: 30,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pipeline-orch", "config.toml")
}
