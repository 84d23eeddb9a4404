package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "./configs/config.yaml"

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Answer    AnswerConfig    `yaml:"answer"`
	Storage   StorageConfig   `yaml:"storage"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Gate      GateConfig      `yaml:"gate"`
	Bot       BotConfig       `yaml:"bot"`
	Security  SecurityConfig  `yaml:"security"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type TelegramConfig struct {
	Token          string `yaml:"token"`
	OwnerID        int64  `yaml:"owner_id"`
	OwnerUsername  string `yaml:"owner_username"`
	UpdatesChannel string `yaml:"updates_channel"`
	Workers        int    `yaml:"workers"`
}

type AnswerConfig struct {
	APIURL     string        `yaml:"api_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

type BroadcastConfig struct {
	SendDelay     time.Duration `yaml:"send_delay"`
	ProgressEvery int           `yaml:"progress_every"`
}

type GateConfig struct {
	PromptTTL     time.Duration `yaml:"prompt_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type BotConfig struct {
	MaxQuestionLen int           `yaml:"max_question_len"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
}

type SecurityConfig struct {
	SecretPatterns []string `yaml:"secret_patterns"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables the endpoint
}

type LogConfig struct {
	Format string `yaml:"format"` // text or json
}

// Load reads the YAML config at path, falling back to $CONFIG_PATH and then
// DefaultPath. A .env file in the working directory is loaded first so its
// variables can be referenced as ${VAR} in the YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	content := expandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 4
	}
	if c.Answer.Timeout == 0 {
		c.Answer.Timeout = 30 * time.Second
	}
	if c.Answer.MaxRetries == 0 {
		c.Answer.MaxRetries = 2
	}
	if c.Broadcast.SendDelay == 0 {
		c.Broadcast.SendDelay = 350 * time.Millisecond
	}
	if c.Broadcast.ProgressEvery <= 0 {
		c.Broadcast.ProgressEvery = 10
	}
	if c.Gate.PromptTTL == 0 {
		c.Gate.PromptTTL = 24 * time.Hour
	}
	if c.Gate.SweepInterval == 0 {
		c.Gate.SweepInterval = 10 * time.Minute
	}
	if c.Bot.MaxQuestionLen <= 0 {
		c.Bot.MaxQuestionLen = 2000
	}
	if c.Bot.RateLimit <= 0 {
		c.Bot.RateLimit = 10
	}
	if c.Bot.RateWindow == 0 {
		c.Bot.RateWindow = time.Minute
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.OwnerID < 0 {
		return fmt.Errorf("telegram.owner_id must be a user ID")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Answer.MaxRetries < 0 {
		return fmt.Errorf("answer.max_retries must not be negative")
	}
	if c.Broadcast.SendDelay < 0 {
		return fmt.Errorf("broadcast.send_delay must not be negative")
	}
	if c.Gate.SweepInterval < 0 || c.Gate.PromptTTL < 0 {
		return fmt.Errorf("gate durations must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Telegram Token: %s\n", maskSecret(c.Telegram.Token)))
	sb.WriteString(fmt.Sprintf("  Telegram Owner ID: %d\n", c.Telegram.OwnerID))
	sb.WriteString(fmt.Sprintf("  Telegram Workers: %d\n", c.Telegram.Workers))
	if c.Answer.APIURL == "" {
		sb.WriteString("  Answer API: mock\n")
	} else {
		sb.WriteString(fmt.Sprintf("  Answer API: %s\n", c.Answer.APIURL))
		sb.WriteString(fmt.Sprintf("  Answer API Key: %s\n", maskSecret(c.Answer.APIKey)))
	}
	sb.WriteString(fmt.Sprintf("  Answer Timeout: %s (retries: %d)\n", c.Answer.Timeout, c.Answer.MaxRetries))
	sb.WriteString(fmt.Sprintf("  Storage DB Path: %s\n", c.Storage.DBPath))
	sb.WriteString(fmt.Sprintf("  Broadcast Send Delay: %s\n", c.Broadcast.SendDelay))
	sb.WriteString(fmt.Sprintf("  Gate Prompt TTL: %s\n", c.Gate.PromptTTL))
	sb.WriteString(fmt.Sprintf("  Rate Limit: %d per %s\n", c.Bot.RateLimit, c.Bot.RateWindow))
	sb.WriteString(fmt.Sprintf("  Metrics Listen Addr: %s\n", c.Metrics.ListenAddr))
	return sb.String()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
