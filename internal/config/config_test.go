package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"short", "***"},
		{"exactly8", "***"},
		{"longerstring", "long...ring"},
		{"abcdefghij", "abcd...ghij"},
	}

	for _, tt := range tests {
		result := maskSecret(tt.input)
		if result != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	input := "prefix_${TEST_VAR}_suffix"
	result := expandEnv(input)
	expected := "prefix_test_value_suffix"

	if result != expected {
		t.Errorf("expandEnv(%q) = %q, want %q", input, result, expected)
	}
}

func TestExpandEnv_MissingVar(t *testing.T) {
	os.Unsetenv("MISSING_VAR")

	input := "prefix_${MISSING_VAR}_suffix"
	result := expandEnv(input)
	expected := "prefix__suffix"

	if result != expected {
		t.Errorf("expandEnv(%q) = %q, want %q", input, result, expected)
	}
}

func createTestConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := createTestConfig(t, `
telegram:
  token: "123456:ABCdefGHIjklMNO"
  owner_id: 987654321
  owner_username: "TheOwner"
  updates_channel: "neetupdates"
  workers: 8
answer:
  api_url: "https://answers.example.com/api"
  api_key: "key"
  timeout: 10s
  max_retries: 3
storage:
  db_path: "/tmp/bot.db"
broadcast:
  send_delay: 500ms
  progress_every: 25
gate:
  prompt_ttl: 6h
  sweep_interval: 5m
bot:
  max_question_len: 1500
  rate_limit: 5
  rate_window: 30s
security:
  secret_patterns:
    - "password=\\S+"
metrics:
  listen_addr: ":9090"
log:
  format: json
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Telegram.OwnerID != 987654321 {
		t.Errorf("OwnerID = %d, want 987654321", cfg.Telegram.OwnerID)
	}
	if cfg.Telegram.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Telegram.Workers)
	}
	if cfg.Answer.Timeout != 10*time.Second {
		t.Errorf("Answer.Timeout = %v, want 10s", cfg.Answer.Timeout)
	}
	if cfg.Broadcast.SendDelay != 500*time.Millisecond {
		t.Errorf("SendDelay = %v, want 500ms", cfg.Broadcast.SendDelay)
	}
	if cfg.Broadcast.ProgressEvery != 25 {
		t.Errorf("ProgressEvery = %d, want 25", cfg.Broadcast.ProgressEvery)
	}
	if cfg.Gate.PromptTTL != 6*time.Hour {
		t.Errorf("PromptTTL = %v, want 6h", cfg.Gate.PromptTTL)
	}
	if cfg.Bot.MaxQuestionLen != 1500 {
		t.Errorf("MaxQuestionLen = %d, want 1500", cfg.Bot.MaxQuestionLen)
	}
	if len(cfg.Security.SecretPatterns) != 1 {
		t.Errorf("SecretPatterns = %v, want 1 pattern", cfg.Security.SecretPatterns)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := createTestConfig(t, `
telegram:
  token: "123456:ABCdefGHIjklMNO"
storage:
  db_path: "/tmp/bot.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Telegram.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Telegram.Workers)
	}
	if cfg.Broadcast.SendDelay != 350*time.Millisecond {
		t.Errorf("SendDelay = %v, want 350ms", cfg.Broadcast.SendDelay)
	}
	if cfg.Broadcast.ProgressEvery != 10 {
		t.Errorf("ProgressEvery = %d, want 10", cfg.Broadcast.ProgressEvery)
	}
	if cfg.Answer.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Answer.MaxRetries)
	}
	if cfg.Bot.MaxQuestionLen != 2000 {
		t.Errorf("MaxQuestionLen = %d, want 2000", cfg.Bot.MaxQuestionLen)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
}

func TestLoad_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "token",
			content: "storage:\n  db_path: /tmp/bot.db\n",
			want:    "telegram.token",
		},
		{
			name:    "db path",
			content: "telegram:\n  token: abc\n",
			want:    "storage.db_path",
		},
		{
			name:    "log format",
			content: "telegram:\n  token: abc\nstorage:\n  db_path: /tmp/bot.db\nlog:\n  format: xml\n",
			want:    "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(createTestConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %s", err, tt.want)
			}
		})
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	configPath := createTestConfig(t, "telegram:\n  token: abc\nstorage:\n  db_path: /tmp/bot.db\n")
	t.Setenv("CONFIG_PATH", configPath)

	if _, err := Load(""); err != nil {
		t.Fatalf("Load() via CONFIG_PATH failed: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "999:expanded-token")
	t.Setenv("TEST_OWNER_ID", "4242")

	configPath := createTestConfig(t, `
telegram:
  token: "${TEST_BOT_TOKEN}"
  owner_id: ${TEST_OWNER_ID}
storage:
  db_path: "/tmp/bot.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Telegram.Token != "999:expanded-token" {
		t.Errorf("Token = %q, want expanded value", cfg.Telegram.Token)
	}
	if cfg.Telegram.OwnerID != 4242 {
		t.Errorf("OwnerID = %d, want 4242", cfg.Telegram.OwnerID)
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "123456:verysecrettoken"},
		Answer:   AnswerConfig{APIURL: "https://answers", APIKey: "supersecretkey"},
		Storage:  StorageConfig{DBPath: "/data/bot.db"},
	}

	s := cfg.String()

	if strings.Contains(s, "verysecrettoken") {
		t.Error("String() leaked the telegram token")
	}
	if strings.Contains(s, "supersecretkey") {
		t.Error("String() leaked the answer API key")
	}
	if !strings.Contains(s, "/data/bot.db") {
		t.Error("String() should include the DB path")
	}
}
