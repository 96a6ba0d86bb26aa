package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)
const defaultDiagnosisTimeoutSeconds = 30

const (
	BackendRules     = "rules"
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	DiagnosisBackend        string `yaml:"diagnosis_backend"`
	DiagnosisTimeoutSeconds int    `yaml:"diagnosis_timeout_seconds"`
	RulesPath               string `yaml:"rules_path"`

	LLMModel         string `yaml:"llm_model"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`
	OpenAIBaseURL    string `yaml:"openai_base_url"`
	GeminiBaseURL    string `yaml:"gemini_base_url"`

	// Credentials are only read from the environment (or *_FILE secret
	// mounts), never from config.yaml.
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
	SlackBotToken   string `yaml:"-"`
	SlackAppToken   string `yaml:"-"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SlackAlertChannelID string   `yaml:"slack_alert_channel_id"`
	SlackAlertMentions  []string `yaml:"slack_alert_mentions"`

	TelemetrySnapshotPath  string `yaml:"telemetry_snapshot_path"`
	TelemetryCheckSchedule string `yaml:"telemetry_check_schedule"`
	Timezone               string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// Load reads config.yaml (or CONFIG_PATH), applies env overrides and
// defaults, and validates the result.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing %s: %w", configPath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverride(&cfg.DiagnosisBackend, "DIAGNOSIS_BACKEND")
	envOverride(&cfg.RulesPath, "RULES_PATH")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.GeminiBaseURL, "GEMINI_BASE_URL")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.LogFormat, "LOG_FORMAT")
	envOverride(&cfg.SlackAlertChannelID, "SLACK_ALERT_CHANNEL_ID")
	envOverride(&cfg.TelemetrySnapshotPath, "TELEMETRY_SNAPSHOT_PATH")
	envOverride(&cfg.TelemetryCheckSchedule, "TELEMETRY_CHECK_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if names := os.Getenv("SLACK_ALERT_MENTIONS"); names != "" {
		cfg.SlackAlertMentions = nil
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.SlackAlertMentions = append(cfg.SlackAlertMentions, name)
			}
		}
	}

	if err := envOverrideInt(&cfg.DiagnosisTimeoutSeconds, "DIAGNOSIS_TIMEOUT_SECONDS"); err != nil {
		return err
	}
	if err := envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"); err != nil {
		return err
	}

	secrets := []struct {
		field *string
		key   string
	}{
		{&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY"},
		{&cfg.OpenAIAPIKey, "OPENAI_API_KEY"},
		{&cfg.GeminiAPIKey, "GEMINI_API_KEY"},
		{&cfg.SlackBotToken, "SLACK_BOT_TOKEN"},
		{&cfg.SlackAppToken, "SLACK_APP_TOKEN"},
	}
	for _, s := range secrets {
		if err := secretOverride(s.field, s.key); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	cfg.DiagnosisBackend = strings.ToLower(strings.TrimSpace(cfg.DiagnosisBackend))
	if cfg.DiagnosisBackend == "" {
		cfg.DiagnosisBackend = BackendRules
	}
	if cfg.DiagnosisTimeoutSeconds == 0 {
		cfg.DiagnosisTimeoutSeconds = defaultDiagnosisTimeoutSeconds
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
}

func (cfg *Config) validate() error {
	switch cfg.DiagnosisBackend {
	case BackendRules:
	case BackendAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when diagnosis_backend=anthropic")
		}
	case BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when diagnosis_backend=openai")
		}
	case BackendGemini:
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when diagnosis_backend=gemini")
		}
	default:
		return fmt.Errorf("diagnosis_backend must be one of rules, anthropic, openai, gemini; got '%s'", cfg.DiagnosisBackend)
	}

	if cfg.DiagnosisTimeoutSeconds < 1 {
		return fmt.Errorf("invalid diagnosis_timeout_seconds '%d': must be >= 1", cfg.DiagnosisTimeoutSeconds)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level '%s': must be debug, info, warn or error", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log_format '%s': must be json or console", cfg.LogFormat)
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN must be set together")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if schedule := strings.TrimSpace(cfg.TelemetryCheckSchedule); schedule != "" {
		if _, err := ParseSchedule(schedule); err != nil {
			return fmt.Errorf("invalid telemetry_check_schedule '%s': %w", schedule, err)
		}
		if strings.TrimSpace(cfg.TelemetrySnapshotPath) == "" {
			return fmt.Errorf("telemetry_check_schedule is set but telemetry_snapshot_path is empty")
		}
	}
	return nil
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

// secretOverride reads envKey, or the file named by envKey_FILE when the
// plain variable is unset.
func secretOverride(field *string, envKey string) error {
	if val := strings.TrimSpace(os.Getenv(envKey)); val != "" {
		*field = val
		return nil
	}
	path := strings.TrimSpace(os.Getenv(envKey + "_FILE"))
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s_FILE: %w", envKey, err)
	}
	*field = strings.TrimSpace(string(data))
	return nil
}

func (c Config) DiagnosisTimeout() time.Duration {
	return time.Duration(c.DiagnosisTimeoutSeconds) * time.Second
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

func (c Config) TelemetryConfigured() bool {
	return strings.TrimSpace(c.TelemetryCheckSchedule) != "" && strings.TrimSpace(c.TelemetrySnapshotPath) != ""
}
