package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	for _, key := range []string{
		"HTTP_ADDR", "DIAGNOSIS_BACKEND", "RULES_PATH", "LLM_MODEL",
		"ANTHROPIC_BASE_URL", "OPENAI_BASE_URL", "GEMINI_BASE_URL", "LOG_LEVEL", "LOG_FORMAT",
		"SLACK_ALERT_CHANNEL_ID", "SLACK_ALERT_MENTIONS", "TELEMETRY_SNAPSHOT_PATH", "TELEMETRY_CHECK_SCHEDULE",
		"DIAGNOSIS_TIMEOUT_SECONDS", "EXTERNAL_HTTP_TIMEOUT_SECONDS",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN",
		"ANTHROPIC_API_KEY_FILE", "OPENAI_API_KEY_FILE", "GEMINI_API_KEY_FILE",
		"SLACK_BOT_TOKEN_FILE", "SLACK_APP_TOKEN_FILE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr default: %q", cfg.HTTPAddr)
	}
	if cfg.DiagnosisBackend != BackendRules {
		t.Fatalf("unexpected backend default: %q", cfg.DiagnosisBackend)
	}
	if cfg.DiagnosisTimeout() != 30*time.Second {
		t.Fatalf("unexpected diagnosis timeout default: %s", cfg.DiagnosisTimeout())
	}
	if cfg.ExternalHTTPTimeoutSeconds != defaultExternalHTTPTimeoutSeconds {
		t.Fatalf("unexpected external HTTP timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected logging defaults: level=%q format=%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if cfg.SlackConfigured() || cfg.TelemetryConfigured() {
		t.Fatal("slack and telemetry must be disabled by default")
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	clearConfigEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_addr: ":9000"
diagnosis_backend: "anthropic"
llm_model: "yaml-model"
rules_path: "/etc/carcare/rules.yaml"
log_format: "console"
external_http_timeout_seconds: 75
anthropic_api_key: "must-not-be-read-from-yaml"
slack_alert_mentions: ["yaml-user"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("DIAGNOSIS_BACKEND", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("EXTERNAL_HTTP_TIMEOUT_SECONDS", "120")
	t.Setenv("SLACK_ALERT_MENTIONS", " Alice , ,U0123ABCDE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected http addr from yaml, got %q", cfg.HTTPAddr)
	}
	if cfg.DiagnosisBackend != BackendOpenAI {
		t.Fatalf("expected backend from env override, got %q", cfg.DiagnosisBackend)
	}
	if cfg.OpenAIAPIKey != "sk-env" {
		t.Fatalf("expected openai key from env")
	}
	if cfg.AnthropicAPIKey != "" {
		t.Fatalf("api keys must never be read from config.yaml")
	}
	if cfg.LLMModel != "yaml-model" || cfg.RulesPath != "/etc/carcare/rules.yaml" {
		t.Fatalf("unexpected yaml values: model=%q rules=%q", cfg.LLMModel, cfg.RulesPath)
	}
	if cfg.LogFormat != "console" {
		t.Fatalf("expected log format from yaml, got %q", cfg.LogFormat)
	}
	if len(cfg.SlackAlertMentions) != 2 || cfg.SlackAlertMentions[0] != "Alice" || cfg.SlackAlertMentions[1] != "U0123ABCDE" {
		t.Fatalf("expected alert mentions from env override, got %v", cfg.SlackAlertMentions)
	}
	if cfg.ExternalHTTPTimeoutSeconds != 120 {
		t.Fatalf("expected external HTTP timeout from env override, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
}

func TestLoadSecretFromFile(t *testing.T) {
	clearConfigEnv(t)
	secretPath := filepath.Join(t.TempDir(), "anthropic-key")
	if err := os.WriteFile(secretPath, []byte("sk-ant-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("DIAGNOSIS_BACKEND", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY_FILE", secretPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AnthropicAPIKey != "sk-ant-file" {
		t.Fatalf("expected key from secret file, got %q", cfg.AnthropicAPIKey)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown backend",
			env:  map[string]string{"DIAGNOSIS_BACKEND": "magic"},
			want: "diagnosis_backend must be one of",
		},
		{
			name: "remote backend without key",
			env:  map[string]string{"DIAGNOSIS_BACKEND": "gemini"},
			want: "GEMINI_API_KEY is required",
		},
		{
			name: "short http timeout",
			env:  map[string]string{"EXTERNAL_HTTP_TIMEOUT_SECONDS": "2"},
			want: "external_http_timeout_seconds",
		},
		{
			name: "non-numeric timeout",
			env:  map[string]string{"DIAGNOSIS_TIMEOUT_SECONDS": "soon"},
			want: "invalid DIAGNOSIS_TIMEOUT_SECONDS",
		},
		{
			name: "half slack config",
			env:  map[string]string{"SLACK_BOT_TOKEN": "xoxb-test"},
			want: "must be set together",
		},
		{
			name: "bad cron",
			env:  map[string]string{"TELEMETRY_CHECK_SCHEDULE": "every day", "TELEMETRY_SNAPSHOT_PATH": "snap.yaml"},
			want: "invalid telemetry_check_schedule",
		},
		{
			name: "schedule without snapshot",
			env:  map[string]string{"TELEMETRY_CHECK_SCHEDULE": "0 9 * * *"},
			want: "telemetry_snapshot_path is empty",
		},
		{
			name: "bad log level",
			env:  map[string]string{"LOG_LEVEL": "verbose"},
			want: "invalid log_level",
		},
		{
			name: "bad timezone",
			env:  map[string]string{"TIMEZONE": "Mars/Colony"},
			want: "invalid timezone",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("0 9 * * 1-5")
	if err != nil {
		t.Fatalf("ParseSchedule returned error: %v", err)
	}
	from := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC) // Friday
	want := time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)  // Monday
	if got := sched.Next(from); !got.Equal(want) {
		t.Fatalf("unexpected next run: got %v want %v", got, want)
	}
	if _, err := ParseSchedule("* * *"); err == nil {
		t.Fatal("expected ParseSchedule to fail for a 3-field expression")
	}
}
