package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
github:
  token: ghp_test
  repository: acme/field-app
anthropic:
  api_key: sk-test
  model: claude-sonnet-4-20250514
paths:
  plan: docs/plan.yaml
  log_file: sync.log
bot:
  dry_run: true
  include_closed_issues: true
  max_new_tickets: 5
retry:
  max_attempts: 4
  base_delay: 2s
  max_delay: 1m
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("token = %q, want %q", cfg.GitHub.Token, "ghp_test")
	}
	if cfg.GitHub.Repository != "acme/field-app" {
		t.Errorf("repository = %q, want %q", cfg.GitHub.Repository, "acme/field-app")
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Paths.Plan != "docs/plan.yaml" {
		t.Errorf("plan = %q", cfg.Paths.Plan)
	}
	if !cfg.Bot.DryRun || !cfg.Bot.IncludeClosedIssues {
		t.Errorf("bot flags = %+v, want both true", cfg.Bot)
	}
	if cfg.Bot.MaxNewTickets != 5 {
		t.Errorf("max_new_tickets = %d, want 5", cfg.Bot.MaxNewTickets)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("max_attempts = %d, want 4", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("base_delay = %v, want 2s", cfg.Retry.BaseDelay)
	}
	if cfg.Retry.MaxDelay != time.Minute {
		t.Errorf("max_delay = %v, want 1m", cfg.Retry.MaxDelay)
	}
}

func TestLoadFromPath_Defaults(t *testing.T) {
	path := writeConfig(t, `
github:
  repository: acme/field-app
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Paths.Plan != "plan.yaml" {
		t.Errorf("plan = %q, want default plan.yaml", cfg.Paths.Plan)
	}
	if cfg.Bot.MaxNewTickets != 10 {
		t.Errorf("max_new_tickets = %d, want default 10", cfg.Bot.MaxNewTickets)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != time.Second || cfg.Retry.MaxDelay != 30*time.Second {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
	if cfg.Bot.DryRun {
		t.Error("dry_run should default to false")
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromPath_EnvOverridesFile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	path := writeConfig(t, `
github:
  token: ghp_from_file
anthropic:
  api_key: sk-from-file
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.GitHub.Token != "ghp_from_env" {
		t.Errorf("token = %q, want env value", cfg.GitHub.Token)
	}
	if cfg.Anthropic.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, want env value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("VAULT_GH_TOKEN", "ghp_expanded")

	path := writeConfig(t, `
github:
  token: ${VAULT_GH_TOKEN}
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.GitHub.Token != "ghp_expanded" {
		t.Errorf("token = %q, want expanded value", cfg.GitHub.Token)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.GitHub.Token = "ghp_test"
		cfg.GitHub.Repository = "acme/field-app"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.GitHub.Token = "" }, "github.token"},
		{"missing repository", func(c *Config) { c.GitHub.Repository = "" }, "github.repository"},
		{"repository without owner", func(c *Config) { c.GitHub.Repository = "just-a-repo" }, "owner/repo"},
		{"repository with empty repo", func(c *Config) { c.GitHub.Repository = "acme/" }, "owner/repo"},
		{"missing plan", func(c *Config) { c.Paths.Plan = "" }, "paths.plan"},
		{"negative ticket limit", func(c *Config) { c.Bot.MaxNewTickets = -1 }, "max_new_tickets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.GitHub.Token = "ghp_save"
	cfg.GitHub.Repository = "acme/field-app"
	cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	cfg.Bot.MaxNewTickets = 7

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if loaded.GitHub.Repository != "acme/field-app" {
		t.Errorf("repository = %q", loaded.GitHub.Repository)
	}
	if loaded.Bot.MaxNewTickets != 7 {
		t.Errorf("max_new_tickets = %d, want 7", loaded.Bot.MaxNewTickets)
	}
	if loaded.Retry.BaseDelay != time.Second {
		t.Errorf("base_delay = %v, want 1s", loaded.Retry.BaseDelay)
	}
}
