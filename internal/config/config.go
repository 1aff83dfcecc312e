// Package config handles configuration loading for ticketsmith.
// It supports XDG config paths, project-level overrides, and environment
// variables. The loaded Config is built once at startup and passed
// explicitly into each component; core logic never reads ambient state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a run. Treat as immutable after Load.
type Config struct {
	GitHub    GitHubConfig    `mapstructure:"github"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Bot       BotConfig       `mapstructure:"bot"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

// GitHubConfig holds tracker API settings.
type GitHubConfig struct {
	// Token is a pre-obtained personal access token.
	Token string `mapstructure:"token"`
	// Repository is "owner/repo".
	Repository string `mapstructure:"repository"`
	// BaseURL overrides the API endpoint for GitHub Enterprise.
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds model API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseAWSBedrock routes model calls through AWS Bedrock.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// PathsConfig holds file locations.
type PathsConfig struct {
	// Plan is the implementation plan document.
	Plan string `mapstructure:"plan"`
	// LogFile receives the run log in addition to stderr. Empty disables it.
	LogFile string `mapstructure:"log_file"`
}

// BotConfig holds run policy defaults; sync flags override them.
type BotConfig struct {
	DryRun              bool `mapstructure:"dry_run"`
	IncludeClosedIssues bool `mapstructure:"include_closed_issues"`
	MaxNewTickets       int  `mapstructure:"max_new_tickets"`
}

// RetryConfig holds the shared backoff settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (GITHUB_TOKEN, ANTHROPIC_API_KEY)
// 2. Project config (.ticketsmith.yaml in current directory or a parent)
// 3. User config (~/.config/ticketsmith/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file, skipping the
// XDG and project search.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in credentials.
	cfg.GitHub.Token = os.ExpandEnv(cfg.GitHub.Token)
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("github.token", cfg.GitHub.Token)
	v.Set("github.repository", cfg.GitHub.Repository)
	v.Set("github.base_url", cfg.GitHub.BaseURL)
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("paths.plan", cfg.Paths.Plan)
	v.Set("paths.log_file", cfg.Paths.LogFile)
	v.Set("bot.dry_run", cfg.Bot.DryRun)
	v.Set("bot.include_closed_issues", cfg.Bot.IncludeClosedIssues)
	v.Set("bot.max_new_tickets", cfg.Bot.MaxNewTickets)
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.base_delay", cfg.Retry.BaseDelay.String())
	v.Set("retry.max_delay", cfg.Retry.MaxDelay.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// Validate checks that a sync run has what it needs. Commands that never
// hit the APIs (config, version) skip it so they work on a fresh machine.
func (c *Config) Validate() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("github.token is not set (set it or export GITHUB_TOKEN)")
	}
	if c.GitHub.Repository == "" {
		return fmt.Errorf("github.repository is not set")
	}
	if owner, repo, ok := strings.Cut(c.GitHub.Repository, "/"); !ok || owner == "" || repo == "" {
		return fmt.Errorf("github.repository must be owner/repo, got %q", c.GitHub.Repository)
	}
	if c.Paths.Plan == "" {
		return fmt.Errorf("paths.plan is not set")
	}
	if c.Bot.MaxNewTickets < 0 {
		return fmt.Errorf("bot.max_new_tickets must be non-negative, got %d", c.Bot.MaxNewTickets)
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.repository", "")
	v.SetDefault("github.base_url", "")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("paths.plan", "plan.yaml")
	v.SetDefault("paths.log_file", "")

	v.SetDefault("bot.dry_run", false)
	v.SetDefault("bot.include_closed_issues", false)
	v.SetDefault("bot.max_new_tickets", 10)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
}

// getUserConfigDir returns the XDG config directory for ticketsmith.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ticketsmith")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ticketsmith")
	}
	return filepath.Join(home, ".config", "ticketsmith")
}

// findProjectConfig searches for .ticketsmith.yaml in the current
// directory and its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ticketsmith.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Plan: "plan.yaml",
		},
		Bot: BotConfig{
			MaxNewTickets: 10,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
	}
}
