package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ticketsmith/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify ticketsmith configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/ticketsmith/config.yaml
Project-specific overrides can be placed in .ticketsmith.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values with secrets masked.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("github.token: %s\n", config.MaskSecret(cfg.GitHub.Token))
	fmt.Printf("github.repository: %s\n", cfg.GitHub.Repository)
	fmt.Printf("github.base_url: %s\n", cfg.GitHub.BaseURL)
	fmt.Printf("anthropic.api_key: %s\n", config.MaskSecret(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("paths.plan: %s\n", cfg.Paths.Plan)
	fmt.Printf("paths.log_file: %s\n", cfg.Paths.LogFile)
	fmt.Printf("bot.dry_run: %t\n", cfg.Bot.DryRun)
	fmt.Printf("bot.include_closed_issues: %t\n", cfg.Bot.IncludeClosedIssues)
	fmt.Printf("bot.max_new_tickets: %d\n", cfg.Bot.MaxNewTickets)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.base_delay: %s\n", cfg.Retry.BaseDelay)
	fmt.Printf("retry.max_delay: %s\n", cfg.Retry.MaxDelay)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "github.token":
		return config.MaskSecret(cfg.GitHub.Token), nil
	case "github.repository":
		return cfg.GitHub.Repository, nil
	case "github.base_url":
		return cfg.GitHub.BaseURL, nil
	case "anthropic.api_key":
		return config.MaskSecret(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "paths.plan":
		return cfg.Paths.Plan, nil
	case "paths.log_file":
		return cfg.Paths.LogFile, nil
	case "bot.dry_run":
		return strconv.FormatBool(cfg.Bot.DryRun), nil
	case "bot.include_closed_issues":
		return strconv.FormatBool(cfg.Bot.IncludeClosedIssues), nil
	case "bot.max_new_tickets":
		return strconv.Itoa(cfg.Bot.MaxNewTickets), nil
	case "retry.max_attempts":
		return strconv.Itoa(cfg.Retry.MaxAttempts), nil
	case "retry.base_delay":
		return cfg.Retry.BaseDelay.String(), nil
	case "retry.max_delay":
		return cfg.Retry.MaxDelay.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "github.token":
		cfg.GitHub.Token = value
	case "github.repository":
		cfg.GitHub.Repository = value
	case "github.base_url":
		cfg.GitHub.BaseURL = value
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_aws_bedrock: %w", err)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "paths.plan":
		cfg.Paths.Plan = value
	case "paths.log_file":
		cfg.Paths.LogFile = value
	case "bot.dry_run":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for dry_run: %w", err)
		}
		cfg.Bot.DryRun = b
	case "bot.include_closed_issues":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for include_closed_issues: %w", err)
		}
		cfg.Bot.IncludeClosedIssues = b
	case "bot.max_new_tickets":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_new_tickets: %w", err)
		}
		cfg.Bot.MaxNewTickets = n
	case "retry.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_attempts: %w", err)
		}
		cfg.Retry.MaxAttempts = n
	case "retry.base_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for base_delay: %w", err)
		}
		cfg.Retry.BaseDelay = d
	case "retry.max_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for max_delay: %w", err)
		}
		cfg.Retry.MaxDelay = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
