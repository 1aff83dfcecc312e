package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ticketsmith/internal/config"
	"ticketsmith/internal/draft"
	"ticketsmith/internal/plan"
	"ticketsmith/internal/tracker"
)

var checkConfigPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration, plan, and GitHub access",
	Long: `Check validates the configuration, parses the plan file, and verifies
the GitHub token by fetching the authenticated user. Nothing is written.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "Config file (default: XDG config plus .ticketsmith.yaml)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig(checkConfigPath)
	if err != nil {
		printStatus("✗", fmt.Sprintf("Config: %v", err), color.FgRed)
		return err
	}
	printStatus("✓", "Config loaded", color.FgGreen)

	failed := false

	if err := cfg.Validate(); err != nil {
		printStatus("✗", fmt.Sprintf("Config invalid: %v", err), color.FgRed)
		failed = true
	} else {
		printStatus("✓", fmt.Sprintf("Config valid (repo %s)", cfg.GitHub.Repository), color.FgGreen)
	}

	if p, err := plan.Load(cfg.Paths.Plan); err != nil {
		printStatus("✗", fmt.Sprintf("Plan: %v", err), color.FgRed)
		failed = true
	} else {
		s := p.Summary()
		printStatus("✓", fmt.Sprintf("Plan %q parsed (%d subtasks)", s.Project, s.Subtasks), color.FgGreen)
	}

	if cfg.GitHub.Token != "" && cfg.GitHub.Repository != "" {
		gh, err := tracker.NewClient(tracker.ClientConfig{
			Token:      cfg.GitHub.Token,
			Repository: cfg.GitHub.Repository,
			BaseURL:    cfg.GitHub.BaseURL,
		})
		if err != nil {
			printStatus("✗", fmt.Sprintf("GitHub client: %v", err), color.FgRed)
			failed = true
		} else if login, err := gh.Viewer(ctx); err != nil {
			printStatus("✗", fmt.Sprintf("GitHub token rejected: %v", err), color.FgRed)
			failed = true
		} else {
			printStatus("✓", fmt.Sprintf("GitHub token OK (authenticated as %s)", login), color.FgGreen)
		}
	}

	if _, err := config.APIKey(cfg); err != nil && !cfg.Anthropic.UseAWSBedrock {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (only --dry-run syncs will work)", color.FgYellow)
	} else if model, err := draft.NewClient(draft.ClientConfig{
		APIKey:        cfg.Anthropic.APIKey,
		Model:         cfg.Anthropic.Model,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	}); err != nil {
		printStatus("✗", fmt.Sprintf("Model client: %v", err), color.FgRed)
		failed = true
	} else if _, err := model.Complete(ctx, "Reply with the single word: ok"); err != nil {
		printStatus("✗", fmt.Sprintf("Model unreachable: %v", err), color.FgRed)
		failed = true
	} else {
		printStatus("✓", fmt.Sprintf("Model reachable (%s)", model.Model()), color.FgGreen)
	}

	if failed {
		return fmt.Errorf("check found problems")
	}
	return nil
}

// printStatus prints a colored status symbol followed by a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
