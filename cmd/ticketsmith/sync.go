package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ticketsmith/internal/config"
	"ticketsmith/internal/draft"
	"ticketsmith/internal/plan"
	"ticketsmith/internal/publish"
	"ticketsmith/internal/reconcile"
	"ticketsmith/internal/retry"
	"ticketsmith/internal/tracker"
)

var (
	syncConfigPath    string
	syncPlanPath      string
	syncDryRun        bool
	syncIncludeClosed bool
	syncMaxNewTickets int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the plan against GitHub and create missing tickets",
	Long: `Sync loads the plan, lists the repository's issues, and finds plan
subtasks with no matching issue (titles compared case-insensitively
after trimming whitespace). Missing subtasks are drafted into tickets
and created, each under a milestone named after its phase.

With --dry-run the drafts are built locally and reported without any
write to GitHub. --max-new-tickets caps how many issues a single run
may create; the rest are reported as skipped.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncConfigPath, "config", "", "Config file (default: XDG config plus .ticketsmith.yaml)")
	syncCmd.Flags().StringVar(&syncPlanPath, "plan", "", "Plan file (overrides paths.plan)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report what would be created without writing")
	syncCmd.Flags().BoolVar(&syncIncludeClosed, "include-closed", false, "Count closed issues as matches")
	syncCmd.Flags().IntVar(&syncMaxNewTickets, "max-new-tickets", 0, "Cap on issues created this run (overrides bot.max_new_tickets)")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(syncConfigPath)
	if err != nil {
		return err
	}

	if syncPlanPath != "" {
		cfg.Paths.Plan = syncPlanPath
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Bot.DryRun = syncDryRun
	}
	if cmd.Flags().Changed("include-closed") {
		cfg.Bot.IncludeClosedIssues = syncIncludeClosed
	}
	if cmd.Flags().Changed("max-new-tickets") {
		cfg.Bot.MaxNewTickets = syncMaxNewTickets
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg.Paths.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()[:8]
	log.Printf("[sync] run %s starting (repo=%s dry_run=%t)", runID, cfg.GitHub.Repository, cfg.Bot.DryRun)

	p, err := plan.Load(cfg.Paths.Plan)
	if err != nil {
		return fmt.Errorf("loading plan: %w", err)
	}
	printPlanSummary(p.Summary())

	gh, err := tracker.NewClient(tracker.ClientConfig{
		Token:      cfg.GitHub.Token,
		Repository: cfg.GitHub.Repository,
		BaseURL:    cfg.GitHub.BaseURL,
	})
	if err != nil {
		return err
	}

	existing, err := gh.ListIssues(ctx, tracker.StateAll)
	if err != nil {
		return fmt.Errorf("listing issues: %w", err)
	}
	log.Printf("[sync] %d existing issues in %s", len(existing), cfg.GitHub.Repository)

	missing := reconcile.Missing(p, existing, cfg.Bot.IncludeClosedIssues)
	if len(missing) == 0 {
		fmt.Println(color.GreenString("✓") + " All plan subtasks already have tickets. Nothing to do.")
		return nil
	}
	fmt.Printf("%d of %d subtasks have no matching issue:\n", len(missing), p.Summary().Subtasks)
	for _, st := range missing {
		fmt.Printf("  - %s\n", st.Name)
	}

	policy := retryPolicy(cfg)

	var drafts []draft.Draft
	if cfg.Bot.DryRun {
		drafts = draft.FromSubtasks(missing)
	} else {
		model, err := draft.NewClient(draft.ClientConfig{
			APIKey:        cfg.Anthropic.APIKey,
			Model:         cfg.Anthropic.Model,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			return err
		}

		drafter := draft.NewDrafter(model, policy)
		drafts, err = drafter.Draft(ctx, missing, existing)
		if err != nil {
			return err
		}

		in, out := model.Tracker().Total()
		log.Printf("[sync] model usage: %d calls, %d input tokens, %d output tokens", model.Tracker().Calls(), in, out)
	}

	omitted := draft.Omitted(missing, drafts)
	for _, st := range omitted {
		log.Printf("[sync] no draft produced for %q", st.Name)
	}

	publisher := publish.New(gh, policy)
	results, err := publisher.Publish(ctx, drafts, publish.Policy{
		DryRun:        cfg.Bot.DryRun,
		MaxNewTickets: cfg.Bot.MaxNewTickets,
	})
	if err != nil {
		return err
	}

	// Every unmatched subtask gets an outcome line, drafted or not.
	for _, st := range omitted {
		results = append(results, publish.Result{
			Draft:   draft.Draft{Title: st.Name},
			Outcome: publish.OutcomeSkipped,
			Reason:  publish.ReasonNoDraft,
		})
	}

	renderReport(os.Stdout, results)

	counts := publish.Tally(results)
	log.Printf("[sync] run %s done: %d created, %d skipped, %d failed", runID, counts.Created, counts.Skipped, counts.Failed)
	if counts.Failed > 0 {
		return fmt.Errorf("%d ticket(s) failed to create", counts.Failed)
	}
	return nil
}

// loadConfig loads from an explicit path when given, otherwise the
// XDG/project search.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// retryPolicy builds the shared backoff policy from config.
func retryPolicy(cfg *config.Config) retry.Policy {
	p := retry.Default()
	if cfg.Retry.MaxAttempts > 0 {
		p.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay > 0 {
		p.BaseDelay = cfg.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay > 0 {
		p.MaxDelay = cfg.Retry.MaxDelay
	}
	return p
}

// setupLogging tees the standard logger to a file when one is configured.
// Returns a close function for the file.
func setupLogging(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func printPlanSummary(s plan.Summary) {
	bold := color.New(color.Bold)
	bold.Printf("Plan: %s\n", s.Project)
	fmt.Printf("  %d phases, %d tasks, %d subtasks, %d story points\n", s.Phases, s.Tasks, s.Subtasks, s.TotalPoints)
	if len(s.Labels) > 0 {
		fmt.Printf("  labels: %s\n", strings.Join(s.Labels, ", "))
	}
}
