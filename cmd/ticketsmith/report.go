package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ticketsmith/internal/publish"
)

// renderReport prints one line per draft outcome plus a totals line.
func renderReport(w io.Writer, results []publish.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, r := range results {
		switch r.Outcome {
		case publish.OutcomeCreated:
			fmt.Fprintf(w, "%s created #%d  %s\n", green("✓"), r.IssueNumber, r.Draft.Title)
		case publish.OutcomeSkipped:
			fmt.Fprintf(w, "%s skipped (%s)  %s\n", yellow("-"), r.Reason, r.Draft.Title)
		case publish.OutcomeFailed:
			fmt.Fprintf(w, "%s failed  %s: %v\n", red("✗"), r.Draft.Title, r.Err)
		}
	}

	c := publish.Tally(results)
	fmt.Fprintf(w, "\n%d created, %d skipped, %d failed\n", c.Created, c.Skipped, c.Failed)
}
