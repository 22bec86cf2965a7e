package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-reviser/internal/wire"
)

var (
	feedbackOverride string
	installationID   int64
)

var reviseCmd = &cobra.Command{
	Use:   "revise [pr-url]",
	Short: "Revise a pull request from its latest review",
	Long: `Revise a pull request from its latest review.

The command reads the newest review with feedback text, syncs the shared
working copy to the pull request branch, asks the model for updated files
and force-pushes a commit when anything changed.

Examples:
  reviser-cli revise https://github.com/owner/repo/pull/123
  reviser-cli revise --feedback "Rename getUser to fetchUser" https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runRevise,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviseCmd.Flags().StringVarP(&feedbackOverride, "feedback", "f", "", "Use this text instead of the latest review")
	reviseCmd.Flags().Int64Var(&installationID, "installation-id", 0, "GitHub App installation ID (App mode only)")
	rootCmd.AddCommand(reviseCmd)
}

func runRevise(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	prURL := args[0]
	start := time.Now()

	titleColor.Println("Code Reviser - PR revision")
	dimColor.Printf("   Target: %s\n\n", prURL)

	runner, cleanup, err := wire.InitializeRunner(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w\n\nTip: Check that your config.yaml exists and is valid", err)
	}
	defer cleanup()

	event, err := runner.EventForPullRequest(ctx, prURL, installationID, feedbackOverride)
	if err != nil {
		return fmt.Errorf("failed to prepare revision: %w", err)
	}
	boldColor.Printf("PR #%d on %s\n", event.PRNumber, event.Branch)
	if event.Reviewer != "" {
		dimColor.Printf("   Feedback from %s\n", event.Reviewer)
	}

	result, err := runner.Job.Run(ctx, event)
	if err != nil {
		errorColor.Println("Revision failed")
		return err
	}

	fmt.Println()
	if !result.Pushed {
		warnColor.Println("No changes were needed, nothing was pushed.")
	} else {
		successColor.Printf("Pushed %s to %s\n", shortSHA(result.CommitSHA), result.Branch)
		for _, path := range result.Applied {
			fmt.Printf("   - %s\n", path)
		}
	}
	if result.Skipped > 0 {
		warnColor.Printf("%d malformed file block(s) ignored\n", result.Skipped)
	}
	if result.Rejected > 0 {
		warnColor.Printf("%d file block(s) outside the repository rejected\n", result.Rejected)
	}
	dimColor.Printf("\nTotal time: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
