package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var githubToken string

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "reviser-cli",
	Short: "reviser-cli is the command-line interface for Code Reviser.",
	Long: `A CLI for Code Reviser: revise a pull request from its review feedback,
dry-run the model response parser and inspect recorded revision runs.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Configuration is read from REVISER_* variables, so the flag is forwarded there.
		if githubToken != "" {
			_ = os.Setenv("REVISER_GITHUB_TOKEN", githubToken)
		}
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token used for the API and for pushing")
}
