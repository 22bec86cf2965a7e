package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-reviser/internal/diff"
	"github.com/sevigo/code-reviser/internal/llm"
	"github.com/sevigo/code-reviser/internal/workspace"
)

var previewRoot string

var parseCmd = &cobra.Command{
	Use:   "parse [response-file]",
	Short: "Dry-run the file block parser on a saved model response",
	Long: `Dry-run the file block parser on a saved model response.

Lists every file block found in the response. With --root, each block is
compared against the file currently on disk and a line diff is printed.
Nothing is written.

Examples:
  reviser-cli parse response.txt
  reviser-cli parse --root ./checkout response.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	parseCmd.Flags().StringVar(&previewRoot, "root", "", "Working copy to compare the blocks against")
	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	result := llm.ParseFileBlocks(string(data))
	titleColor.Printf("%d file block(s) found\n", len(result.Blocks))
	if result.Skipped > 0 {
		warnColor.Printf("%d malformed block(s) skipped\n", result.Skipped)
	}

	for _, block := range result.Blocks {
		fmt.Println()
		if previewRoot == "" {
			boldColor.Printf("%s ", block.Path)
			dimColor.Printf("(%d bytes)\n", len(block.Content))
			continue
		}
		if err := previewBlock(previewRoot, block.Path, block.Content); err != nil {
			return err
		}
	}
	return nil
}

func previewBlock(root, path, content string) error {
	target, err := workspace.ResolvePath(root, path)
	if err != nil {
		errorColor.Printf("%s: rejected (%v)\n", path, err)
		return nil
	}

	before := ""
	existing, err := os.ReadFile(target)
	switch {
	case err == nil:
		before = string(existing)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines := diff.Preview(before, content)
	added, removed := diff.CountChanges(lines)
	boldColor.Printf("%s ", path)
	dimColor.Printf("(+%d -%d)\n", added, removed)
	if added == 0 && removed == 0 {
		dimColor.Println("   unchanged")
		return nil
	}
	for _, line := range lines {
		switch line.Op {
		case diff.LineAdded:
			successColor.Printf("+%s\n", line.Text)
		case diff.LineRemoved:
			errorColor.Printf("-%s\n", line.Text)
		}
	}
	return nil
}
