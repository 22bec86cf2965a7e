package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("cli failed to run", "error", err)
		os.Exit(1)
	}
}
