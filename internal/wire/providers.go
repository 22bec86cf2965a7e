// Package wire assembles the application graph with google/wire.
package wire

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/code-reviser/internal/app"
	"github.com/sevigo/code-reviser/internal/config"
	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/internal/db"
	"github.com/sevigo/code-reviser/internal/diff"
	"github.com/sevigo/code-reviser/internal/github"
	"github.com/sevigo/code-reviser/internal/gitutil"
	"github.com/sevigo/code-reviser/internal/ingest"
	"github.com/sevigo/code-reviser/internal/jobs"
	"github.com/sevigo/code-reviser/internal/llm"
	"github.com/sevigo/code-reviser/internal/logger"
	"github.com/sevigo/code-reviser/internal/server"
	"github.com/sevigo/code-reviser/internal/storage"
	"github.com/sevigo/code-reviser/internal/workspace"
)

// RevisionSet provides everything needed to run a revision job.
var RevisionSet = wire.NewSet(
	config.LoadConfig,
	provideSlogLogger,
	provideStore,
	provideGenerator,
	provideDiffFetcher,
	provideSnapshotter,
	gitutil.NewClient,
	github.NewCredentialProvider,
	llm.NewPromptManager,
	workspace.NewApplier,
	jobs.NewRevisionJob,
)

// AppSet adds the webhook server on top of RevisionSet.
var AppSet = wire.NewSet(
	RevisionSet,
	wire.Bind(new(core.Job), new(*jobs.RevisionJob)),
	provideDispatcher,
	server.NewServer,
	app.NewApp,
)

func provideSlogLogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(cfg.Logging, nil)
}

// provideStore persists runs in Postgres when a database host is configured
// and discards them otherwise.
func provideStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Info("no database configured, revision history is not recorded")
		return storage.NewNopStore(), func() {}, nil
	}
	conn, cleanup, err := db.NewDatabase(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(conn.DB), cleanup, nil
}

func provideGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Generator, error) {
	logger.Info("connecting to generator LLM", "provider", cfg.AI.LLMProvider, "model", cfg.AI.GeneratorModel)
	model, err := llm.NewGeneratorLLM(ctx, cfg.AI, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewModelGenerator(model, cfg.AI.GenerationTimeout, logger), nil
}

func provideDiffFetcher(logger *slog.Logger) diff.Fetcher {
	return diff.NewHTTPFetcher(logger)
}

func provideSnapshotter(cfg *config.Config, logger *slog.Logger) *ingest.Snapshotter {
	return ingest.NewSnapshotter(logger, cfg.Workspace.MaxSnapshotBytes)
}

func provideDispatcher(job core.Job, cfg *config.Config, logger *slog.Logger) core.JobDispatcher {
	return jobs.NewDispatcher(job, cfg.MaxWorkers, logger)
}
