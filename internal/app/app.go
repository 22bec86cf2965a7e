// Package app holds the long-running webhook service and the one-shot runner
// used by the CLI. Both are assembled by the wire package.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/code-reviser/internal/config"
	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/internal/github"
	"github.com/sevigo/code-reviser/internal/gitutil"
	"github.com/sevigo/code-reviser/internal/jobs"
	"github.com/sevigo/code-reviser/internal/server"
	"github.com/sevigo/code-reviser/internal/storage"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewApp sets up the application with all its dependencies.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher core.JobDispatcher, logger *slog.Logger) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting code reviser",
		"server_port", a.cfg.Server.Port,
		"workspace", a.cfg.Workspace.Path,
		"llm_provider", a.cfg.AI.LLMProvider,
		"generator_model", a.cfg.AI.GeneratorModel,
		"max_workers", a.cfg.MaxWorkers,
		"history", a.cfg.Database.Enabled(),
	)
	if a.cfg.GitHub.WebhookSecret == "" {
		a.logger.Warn("github.webhook_secret is empty, webhook signatures are not verified")
	}

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down code reviser")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	// Queued and in-flight revisions are allowed to finish.
	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("code reviser stopped")
	return nil
}

// Runner revises a single pull request synchronously, outside the webhook flow.
type Runner struct {
	Config *config.Config
	Job    *jobs.RevisionJob
	Creds  github.CredentialProvider
	Store  storage.Store
	Logger *slog.Logger
}

// NewRunner bundles what the CLI needs.
func NewRunner(cfg *config.Config, job *jobs.RevisionJob, creds github.CredentialProvider, store storage.Store, logger *slog.Logger) *Runner {
	return &Runner{Config: cfg, Job: job, Creds: creds, Store: store, Logger: logger}
}

// EventForPullRequest builds a review event for prURL from the pull request
// and its newest non-empty review. feedback overrides the review text when set.
func (r *Runner) EventForPullRequest(ctx context.Context, prURL string, installationID int64, feedback string) (*core.ReviewEvent, error) {
	owner, repo, number, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		return nil, err
	}
	creds, err := r.Creds.Credentials(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve GitHub credentials: %w", err)
	}

	pr, err := creds.Client.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request: %w", err)
	}

	reviewer := ""
	state := ""
	if feedback == "" {
		reviews, err := creds.Client.ListReviews(ctx, owner, repo, number)
		if err != nil {
			return nil, fmt.Errorf("failed to list reviews: %w", err)
		}
		latest := github.LatestReview(reviews)
		if latest == nil {
			return nil, fmt.Errorf("pull request %s/%s#%d has no review feedback", owner, repo, number)
		}
		feedback = latest.GetBody()
		reviewer = latest.GetUser().GetLogin()
		state = latest.GetState()
	}

	return core.EventFromPullRequest(pr, feedback, reviewer, state, installationID)
}
