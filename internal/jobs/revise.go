// Package jobs defines background tasks such as revising a pull request from review feedback.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/code-reviser/internal/config"
	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/internal/diff"
	"github.com/sevigo/code-reviser/internal/github"
	"github.com/sevigo/code-reviser/internal/gitutil"
	"github.com/sevigo/code-reviser/internal/ingest"
	"github.com/sevigo/code-reviser/internal/llm"
	"github.com/sevigo/code-reviser/internal/storage"
	"github.com/sevigo/code-reviser/internal/workspace"
)

var _ core.Job = (*RevisionJob)(nil)

// RevisionJob turns a submitted review into a force-pushed commit on the pull
// request branch. Either a new commit is pushed or nothing is published.
type RevisionJob struct {
	cfg         *config.Config
	git         *gitutil.Client
	creds       github.CredentialProvider
	fetcher     diff.Fetcher
	snapshotter *ingest.Snapshotter
	prompts     *llm.PromptManager
	generator   llm.Generator
	applier     *workspace.Applier
	store       storage.Store
	logger      *slog.Logger
}

// NewRevisionJob wires a RevisionJob. Every dependency is required.
func NewRevisionJob(
	cfg *config.Config,
	git *gitutil.Client,
	creds github.CredentialProvider,
	fetcher diff.Fetcher,
	snapshotter *ingest.Snapshotter,
	prompts *llm.PromptManager,
	generator llm.Generator,
	applier *workspace.Applier,
	store storage.Store,
	logger *slog.Logger,
) *RevisionJob {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &RevisionJob{
		cfg:         cfg,
		git:         git,
		creds:       creds,
		fetcher:     fetcher,
		snapshotter: snapshotter,
		prompts:     prompts,
		generator:   generator,
		applier:     applier,
		store:       store,
		logger:      logger,
	}
}

// Run executes the revision for event while holding the working-copy lock.
// The outcome is recorded in the run store whether or not it succeeded.
func (j *RevisionJob) Run(ctx context.Context, event *core.ReviewEvent) (*core.RevisionResult, error) {
	if err := validateEvent(event); err != nil {
		return nil, fmt.Errorf("invalid review event: %w", err)
	}
	logger := j.logger.With("repo", event.RepoFullName, "pr", event.PRNumber, "branch", event.Branch)
	logger.Info("starting revision job", "reviewer", event.Reviewer, "state", event.ReviewState)

	var result *core.RevisionResult
	root := j.cfg.Workspace.Path
	err := workspace.WithLock(ctx, root, j.cfg.Workspace.LockTimeout, func() error {
		var runErr error
		result, runErr = j.revise(ctx, logger, event)
		return runErr
	})

	j.record(ctx, logger, event, result, err)
	if err != nil {
		logger.Error("revision job failed", "error", err)
		return result, err
	}
	logger.Info("revision job finished", "pushed", result.Pushed, "commit", result.CommitSHA, "files", len(result.Applied))
	return result, nil
}

func (j *RevisionJob) revise(ctx context.Context, logger *slog.Logger, event *core.ReviewEvent) (*core.RevisionResult, error) {
	root := j.cfg.Workspace.Path
	result := &core.RevisionResult{Branch: event.Branch}

	creds, err := j.creds.Credentials(ctx, event.InstallationID)
	if err != nil {
		return result, fmt.Errorf("failed to resolve GitHub credentials: %w", err)
	}

	logger.Info("syncing working copy", "path", root)
	if err := j.git.EnsureClone(ctx, event.CloneURL, root, creds.Token); err != nil {
		return result, fmt.Errorf("failed to prepare working copy: %w", err)
	}
	baseSHA, err := j.git.SyncBranch(ctx, root, event.Branch, creds.Token)
	if err != nil {
		return result, fmt.Errorf("failed to sync branch %s: %w", event.Branch, err)
	}
	result.BaseSHA = baseSHA

	logger.Info("fetching pull request diff", "url", event.DiffURL)
	rawDiff, err := j.fetcher.Fetch(ctx, event.DiffURL)
	if err != nil {
		return result, fmt.Errorf("failed to fetch diff: %w", err)
	}
	summary := diff.Summarize(rawDiff)
	diffText, truncated := diff.Truncate(rawDiff, j.cfg.Workspace.MaxDiffBytes)
	if truncated {
		logger.Warn("diff exceeds budget and was truncated", "bytes", len(rawDiff), "max_bytes", j.cfg.Workspace.MaxDiffBytes)
	}

	repoCfg, err := config.LoadRepoConfig(root)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		logger.Warn("ignoring invalid repository config", "file", config.RepoConfigFile, "error", err)
		repoCfg = core.DefaultRepoConfig()
	}

	logger.Info("building source snapshot")
	snap, err := j.snapshotter.Snapshot(ctx, root, repoCfg)
	if err != nil {
		return result, fmt.Errorf("failed to build source snapshot: %w", err)
	}
	if len(snap.Omitted) > 0 {
		logger.Warn("snapshot exceeds budget", "included", len(snap.Files), "omitted", len(snap.Omitted))
	}

	logger.Info("rendering prompt", "files", len(snap.Files), "changed_files", len(summary.Files))
	prompt, err := j.prompts.Render(llm.RevisionPrompt, llm.DefaultProvider, llm.RevisionPromptData{
		Feedback:           event.ReviewBody,
		Reviewer:           event.Reviewer,
		Diff:               diffText,
		DiffSummary:        summary.String(),
		Structure:          ingest.ProjectStructure(snap.Files),
		Snapshot:           snap.Text,
		CustomInstructions: repoCfg.CustomInstructions,
	})
	if err != nil {
		return result, fmt.Errorf("failed to render prompt: %w", err)
	}

	logger.Info("calling model", "prompt_bytes", len(prompt))
	response, err := j.generator.Generate(ctx, prompt)
	if err != nil {
		return result, fmt.Errorf("failed to generate revision: %w", err)
	}

	logger.Info("parsing model response", "response_bytes", len(response))
	parsed := llm.ParseFileBlocks(response)
	result.Skipped = parsed.Skipped
	if parsed.Skipped > 0 {
		logger.Warn("ignored malformed file blocks", "count", parsed.Skipped)
	}

	logger.Info("applying file blocks", "blocks", len(parsed.Blocks))
	applied, err := j.applier.Apply(root, parsed.Blocks)
	if applied != nil {
		result.Applied = applied.Applied
		result.Rejected = len(applied.Rejected)
	}
	if err != nil {
		return result, fmt.Errorf("failed to apply changes: %w", err)
	}

	logger.Info("checking working copy for changes")
	dirty, err := j.git.IsDirty(root)
	if err != nil {
		return result, fmt.Errorf("failed to read working copy status: %w", err)
	}
	if !dirty {
		logger.Info("model proposed no effective changes, nothing to push")
		return result, nil
	}

	logger.Info("committing changes", "message", core.CommitMessage)
	author := gitutil.Author{Name: j.cfg.Workspace.AuthorName, Email: j.cfg.Workspace.AuthorEmail}
	commitSHA, err := j.git.CommitAll(ctx, root, core.CommitMessage, author)
	if errors.Is(err, gitutil.ErrNothingToCommit) {
		logger.Info("nothing to commit after staging")
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to commit changes: %w", err)
	}
	result.CommitSHA = commitSHA

	logger.Info("force pushing branch", "commit", commitSHA)
	if err := j.git.ForcePush(ctx, root, event.Branch, event.CloneURL, creds.Token); err != nil {
		return result, fmt.Errorf("failed to push changes: %w", err)
	}
	result.Pushed = true

	if j.cfg.GitHub.PostComment {
		j.postComment(ctx, logger, creds.Client, event, result)
	}
	return result, nil
}

// postComment reports a pushed revision on the pull request. Failures are
// logged only; the push already happened.
func (j *RevisionJob) postComment(ctx context.Context, logger *slog.Logger, client github.Client, event *core.ReviewEvent, result *core.RevisionResult) {
	body, err := j.prompts.Render(llm.PushCommentPrompt, llm.DefaultProvider, llm.PushCommentData{
		Reviewer:  event.Reviewer,
		CommitSHA: result.CommitSHA,
		Applied:   result.Applied,
		Skipped:   result.Skipped,
		Rejected:  result.Rejected,
	})
	if err != nil {
		logger.Warn("failed to render push comment", "error", err)
		return
	}
	if err := client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body); err != nil {
		logger.Warn("failed to post push comment", "error", err)
	}
}

func (j *RevisionJob) record(ctx context.Context, logger *slog.Logger, event *core.ReviewEvent, result *core.RevisionResult, runErr error) {
	run := &core.RevisionRun{
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		Branch:       event.Branch,
		Status:       core.RunStatusNoChanges,
	}
	if result != nil {
		run.BaseSHA = result.BaseSHA
		run.CommitSHA = result.CommitSHA
		run.FilesApplied = len(result.Applied)
		run.BlocksSkipped = result.Skipped
		if result.Pushed {
			run.Status = core.RunStatusPushed
		}
	}
	if runErr != nil {
		run.Status = core.RunStatusFailed
		run.Error = runErr.Error()
	}

	// A canceled job context must not prevent the run from being recorded.
	if err := j.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record revision run", "error", err)
	}
}

func validateEvent(event *core.ReviewEvent) error {
	switch {
	case event == nil:
		return errors.New("event is nil")
	case event.CloneURL == "":
		return errors.New("clone URL is empty")
	case event.Branch == "":
		return errors.New("branch is empty")
	case event.DiffURL == "":
		return errors.New("diff URL is empty")
	}
	return nil
}
