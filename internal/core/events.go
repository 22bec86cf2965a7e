// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// ReviewEvent represents a simplified, internal view of a pull request review
// webhook event. It carries everything a revision run needs and is never
// mutated once built.
type ReviewEvent struct {
	// Repository details
	RepoOwner    string
	RepoName     string
	RepoFullName string
	CloneURL     string

	PRNumber int
	Branch   string
	HeadSHA  string
	DiffURL  string

	ReviewBody  string
	ReviewState string
	Reviewer    string

	InstallationID int64
}

// EventFilter decides which submitted reviews should trigger a revision.
type EventFilter struct {
	// BotLogin is the account the service pushes as. Reviews left by it are
	// ignored so the service never reacts to itself.
	BotLogin string
	// TriggerStates lists the review states that start a revision, e.g.
	// "changes_requested" or "commented". Empty means every state.
	TriggerStates []string
}

// EventFromPullRequestReview transforms a raw GitHub PullRequestReviewEvent into the
// application's internal ReviewEvent representation. It acts as an anti-corruption
// layer, ensuring that the incoming webhook payload contains the review text, the
// head branch, the diff location and the clone URL before it's handed to a job.
func EventFromPullRequestReview(event *github.PullRequestReviewEvent, filter EventFilter) (*ReviewEvent, error) {
	if event.GetAction() != "submitted" {
		return nil, fmt.Errorf("review action %q is not handled", event.GetAction())
	}

	review := event.GetReview()
	if review == nil {
		return nil, fmt.Errorf("review is missing from the event")
	}
	body := review.GetBody()
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("review has no feedback text")
	}

	reviewer := review.GetUser().GetLogin()
	if filter.BotLogin != "" && strings.EqualFold(reviewer, filter.BotLogin) {
		return nil, fmt.Errorf("review was left by the bot account %s", reviewer)
	}

	state := strings.ToLower(review.GetState())
	if !stateAllowed(state, filter.TriggerStates) {
		return nil, fmt.Errorf("review state %q does not trigger a revision", state)
	}

	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("pull request is missing from the event")
	}
	branch := pr.GetHead().GetRef()
	if branch == "" {
		return nil, fmt.Errorf("pull request head ref is missing from the event")
	}
	if pr.GetDiffURL() == "" {
		return nil, fmt.Errorf("pull request diff URL is missing from the event")
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetCloneURL() == "" {
		return nil, fmt.Errorf("repository clone URL is missing from the event")
	}

	return &ReviewEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		CloneURL:       repo.GetCloneURL(),
		PRNumber:       pr.GetNumber(),
		Branch:         branch,
		HeadSHA:        pr.GetHead().GetSHA(),
		DiffURL:        pr.GetDiffURL(),
		ReviewBody:     body,
		ReviewState:    state,
		Reviewer:       reviewer,
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

func stateAllowed(state string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, s := range allowed {
		if strings.EqualFold(strings.TrimSpace(s), state) {
			return true
		}
	}
	return false
}

// EventFromPullRequest builds a ReviewEvent for an explicitly requested
// revision, for example from the CLI, where no webhook payload exists.
func EventFromPullRequest(pr *github.PullRequest, feedback, reviewer, state string, installationID int64) (*ReviewEvent, error) {
	if pr == nil {
		return nil, fmt.Errorf("pull request is nil")
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("feedback is empty")
	}
	branch := pr.GetHead().GetRef()
	if branch == "" {
		return nil, fmt.Errorf("pull request head ref is missing")
	}
	repo := pr.GetBase().GetRepo()
	if repo == nil {
		return nil, fmt.Errorf("base repository is missing")
	}
	// The branch lives in the head repository, which differs from base for forks.
	cloneURL := pr.GetHead().GetRepo().GetCloneURL()
	if cloneURL == "" {
		cloneURL = repo.GetCloneURL()
	}
	if cloneURL == "" {
		return nil, fmt.Errorf("repository clone URL is missing")
	}
	if pr.GetDiffURL() == "" {
		return nil, fmt.Errorf("pull request diff URL is missing")
	}

	return &ReviewEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		CloneURL:       cloneURL,
		PRNumber:       pr.GetNumber(),
		Branch:         branch,
		HeadSHA:        pr.GetHead().GetSHA(),
		DiffURL:        pr.GetDiffURL(),
		ReviewBody:     feedback,
		ReviewState:    strings.ToLower(state),
		Reviewer:       reviewer,
		InstallationID: installationID,
	}, nil
}
