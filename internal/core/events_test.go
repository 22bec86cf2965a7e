package core

import (
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewEvent() *github.PullRequestReviewEvent {
	return &github.PullRequestReviewEvent{
		Action: github.Ptr("submitted"),
		Review: &github.PullRequestReview{
			Body:  github.Ptr("Rename getUser to fetchUser"),
			State: github.Ptr("CHANGES_REQUESTED"),
			User:  &github.User{Login: github.Ptr("alice")},
		},
		PullRequest: &github.PullRequest{
			Number:  github.Ptr(42),
			DiffURL: github.Ptr("https://github.com/acme/app/pull/42.diff"),
			Head: &github.PullRequestBranch{
				Ref: github.Ptr("feature/users"),
				SHA: github.Ptr("abc123"),
			},
		},
		Repo: &github.Repository{
			Name:     github.Ptr("app"),
			FullName: github.Ptr("acme/app"),
			CloneURL: github.Ptr("https://github.com/acme/app.git"),
			Owner:    &github.User{Login: github.Ptr("acme")},
		},
		Installation: &github.Installation{ID: github.Ptr(int64(7))},
	}
}

func TestEventFromPullRequestReview(t *testing.T) {
	filter := EventFilter{BotLogin: "reviser[bot]", TriggerStates: []string{"changes_requested", "commented"}}

	t.Run("valid event", func(t *testing.T) {
		ev, err := EventFromPullRequestReview(newReviewEvent(), filter)
		require.NoError(t, err)
		assert.Equal(t, "Rename getUser to fetchUser", ev.ReviewBody)
		assert.Equal(t, "feature/users", ev.Branch)
		assert.Equal(t, "https://github.com/acme/app/pull/42.diff", ev.DiffURL)
		assert.Equal(t, "https://github.com/acme/app.git", ev.CloneURL)
		assert.Equal(t, "acme/app", ev.RepoFullName)
		assert.Equal(t, 42, ev.PRNumber)
		assert.Equal(t, "changes_requested", ev.ReviewState)
		assert.Equal(t, int64(7), ev.InstallationID)
	})

	tests := []struct {
		name   string
		mutate func(e *github.PullRequestReviewEvent)
	}{
		{"edited action", func(e *github.PullRequestReviewEvent) { e.Action = github.Ptr("edited") }},
		{"empty body", func(e *github.PullRequestReviewEvent) { e.Review.Body = github.Ptr("   ") }},
		{"bot author", func(e *github.PullRequestReviewEvent) { e.Review.User.Login = github.Ptr("Reviser[bot]") }},
		{"approved state", func(e *github.PullRequestReviewEvent) { e.Review.State = github.Ptr("approved") }},
		{"missing head ref", func(e *github.PullRequestReviewEvent) { e.PullRequest.Head.Ref = nil }},
		{"missing diff url", func(e *github.PullRequestReviewEvent) { e.PullRequest.DiffURL = nil }},
		{"missing clone url", func(e *github.PullRequestReviewEvent) { e.Repo.CloneURL = nil }},
		{"missing pull request", func(e *github.PullRequestReviewEvent) { e.PullRequest = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newReviewEvent()
			tt.mutate(e)
			_, err := EventFromPullRequestReview(e, filter)
			assert.Error(t, err)
		})
	}

	t.Run("no trigger states accepts approved", func(t *testing.T) {
		e := newReviewEvent()
		e.Review.State = github.Ptr("approved")
		ev, err := EventFromPullRequestReview(e, EventFilter{})
		require.NoError(t, err)
		assert.Equal(t, "approved", ev.ReviewState)
	})
}

func TestEventFromPullRequest(t *testing.T) {
	base := &github.Repository{
		Name:     github.Ptr("app"),
		FullName: github.Ptr("acme/app"),
		CloneURL: github.Ptr("https://github.com/acme/app.git"),
		Owner:    &github.User{Login: github.Ptr("acme")},
	}
	newPR := func() *github.PullRequest {
		return &github.PullRequest{
			Number:  github.Ptr(42),
			DiffURL: github.Ptr("https://github.com/acme/app/pull/42.diff"),
			Head:    &github.PullRequestBranch{Ref: github.Ptr("feature/users"), SHA: github.Ptr("abc123")},
			Base:    &github.PullRequestBranch{Ref: github.Ptr("main"), Repo: base},
		}
	}

	t.Run("uses base repository when head has none", func(t *testing.T) {
		ev, err := EventFromPullRequest(newPR(), "Rename getUser", "alice", "COMMENTED", 0)
		require.NoError(t, err)
		assert.Equal(t, "acme/app", ev.RepoFullName)
		assert.Equal(t, "https://github.com/acme/app.git", ev.CloneURL)
		assert.Equal(t, "feature/users", ev.Branch)
		assert.Equal(t, "commented", ev.ReviewState)
		assert.Equal(t, "Rename getUser", ev.ReviewBody)
	})

	t.Run("prefers head repository for forks", func(t *testing.T) {
		pr := newPR()
		pr.Head.Repo = &github.Repository{
			Name:     github.Ptr("app"),
			FullName: github.Ptr("bob/app"),
			CloneURL: github.Ptr("https://github.com/bob/app.git"),
			Owner:    &github.User{Login: github.Ptr("bob")},
		}
		ev, err := EventFromPullRequest(pr, "fix it", "", "", 0)
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/bob/app.git", ev.CloneURL)
		assert.Equal(t, "acme/app", ev.RepoFullName)
	})

	t.Run("requires feedback", func(t *testing.T) {
		_, err := EventFromPullRequest(newPR(), "  ", "alice", "", 0)
		assert.Error(t, err)
	})

	t.Run("requires head ref", func(t *testing.T) {
		pr := newPR()
		pr.Head.Ref = nil
		_, err := EventFromPullRequest(pr, "fix it", "", "", 0)
		assert.Error(t, err)
	})
}
