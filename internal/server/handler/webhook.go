// Package handler provides HTTP handlers for the code reviser service.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/code-reviser/internal/config"
	"github.com/sevigo/code-reviser/internal/core"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	filter     core.EventFilter
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and dispatcher.
func NewWebhookHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		filter: core.EventFilter{
			BotLogin:      cfg.GitHub.BotLogin,
			TriggerStates: cfg.GitHub.TriggerStates,
		},
		logger: logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "type", eventType, "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PullRequestReviewEvent:
		h.handlePullRequestReview(r.Context(), w, e)
	case *github.PingEvent:
		h.logger.Info("received webhook ping", "hook_id", e.GetHookID())
		_, _ = fmt.Fprint(w, "pong")
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

// handlePullRequestReview turns a submitted review into a queued revision job.
func (h *WebhookHandler) handlePullRequestReview(ctx context.Context, w http.ResponseWriter, event *github.PullRequestReviewEvent) {
	reviewEvent, err := core.EventFromPullRequestReview(event, h.filter)
	if err != nil {
		h.logger.Debug("ignoring pull request review", "reason", err.Error(), "repo", event.GetRepo().GetFullName())
		_, _ = fmt.Fprint(w, "Review ignored")
		return
	}

	if err := h.dispatcher.Dispatch(ctx, reviewEvent); err != nil {
		h.logger.Error("failed to dispatch revision job", "error", err, "repo", reviewEvent.RepoFullName)
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Failed to start revision job", status)
		return
	}

	h.logger.Info("revision job dispatched",
		"repo", reviewEvent.RepoFullName,
		"pr", reviewEvent.PRNumber,
		"branch", reviewEvent.Branch,
		"reviewer", reviewEvent.Reviewer,
	)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Revision job accepted")
}
