package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/code-reviser/internal/config"
	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/mocks"
)

const testSecret = "s3cret"

const reviewPayload = `{
  "action": "submitted",
  "review": {
    "id": 1,
    "body": "Please rename getUser to fetchUser.",
    "state": "changes_requested",
    "user": {"login": "alice"}
  },
  "pull_request": {
    "number": 7,
    "diff_url": "https://github.com/acme/app/pull/7.diff",
    "head": {"ref": "feature-x", "sha": "abc123"}
  },
  "repository": {
    "name": "app",
    "full_name": "acme/app",
    "clone_url": "https://github.com/acme/app.git",
    "owner": {"login": "acme"}
  },
  "installation": {"id": 42}
}`

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newRequest(eventType, body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	return req
}

func newHandler(t *testing.T) (*WebhookHandler, *mocks.MockJobDispatcher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockJobDispatcher(ctrl)
	cfg := &config.Config{GitHub: config.GitHubConfig{
		WebhookSecret: testSecret,
		BotLogin:      "reviser-bot",
		TriggerStates: []string{"changes_requested", "commented"},
	}}
	return NewWebhookHandler(cfg, dispatcher, slog.New(slog.DiscardHandler)), dispatcher
}

func TestWebhookHandler_DispatchesReview(t *testing.T) {
	h, dispatcher := newHandler(t)

	var got *core.ReviewEvent
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, event *core.ReviewEvent) error {
		got = event
		return nil
	})

	rec := httptest.NewRecorder()
	h.Handle(rec, newRequest("pull_request_review", reviewPayload, sign(reviewPayload)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "acme/app", got.RepoFullName)
	assert.Equal(t, "feature-x", got.Branch)
	assert.Equal(t, "https://github.com/acme/app/pull/7.diff", got.DiffURL)
	assert.Equal(t, "Please rename getUser to fetchUser.", got.ReviewBody)
	assert.Equal(t, int64(42), got.InstallationID)
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Handle(rec, newRequest("pull_request_review", reviewPayload, "sha256=deadbeef"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Handle(rec, newRequest("pull_request_review", reviewPayload, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookHandler_IgnoresOtherEvents(t *testing.T) {
	h, _ := newHandler(t)

	body := `{"action":"opened","number":7}`
	rec := httptest.NewRecorder()
	h.Handle(rec, newRequest("pull_request", body, sign(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not handled")
}

func TestWebhookHandler_IgnoresFilteredReviews(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
	}{
		{name: "approved review", replace: [2]string{`"changes_requested"`, `"approved"`}},
		{name: "bot review", replace: [2]string{`"login": "alice"`, `"login": "reviser-bot"`}},
		{name: "edited review", replace: [2]string{`"submitted"`, `"edited"`}},
		{name: "empty body", replace: [2]string{`"Please rename getUser to fetchUser."`, `""`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t)
			body := strings.Replace(reviewPayload, tt.replace[0], tt.replace[1], 1)

			rec := httptest.NewRecorder()
			h.Handle(rec, newRequest("pull_request_review", body, sign(body)))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "Review ignored")
		})
	}
}

func TestWebhookHandler_QueueFull(t *testing.T) {
	h, dispatcher := newHandler(t)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("job queue is full"))

	rec := httptest.NewRecorder()
	h.Handle(rec, newRequest("pull_request_review", reviewPayload, sign(reviewPayload)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookHandler_MalformedPayload(t *testing.T) {
	h, _ := newHandler(t)

	body := `{"action":`
	rec := httptest.NewRecorder()
	h.Handle(rec, newRequest("pull_request_review", body, sign(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandler_Ping(t *testing.T) {
	h, _ := newHandler(t)

	body := `{"zen":"Keep it logically awesome.","hook_id":1}`
	rec := httptest.NewRecorder()
	h.Handle(rec, newRequest("ping", body, sign(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}
