package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/code-reviser/internal/config"
)

// ErrNoInstallation is returned in App mode when an event carries no installation ID.
var ErrNoInstallation = errors.New("event has no GitHub App installation")

// Credentials pairs an API client with the raw token used for git pushes.
// The token must never be logged or persisted.
type Credentials struct {
	Client Client
	Token  string
}

// CredentialProvider resolves credentials for a repository installation.
//
//go:generate mockgen -destination=../../mocks/mock_credential_provider.go -package=mocks . CredentialProvider
type CredentialProvider interface {
	Credentials(ctx context.Context, installationID int64) (*Credentials, error)
}

// NewCredentialProvider returns a static provider when a token is configured,
// otherwise one that mints GitHub App installation tokens.
func NewCredentialProvider(cfg *config.Config, logger *slog.Logger) CredentialProvider {
	if cfg.GitHub.Token != "" {
		return &staticProvider{token: cfg.GitHub.Token, logger: logger}
	}
	return &appProvider{cfg: cfg, logger: logger}
}

type staticProvider struct {
	token  string
	logger *slog.Logger
}

func (p *staticProvider) Credentials(ctx context.Context, _ int64) (*Credentials, error) {
	return &Credentials{Client: NewPATClient(ctx, p.token, p.logger), Token: p.token}, nil
}

type appProvider struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (p *appProvider) Credentials(ctx context.Context, installationID int64) (*Credentials, error) {
	if installationID == 0 {
		return nil, ErrNoInstallation
	}
	client, token, err := CreateInstallationClient(ctx, p.cfg, installationID, p.logger)
	if err != nil {
		return nil, err
	}
	return &Credentials{Client: client, Token: token}, nil
}

// CreateInstallationClient creates a GitHub client that is authenticated as a specific application installation.
// It returns the client together with the raw installation token.
func CreateInstallationClient(ctx context.Context, cfg *config.Config, installationID int64, logger *slog.Logger) (Client, string, error) {
	logger.Info("creating GitHub installation client", "installation_id", installationID)

	privateKey, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read private key from %s: %w", cfg.GitHub.PrivateKeyPath, err)
	}

	// The apps transport signs JWTs for the App API, which mints installation tokens.
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.GitHub.AppID, privateKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create installation token for installation ID %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return nil, "", fmt.Errorf("received an empty installation token")
	}
	logger.Info("created installation token", "installation_id", installationID, "expires_at", token.GetExpiresAt())

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	tc := oauth2.NewClient(ctx, ts)
	installationClient := github.NewClient(tc)

	return NewGitHubClient(installationClient, logger), token.GetToken(), nil
}
