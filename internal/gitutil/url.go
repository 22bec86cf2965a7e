package gitutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// pushUser is the user name GitHub expects alongside an installation or
// personal access token.
const pushUser = "x-access-token"

var prURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)

// ParsePullRequestURL parses a GitHub Pull Request URL and extracts the owner, repo, and PR number.
// Supported format: https://github.com/{owner}/{repo}/pull/{number}
func ParsePullRequestURL(url string) (owner, repo string, prNumber int, err error) {
	url = strings.TrimSuffix(url, "/")

	matches := prURLRegex.FindStringSubmatch(url)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid pull request URL format: %s", url)
	}

	owner = matches[1]
	repo = matches[2]
	prNumberStr := matches[3]

	prNumber, err = strconv.Atoi(prNumberStr)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid PR number '%s': %w", prNumberStr, err)
	}

	return owner, repo, prNumber, nil
}

// AuthenticatedURL embeds token into an http(s) repository URL as
// https://x-access-token:<token>@host/path. Local paths and an empty token are
// returned as-is. The result must only ever be handed to a single push.
func AuthenticatedURL(repoURL, token string) (string, error) {
	// file:// is unsupported; bare local paths are used by tests and mirrors.
	if !strings.Contains(repoURL, "://") {
		return repoURL, nil
	}
	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		return "", fmt.Errorf("invalid repository URL: %s", repoURL)
	}
	if token == "" {
		return repoURL, nil
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse repository URL: %w", err)
	}
	parsedURL.User = url.UserPassword(pushUser, token)
	return parsedURL.String(), nil
}

// SameRepository reports whether two clone URLs name the same repository,
// ignoring credentials, host case, a trailing slash and a ".git" suffix.
func SameRepository(a, b string) bool {
	return normalizeRepoURL(a) == normalizeRepoURL(b)
}

func normalizeRepoURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		u.User = nil
		u.Host = strings.ToLower(u.Host)
		raw = u.String()
	}
	raw = strings.TrimSuffix(raw, "/")
	return strings.TrimSuffix(raw, ".git")
}

// scrubbedError hides token from a wrapped error's message while keeping the
// chain intact for errors.Is and errors.As.
type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }

func (e *scrubbedError) Unwrap() error { return e.err }

func scrubError(prefix string, err error, token string) error {
	return &scrubbedError{msg: prefix + ": " + scrub(err.Error(), token), err: err}
}

func scrub(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}
