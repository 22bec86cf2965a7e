// Package gitutil provides a client for working with Git repositories.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const remoteName = "origin"

var (
	// ErrBranchNotFound is returned when origin has no branch with the requested name.
	ErrBranchNotFound = errors.New("branch not found on origin")
	// ErrNothingToCommit is returned by CommitAll when the worktree is clean.
	ErrNothingToCommit = errors.New("nothing to commit")
)

// Author identifies the committer of revision commits.
type Author struct {
	Name  string
	Email string
}

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger}
}

// Open opens a Git repository at a given path.
func (c *Client) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// EnsureClone makes sure path holds a clone of repoURL. An existing
// repository is reused; when its origin points at a different repository,
// origin is repointed to repoURL and its remote-tracking refs are dropped so
// the next sync cannot resolve branches of the old repository. The stored
// origin URL never carries token.
func (c *Client) EnsureClone(ctx context.Context, repoURL, path, token string) error {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return c.ensureOrigin(ctx, repo, repoURL)
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	c.Logger.InfoContext(ctx, "cloning repository", "url", repoURL, "path", path)
	_, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:        repoURL,
		RemoteName: remoteName,
		Auth:       basicAuth(token),
	})
	if err != nil {
		// Only remove what this clone created; a pre-existing directory is left alone.
		if created {
			c.cleanupDir(path)
		}
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

// SyncBranch makes the working copy at path identical to origin/<branch>:
// it fetches every head from origin, points the local branch at the remote
// tip, checks it out, hard resets and removes untracked files. It returns the
// SHA the branch now points at.
func (c *Client) SyncBranch(ctx context.Context, path, branch, token string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}

	c.Logger.InfoContext(ctx, "fetching latest changes from origin", "branch", branch)
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Auth:       basicAuth(token),
		Force:      true,
		Prune:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("git fetch failed: %w", err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
		}
		return "", fmt.Errorf("failed to resolve origin/%s: %w", branch, err)
	}
	hash := remoteRef.Hash()

	localRef := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(localRef, hash)); err != nil {
		return "", fmt.Errorf("failed to set branch reference: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	c.Logger.InfoContext(ctx, "checking out branch", "branch", branch, "sha", hash.String())
	if err := wt.Checkout(&git.CheckoutOptions{Branch: localRef, Force: true}); err != nil {
		return "", fmt.Errorf("git checkout failed: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return "", fmt.Errorf("git reset failed: %w", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return "", fmt.Errorf("git clean failed: %w", err)
	}
	return hash.String(), nil
}

// OriginURL returns the fetch URL configured for origin in the repository at path.
func (c *Client) OriginURL(path string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote(remoteName)
	if err != nil {
		return "", fmt.Errorf("failed to read remote %s: %w", remoteName, err)
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", fmt.Errorf("remote %s has no URL", remoteName)
}

func (c *Client) ensureOrigin(ctx context.Context, repo *git.Repository, repoURL string) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}
	if remote, ok := cfg.Remotes[remoteName]; ok && len(remote.URLs) > 0 && SameRepository(remote.URLs[0], repoURL) {
		return nil
	}

	c.Logger.InfoContext(ctx, "repointing origin to a different repository", "url", repoURL)
	cfg.Remotes[remoteName] = &gitconfig.RemoteConfig{
		Name:  remoteName,
		URLs:  []string{repoURL},
		Fetch: []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf(gitconfig.DefaultFetchRefSpec, remoteName))},
	}
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to update remote %s: %w", remoteName, err)
	}
	return dropRemoteRefs(repo)
}

func dropRemoteRefs(repo *git.Repository) error {
	refs, err := repo.References()
	if err != nil {
		return fmt.Errorf("failed to list references: %w", err)
	}
	prefix := "refs/remotes/" + remoteName + "/"
	var stale []plumbing.ReferenceName
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().String(), prefix) {
			stale = append(stale, ref.Name())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list references: %w", err)
	}
	for _, name := range stale {
		if err := repo.Storer.RemoveReference(name); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// IsDirty reports whether the worktree has any staged, unstaged or untracked changes.
func (c *Client) IsDirty(path string) (bool, error) {
	repo, err := c.Open(path)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// CommitAll stages every change in the worktree, including deletions, and
// commits it. It returns the new commit SHA.
func (c *Client) CommitAll(ctx context.Context, path, message string, author Author) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingToCommit
	}

	for file, s := range status {
		switch s.Worktree {
		case git.Unmodified:
			continue
		case git.Deleted:
			if _, err := wt.Remove(file); err != nil {
				return "", fmt.Errorf("failed to stage removal of %s: %w", file, err)
			}
		default:
			if _, err := wt.Add(file); err != nil {
				return "", fmt.Errorf("failed to stage %s: %w", file, err)
			}
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("git commit failed: %w", err)
	}
	c.Logger.InfoContext(ctx, "committed changes", "sha", hash.String())
	return hash.String(), nil
}

// ForcePush force-pushes refs/heads/<branch> to the same ref on repoURL. The
// token is embedded in a URL that is only used for this push, so the remote
// configuration of the working copy is never changed.
func (c *Client) ForcePush(ctx context.Context, path, branch, repoURL, token string) error {
	repo, err := c.Open(path)
	if err != nil {
		return err
	}
	pushURL, err := AuthenticatedURL(repoURL, token)
	if err != nil {
		return err
	}

	ref := plumbing.NewBranchReferenceName(branch)
	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))
	c.Logger.InfoContext(ctx, "force pushing branch", "branch", branch, "url", repoURL)

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RemoteURL:  pushURL,
		Force:      true,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			c.Logger.InfoContext(ctx, "branch already up to date", "branch", branch)
			return nil
		}
		// go-git may echo the endpoint in its errors.
		return scrubError(fmt.Sprintf("git push to %s failed", repoURL), err, token)
	}
	return nil
}

func (c *Client) cleanupDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		c.Logger.Warn("failed to clean up partial clone", "path", path, "error", err)
	}
}

// HeadSHA returns the commit HEAD points at.
func (c *Client) HeadSHA(path string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func basicAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: pushUser, Password: token}
}
