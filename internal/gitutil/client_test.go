package gitutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-reviser/internal/gitutil/gittest"
)

const branch = "feature"

func newTestClient() *Client {
	return NewClient(slog.New(slog.DiscardHandler))
}

func TestClient_SyncBranch(t *testing.T) {
	ctx := context.Background()
	remote, baseSHA := gittest.NewRemote(t, branch, map[string]string{"lib/user.dart": "class User {}\n"})
	ws := gittest.Clone(t, remote)
	c := newTestClient()

	t.Run("checks out the remote branch", func(t *testing.T) {
		sha, err := c.SyncBranch(ctx, ws, branch, "")
		require.NoError(t, err)
		assert.Equal(t, baseSHA, sha)

		head, err := c.HeadSHA(ws)
		require.NoError(t, err)
		assert.Equal(t, baseSHA, head)
	})

	t.Run("discards local commits and untracked files", func(t *testing.T) {
		gittest.CommitFiles(t, ws, map[string]string{"lib/user.dart": "local edit\n"}, "local")
		gittest.WriteFile(t, ws, "lib/scratch/tmp.dart", "junk")

		sha, err := c.SyncBranch(ctx, ws, branch, "")
		require.NoError(t, err)
		assert.Equal(t, baseSHA, sha)

		content, err := os.ReadFile(filepath.Join(ws, "lib", "user.dart"))
		require.NoError(t, err)
		assert.Equal(t, "class User {}\n", string(content))
		assert.NoFileExists(t, filepath.Join(ws, "lib", "scratch", "tmp.dart"))

		dirty, err := c.IsDirty(ws)
		require.NoError(t, err)
		assert.False(t, dirty)
	})

	t.Run("picks up commits pushed by others", func(t *testing.T) {
		newSHA := gittest.Advance(t, remote, branch, map[string]string{"lib/api.dart": "void main() {}\n"})

		sha, err := c.SyncBranch(ctx, ws, branch, "")
		require.NoError(t, err)
		assert.Equal(t, newSHA, sha)
		assert.FileExists(t, filepath.Join(ws, "lib", "api.dart"))
	})

	t.Run("unknown branch", func(t *testing.T) {
		_, err := c.SyncBranch(ctx, ws, "does-not-exist", "")
		assert.ErrorIs(t, err, ErrBranchNotFound)
	})
}

func TestClient_SyncBranchSwitchesBranches(t *testing.T) {
	ctx := context.Background()
	remote, masterSHA := gittest.NewRemote(t, "other", map[string]string{"a.txt": "a\n"})
	otherSHA := gittest.Advance(t, remote, "other", map[string]string{"b.txt": "b\n"})
	ws := gittest.Clone(t, remote)
	c := newTestClient()

	assertHead := func(t *testing.T, wantBranch, wantSHA string) {
		t.Helper()
		repo, err := git.PlainOpen(ws)
		require.NoError(t, err)
		head, err := repo.Head()
		require.NoError(t, err)
		assert.Equal(t, plumbing.NewBranchReferenceName(wantBranch), head.Name())
		assert.Equal(t, wantSHA, head.Hash().String())

		dirty, err := c.IsDirty(ws)
		require.NoError(t, err)
		assert.False(t, dirty)
	}

	sha, err := c.SyncBranch(ctx, ws, "master", "")
	require.NoError(t, err)
	assert.Equal(t, masterSHA, sha)
	assertHead(t, "master", masterSHA)

	sha, err = c.SyncBranch(ctx, ws, "other", "")
	require.NoError(t, err)
	assert.Equal(t, otherSHA, sha)
	assertHead(t, "other", otherSHA)
	assert.FileExists(t, filepath.Join(ws, "b.txt"))

	sha, err = c.SyncBranch(ctx, ws, "master", "")
	require.NoError(t, err)
	assert.Equal(t, masterSHA, sha)
	assertHead(t, "master", masterSHA)
	assert.NoFileExists(t, filepath.Join(ws, "b.txt"))
}

func TestClient_CommitAllAndForcePush(t *testing.T) {
	ctx := context.Background()
	remote, baseSHA := gittest.NewRemote(t, branch, map[string]string{
		"lib/user.dart":   "class User {}\n",
		"lib/legacy.dart": "// old\n",
	})
	ws := gittest.Clone(t, remote)
	c := newTestClient()

	_, err := c.SyncBranch(ctx, ws, branch, "")
	require.NoError(t, err)

	_, err = c.CommitAll(ctx, ws, "noop", Author{Name: "bot", Email: "bot@example.com"})
	assert.ErrorIs(t, err, ErrNothingToCommit)

	gittest.WriteFile(t, ws, "lib/user.dart", "class User { String name = ''; }\n")
	gittest.WriteFile(t, ws, "lib/profile.dart", "class Profile {}\n")
	require.NoError(t, os.Remove(filepath.Join(ws, "lib", "legacy.dart")))

	dirty, err := c.IsDirty(ws)
	require.NoError(t, err)
	assert.True(t, dirty)

	commitSHA, err := c.CommitAll(ctx, ws, "refactor: Address PR review feedback", Author{Name: "bot", Email: "bot@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, baseSHA, commitSHA)

	dirty, err = c.IsDirty(ws)
	require.NoError(t, err)
	assert.False(t, dirty, "deletions and new files must be staged")

	require.NoError(t, c.ForcePush(ctx, ws, branch, remote, ""))
	assert.Equal(t, commitSHA, gittest.BranchSHA(t, remote, branch))
	assert.Equal(t, "refactor: Address PR review feedback", gittest.CommitMessage(t, remote, branch))

	// Pushing the same ref again is not an error.
	require.NoError(t, c.ForcePush(ctx, ws, branch, remote, ""))
}

func TestClient_ForcePushOverwritesRemote(t *testing.T) {
	ctx := context.Background()
	remote, _ := gittest.NewRemote(t, branch, map[string]string{"a.txt": "a\n"})
	ws := gittest.Clone(t, remote)
	c := newTestClient()

	_, err := c.SyncBranch(ctx, ws, branch, "")
	require.NoError(t, err)
	local := gittest.CommitFiles(t, ws, map[string]string{"a.txt": "local\n"}, "local")

	// The remote diverges after the sync.
	gittest.Advance(t, remote, branch, map[string]string{"b.txt": "b\n"})

	require.NoError(t, c.ForcePush(ctx, ws, branch, remote, ""))
	assert.Equal(t, local, gittest.BranchSHA(t, remote, branch))
}

func TestClient_ForcePushDoesNotPersistCredentials(t *testing.T) {
	ctx := context.Background()
	remote, _ := gittest.NewRemote(t, branch, map[string]string{"a.txt": "a\n"})
	ws := gittest.Clone(t, remote)
	c := newTestClient()

	_, err := c.SyncBranch(ctx, ws, branch, "")
	require.NoError(t, err)
	gittest.CommitFiles(t, ws, map[string]string{"a.txt": "b\n"}, "change")

	// An unreachable https remote fails, but must not leak or store the token.
	err = c.ForcePush(ctx, ws, branch, "https://127.0.0.1:1/acme/app.git", "s3cr3t-token")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cr3t-token")

	repo, err := git.PlainOpen(ws)
	require.NoError(t, err)
	origin, err := repo.Remote("origin")
	require.NoError(t, err)
	assert.Equal(t, []string{remote}, origin.Config().URLs)

	raw, err := os.ReadFile(filepath.Join(ws, ".git", "config"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cr3t-token")
}

func TestClient_EnsureClone(t *testing.T) {
	ctx := context.Background()
	remote, sha := gittest.NewRemote(t, branch, map[string]string{"a.txt": "a\n"})
	c := newTestClient()

	dir := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, c.EnsureClone(ctx, remote, dir, ""))
	require.NoError(t, c.EnsureClone(ctx, remote, dir, ""), "existing clone is reused")

	got, err := c.SyncBranch(ctx, dir, branch, "")
	require.NoError(t, err)
	assert.Equal(t, sha, got)
}

func TestClient_EnsureClone_RepointsOrigin(t *testing.T) {
	ctx := context.Background()
	remoteA, _ := gittest.NewRemote(t, branch, map[string]string{"a.txt": "from a\n"})
	gittest.Advance(t, remoteA, branch, map[string]string{"only-a.txt": "a\n"})
	remoteB, shaB := gittest.NewRemote(t, branch, map[string]string{"b.txt": "from b\n"})
	c := newTestClient()

	dir := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, c.EnsureClone(ctx, remoteA, dir, ""))
	_, err := c.SyncBranch(ctx, dir, branch, "")
	require.NoError(t, err)

	require.NoError(t, c.EnsureClone(ctx, remoteB, dir, ""))
	origin, err := c.OriginURL(dir)
	require.NoError(t, err)
	assert.Equal(t, remoteB, origin)

	got, err := c.SyncBranch(ctx, dir, branch, "")
	require.NoError(t, err)
	assert.Equal(t, shaB, got)
	assert.FileExists(t, filepath.Join(dir, "b.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "only-a.txt"))
}

func TestClient_EnsureClone_FailureRemovesPartialClone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkout")
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	err := newTestClient().EnsureClone(context.Background(), missing, dir, "")
	require.Error(t, err)
	assert.NoDirExists(t, dir)
}
