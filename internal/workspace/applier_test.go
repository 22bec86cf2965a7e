package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-reviser/internal/core"
)

func newApplier() *Applier {
	return NewApplier(slog.New(slog.DiscardHandler))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplier_Apply(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "user.dart"), []byte("class User { getUser() {} }\n"), 0o644))

	res, err := newApplier().Apply(root, []core.FileBlock{
		{Path: "lib/user.dart", Content: "class User { fetchUser() {} }"},
		{Path: "lib/deep/nested/new.dart", Content: "  \n\tkeep whitespace\n\n"},
		{Path: "empty.txt", Content: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/user.dart", "lib/deep/nested/new.dart", "empty.txt"}, res.Applied)
	assert.Empty(t, res.Rejected)

	assert.Equal(t, "class User { fetchUser() {} }", readFile(t, filepath.Join(root, "lib", "user.dart")))
	assert.Equal(t, "  \n\tkeep whitespace\n\n", readFile(t, filepath.Join(root, "lib", "deep", "nested", "new.dart")))
	assert.Equal(t, "", readFile(t, filepath.Join(root, "empty.txt")))

	info, err := os.Stat(filepath.Join(root, "lib", "deep", "nested", "new.dart"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestApplier_RejectsPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))
	outside := filepath.Join(parent, "outside")
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	res, err := newApplier().Apply(root, []core.FileBlock{
		{Path: "../evil.txt", Content: "x"},
		{Path: "/etc/passwd", Content: "x"},
		{Path: "lib/../../evil.txt", Content: "x"},
		{Path: "src\\..\\..\\evil.txt", Content: "x"},
		{Path: ".git/config", Content: "x"},
		{Path: "escape/pwned.txt", Content: "x"},
		{Path: "ok.txt", Content: "fine"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.txt"}, res.Applied)
	assert.Len(t, res.Rejected, 6)

	assert.NoFileExists(t, filepath.Join(parent, "evil.txt"))
	assert.NoFileExists(t, filepath.Join(outside, "pwned.txt"))
	assert.NoFileExists(t, filepath.Join(root, ".git", "config"))
}

func TestApplier_WriteFailureKeepsEarlierWrites(t *testing.T) {
	root := t.TempDir()
	// A regular file where a directory is needed makes MkdirAll fail.
	require.NoError(t, os.WriteFile(filepath.Join(root, "blocker"), []byte("x"), 0o644))

	res, err := newApplier().Apply(root, []core.FileBlock{
		{Path: "first.txt", Content: "1"},
		{Path: "blocker/second.txt", Content: "2"},
		{Path: "third.txt", Content: "3"},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"first.txt"}, res.Applied)
	assert.FileExists(t, filepath.Join(root, "first.txt"))
	assert.NoFileExists(t, filepath.Join(root, "third.txt"))
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()

	got, err := ResolvePath(root, "lib/./user.dart")
	require.NoError(t, err)
	assert.Equal(t, "user.dart", filepath.Base(got))

	for _, bad := range []string{"", "  ", ".", "..", "../x", "/abs", ".GIT/hooks/pre-commit"} {
		_, err := ResolvePath(root, bad)
		assert.ErrorIs(t, err, ErrPathOutsideRoot, "path %q", bad)
	}
}
