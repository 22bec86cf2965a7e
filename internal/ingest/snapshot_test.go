package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/internal/llm"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func newSnapshotter(maxBytes int64) *Snapshotter {
	return NewSnapshotter(slog.New(slog.DiscardHandler), maxBytes)
}

func TestSnapshotter_Snapshot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/user.dart":       "class User { getUser() {} }\n",
		"lib/api/client.dart": "class Client {}\n",
		"README.md":           "# app\n",
		".git/HEAD":           "ref: refs/heads/main\n",
		"build/out.js":        "minified\n",
		"logo.png":            "\x89PNG\x00\x00",
		"notes.log":           "debug\n",
		"tmp/cache.txt":       "cache\n",
		".gitignore":          "# comment\ntmp/\n*.log\n",
	})
	require.NoError(t, os.Symlink(filepath.Join(root, "README.md"), filepath.Join(root, "link.md")))

	cfg := &core.RepoConfig{ExcludeDirs: []string{"build"}}
	snap, err := newSnapshotter(0).Snapshot(context.Background(), root, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{".gitignore", "README.md", "lib/api/client.dart", "lib/user.dart"}, snap.Files)
	assert.Empty(t, snap.Omitted)

	// The snapshot speaks the same grammar as the response parser.
	parsed := llm.ParseFileBlocks(snap.Text)
	require.Len(t, parsed.Blocks, 4)
	assert.Equal(t, "lib/user.dart", parsed.Blocks[3].Path)
	assert.Equal(t, "class User { getUser() {} }\n", parsed.Blocks[3].Content)
	assert.NotContains(t, snap.Text, "minified")
	assert.NotContains(t, snap.Text, "refs/heads/main")
}

func TestSnapshotter_IncludeDirsAndExts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/user.dart":       "class User {}\n",
		"lib/user.g.lock":     "generated\n",
		"test/user_test.dart": "void main() {}\n",
		"docs/guide.md":       "guide\n",
	})

	cfg := &core.RepoConfig{
		IncludeDirs: []string{"lib", "../outside", "missing"},
		ExcludeExts: []string{"lock"},
	}
	snap, err := newSnapshotter(0).Snapshot(context.Background(), root, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/user.dart"}, snap.Files)
}

func TestSnapshotter_Budget(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt": strings.Repeat("a", 10),
		"b.txt": strings.Repeat("b", 400),
		"c.txt": strings.Repeat("c", 10),
	})

	budget := int64(len(llm.FormatFileBlock("a.txt", strings.Repeat("a", 10))) * 2)
	snap, err := newSnapshotter(budget).Snapshot(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "c.txt"}, snap.Files)
	assert.Equal(t, []string{"b.txt"}, snap.Omitted)
	assert.Contains(t, snap.Text, "[snapshot truncated: 1 files omitted")
	assert.Contains(t, snap.Text, "- b.txt\n")
}

func TestSnapshotter_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSnapshotter(0).Snapshot(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProjectStructure(t *testing.T) {
	got := ProjectStructure([]string{"README.md", "lib/api/client.dart", "lib/user.dart"})
	want := "- README.md\n" +
		"- **lib/**\n" +
		"  - **api/**\n" +
		"    - client.dart\n" +
		"  - user.dart\n"
	assert.Equal(t, want, got)
}
