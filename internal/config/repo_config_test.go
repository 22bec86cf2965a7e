package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRepoConfig(t.TempDir())
		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		assert.Empty(t, cfg.IncludeDirs)
	})

	t.Run("parses file", func(t *testing.T) {
		dir := t.TempDir()
		yml := "custom_instructions:\n  - Keep public APIs stable\ninclude_dirs: [lib]\nexclude_exts: [.lock]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte(yml), 0o600))

		cfg, err := LoadRepoConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"Keep public APIs stable"}, cfg.CustomInstructions)
		assert.Equal(t, []string{"lib"}, cfg.IncludeDirs)
		assert.Equal(t, []string{".lock"}, cfg.ExcludeExts)
		assert.Empty(t, cfg.ExcludeDirs)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte("include_dirs: [lib\n"), 0o600))

		_, err := LoadRepoConfig(dir)
		assert.ErrorIs(t, err, ErrConfigParsing)
	})
}
