// Package ingest renders a working copy into a single text snapshot the model
// can read, using the same file block grammar it is asked to answer in.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shibumi/go-pathspec"

	"github.com/sevigo/code-reviser/internal/core"
	"github.com/sevigo/code-reviser/internal/llm"
)

// binarySniffLen mirrors git's heuristic: a NUL byte in the first 8000 bytes means binary.
const binarySniffLen = 8000

// Snapshot is the rendered source tree.
type Snapshot struct {
	Text string
	// Files lists the included paths in the order they appear in Text.
	Files []string
	// Omitted lists files that were dropped because the byte budget ran out.
	Omitted []string
}

// Snapshotter walks a working copy and renders every text file.
type Snapshotter struct {
	logger *slog.Logger
	// MaxBytes caps the rendered size of file blocks. Zero means unlimited.
	MaxBytes int64
}

func NewSnapshotter(logger *slog.Logger, maxBytes int64) *Snapshotter {
	return &Snapshotter{logger: logger, MaxBytes: maxBytes}
}

// Snapshot renders root according to cfg. Files are emitted in lexical path
// order. The .git directory, symlinks, binary files, paths ignored by the root
// .gitignore and anything excluded by cfg are skipped.
func (s *Snapshotter) Snapshot(ctx context.Context, root string, cfg *core.RepoConfig) (*Snapshot, error) {
	if cfg == nil {
		cfg = core.DefaultRepoConfig()
	}
	ignore, err := readGitIgnore(root)
	if err != nil {
		return nil, err
	}

	files, err := s.listFiles(root, cfg, ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	snap := &Snapshot{}
	var b strings.Builder
	var used int64
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		if isBinary(data) {
			continue
		}
		block := llm.FormatFileBlock(rel, string(data))
		if s.MaxBytes > 0 && used+int64(len(block)) > s.MaxBytes {
			snap.Omitted = append(snap.Omitted, rel)
			continue
		}
		used += int64(len(block))
		b.WriteString(block)
		snap.Files = append(snap.Files, rel)
	}

	if len(snap.Omitted) > 0 {
		fmt.Fprintf(&b, "\n[snapshot truncated: %d files omitted to stay within %d bytes]\n", len(snap.Omitted), s.MaxBytes)
		for _, rel := range snap.Omitted {
			fmt.Fprintf(&b, "- %s\n", rel)
		}
		s.logger.WarnContext(ctx, "snapshot truncated", "included", len(snap.Files), "omitted", len(snap.Omitted))
	}
	snap.Text = b.String()
	return snap, nil
}

func (s *Snapshotter) listFiles(root string, cfg *core.RepoConfig, ignore []string) ([]string, error) {
	excludedDirs := make(map[string]struct{}, len(cfg.ExcludeDirs))
	for _, d := range cfg.ExcludeDirs {
		excludedDirs[strings.Trim(filepath.ToSlash(d), "/")] = struct{}{}
	}
	excludedExts := make(map[string]struct{}, len(cfg.ExcludeExts))
	for _, e := range cfg.ExcludeExts {
		excludedExts[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}

	starts := []string{"."}
	if len(cfg.IncludeDirs) > 0 {
		starts = starts[:0]
		for _, d := range cfg.IncludeDirs {
			clean := path.Clean(filepath.ToSlash(d))
			if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
				s.logger.Warn("ignoring include dir outside the working copy", "dir", d)
				continue
			}
			starts = append(starts, clean)
		}
	}

	seen := make(map[string]struct{})
	var files []string
	for _, start := range starts {
		startPath := filepath.Join(root, filepath.FromSlash(start))
		if _, err := os.Lstat(startPath); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(startPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel == "." {
					return nil
				}
				if d.Name() == ".git" || dirExcluded(rel, d.Name(), excludedDirs) || ignored(ignore, rel+"/") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() {
				return nil
			}
			ext := strings.ToLower(strings.TrimPrefix(path.Ext(rel), "."))
			if _, ok := excludedExts[ext]; ok && ext != "" {
				return nil
			}
			if ignored(ignore, rel) {
				return nil
			}
			if _, dup := seen[rel]; !dup {
				seen[rel] = struct{}{}
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func dirExcluded(rel, name string, excluded map[string]struct{}) bool {
	if _, ok := excluded[name]; ok {
		return true
	}
	_, ok := excluded[rel]
	return ok
}

func ignored(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return false
	}
	match, err := pathspec.GitIgnore(patterns, rel)
	return err == nil && match
}

func readGitIgnore(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore: %w", err)
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, sc.Err()
}

func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}
