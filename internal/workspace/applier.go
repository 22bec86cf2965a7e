// Package workspace writes model-proposed files into the shared working copy
// and serializes access to it.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/sevigo/code-reviser/internal/core"
)

// ErrPathOutsideRoot is wrapped by ResolvePath for paths that would land outside the working copy.
var ErrPathOutsideRoot = errors.New("path escapes the working copy")

// ApplyResult lists what happened to each block.
type ApplyResult struct {
	Applied  []string
	Rejected []string
}

// Applier writes file blocks below a root directory.
type Applier struct {
	logger *slog.Logger
}

func NewApplier(logger *slog.Logger) *Applier {
	return &Applier{logger: logger}
}

// Apply writes every block, creating parent directories and overwriting
// existing files. Blocks whose path is absolute, escapes root or targets .git
// are rejected and skipped. The first write failure aborts; files written
// before it stay on disk and are reported in the result.
func (a *Applier) Apply(root string, blocks []core.FileBlock) (*ApplyResult, error) {
	res := &ApplyResult{}
	for _, block := range blocks {
		target, err := ResolvePath(root, block.Path)
		if err != nil {
			a.logger.Warn("rejecting file block", "path", block.Path, "reason", err)
			res.Rejected = append(res.Rejected, block.Path)
			continue
		}
		if err := writeFile(target, block.Content); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", block.Path, err)
		}
		a.logger.Debug("applied file block", "path", block.Path, "bytes", len(block.Content))
		res.Applied = append(res.Applied, block.Path)
	}
	return res, nil
}

func writeFile(target, content string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_, statErr := os.Stat(target)
	if err := atomic.WriteFile(target, strings.NewReader(content)); err != nil {
		return err
	}
	if errors.Is(statErr, os.ErrNotExist) {
		return os.Chmod(target, 0o644)
	}
	return nil
}

// ResolvePath maps a slash-separated relative path onto root. Symlinked
// parents are resolved so a link cannot redirect a write outside root.
func ResolvePath(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathOutsideRoot)
	}
	native := filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/"))
	if filepath.IsAbs(native) || strings.HasPrefix(rel, "/") || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("%w: %s is absolute", ErrPathOutsideRoot, rel)
	}
	clean := filepath.Clean(native)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, rel)
	}
	if first := strings.SplitN(filepath.ToSlash(clean), "/", 2)[0]; strings.EqualFold(first, ".git") {
		return "", fmt.Errorf("%w: %s targets the git directory", ErrPathOutsideRoot, rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	target := filepath.Join(absRoot, clean)

	// Resolve the closest existing ancestor and make sure it is still below root.
	parent := filepath.Dir(target)
	for {
		resolved, err := filepath.EvalSymlinks(parent)
		if err == nil {
			if !within(absRoot, resolved) {
				return "", fmt.Errorf("%w: %s resolves outside the working copy", ErrPathOutsideRoot, rel)
			}
			break
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve %s: %w", rel, err)
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}

	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("%w: %s is a symlink", ErrPathOutsideRoot, rel)
	}
	return target, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
