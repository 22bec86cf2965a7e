package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds how long a run waits for another run on the same working copy.
const DefaultLockTimeout = 10 * time.Minute

// ErrLockTimeout is returned when the working copy lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for working copy lock")

// LockPath returns the lock file guarding root. It sits next to the working
// copy, never inside it, so holding the lock cannot dirty the worktree.
func LockPath(root string) string {
	return filepath.Clean(root) + ".lock"
}

// WithLock acquires an exclusive lock on the working copy at root, runs fn,
// then releases. A non-positive timeout uses DefaultLockTimeout.
func WithLock(ctx context.Context, root string, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	lockPath := LockPath(root)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	fileLock := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
		}
		return fmt.Errorf("acquiring lock on %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
	}
	defer func() { _ = fileLock.Unlock() }()

	return fn()
}
