// Package gittest builds throwaway Git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var signature = object.Signature{Name: "Test", Email: "test@example.com"}

// NewRemote creates a non-bare repository with files committed on master and
// a branch ref pointing at that commit. master stays checked out so pushes to
// branch are accepted. It returns the repository path and the commit SHA.
func NewRemote(t *testing.T, branch string, files map[string]string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	sha := CommitFiles(t, dir, files, "initial")

	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))); err != nil {
		t.Fatalf("SetReference HEAD: %v", err)
	}
	if branch != "master" {
		ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), plumbing.NewHash(sha))
		if err := repo.Storer.SetReference(ref); err != nil {
			t.Fatalf("SetReference %s: %v", branch, err)
		}
	}
	return dir, sha
}

// Clone clones remote into a fresh directory.
func Clone(t *testing.T, remote string) string {
	t.Helper()

	dir := t.TempDir()
	if _, err := git.PlainClone(dir, false, &git.CloneOptions{URL: remote}); err != nil {
		t.Fatalf("PlainClone: %v", err)
	}
	return dir
}

// CommitFiles writes files into the worktree at dir and commits them on the
// current HEAD. An empty content deletes the file.
func CommitFiles(t *testing.T, dir string, files map[string]string, message string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if files[name] == "" {
			if _, err := wt.Remove(name); err != nil {
				t.Fatalf("Remove %s: %v", name, err)
			}
			continue
		}
		WriteFile(t, dir, name, files[name])
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	sig := signature
	sig.When = time.Now()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &sig, AllowEmptyCommits: true})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

// Advance moves branch on remote forward by one commit containing files,
// the way another collaborator pushing to the PR would.
func Advance(t *testing.T, remote, branch string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	refName := plumbing.NewBranchReferenceName(branch)
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{URL: remote, ReferenceName: refName, SingleBranch: true})
	if err != nil {
		t.Fatalf("PlainClone %s: %v", branch, err)
	}
	sha := CommitFiles(t, dir, files, "collaborator change")

	refSpec := gitconfig.RefSpec(refName.String() + ":" + refName.String())
	if err := repo.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []gitconfig.RefSpec{refSpec}}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	return sha
}

// WriteFile writes content to a slash-separated path below dir, creating parents.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()

	full := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// BranchSHA returns the commit branch points at in the repository at dir.
func BranchSHA(t *testing.T, dir, branch string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		t.Fatalf("Reference %s: %v", branch, err)
	}
	return ref.Hash().String()
}

// CommitMessage returns the message of the commit branch points at.
func CommitMessage(t *testing.T, dir, branch string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(BranchSHA(t, dir, branch)))
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	return commit.Message
}

// ParentSHAs returns the parents of the commit branch points at.
func ParentSHAs(t *testing.T, dir, branch string) []string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(BranchSHA(t, dir, branch)))
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	parents := make([]string, 0, len(commit.ParentHashes))
	for _, h := range commit.ParentHashes {
		parents = append(parents, h.String())
	}
	return parents
}
