package core

import "time"

// CommitMessage is used for every commit produced from review feedback.
const CommitMessage = "refactor: Address PR review feedback"

// FileBlock is one full-file replacement proposed by the model.
type FileBlock struct {
	Path    string
	Content string
}

// RevisionResult summarizes a finished revision run.
type RevisionResult struct {
	Branch    string
	BaseSHA   string
	CommitSHA string
	Applied   []string
	Skipped   int
	Rejected  int
	Pushed    bool
}

// RunStatus is the terminal state of a revision run.
type RunStatus string

const (
	RunStatusPushed    RunStatus = "pushed"
	RunStatusNoChanges RunStatus = "no_changes"
	RunStatusFailed    RunStatus = "failed"
)

// RevisionRun is the persisted record of a single revision attempt.
type RevisionRun struct {
	ID            int64     `db:"id" json:"id"`
	RepoFullName  string    `db:"repo_full_name" json:"repo_full_name"`
	PRNumber      int       `db:"pr_number" json:"pr_number"`
	Branch        string    `db:"branch" json:"branch"`
	BaseSHA       string    `db:"base_sha" json:"base_sha"`
	CommitSHA     string    `db:"commit_sha" json:"commit_sha"`
	Status        RunStatus `db:"status" json:"status"`
	FilesApplied  int       `db:"files_applied" json:"files_applied"`
	BlocksSkipped int       `db:"blocks_skipped" json:"blocks_skipped"`
	Error         string    `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
