package diff

import (
	"fmt"
	"strings"

	"github.com/waigani/diffparser"
)

// FileChange describes one file touched by a diff.
type FileChange struct {
	Path    string
	Mode    string
	Added   int
	Removed int
}

// Summary lists the files a diff touches.
type Summary struct {
	Files []FileChange
}

// Paths returns the touched paths in diff order.
func (s Summary) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// String renders one line per file, e.g. "modified lib/user.dart (+3 -1)".
func (s Summary) String() string {
	var b strings.Builder
	for _, f := range s.Files {
		fmt.Fprintf(&b, "%s %s (+%d -%d)\n", f.Mode, f.Path, f.Added, f.Removed)
	}
	return b.String()
}

// Summarize parses a unified diff. A diff that cannot be parsed yields an
// empty summary, the raw text is still what the model sees.
func Summarize(diffText string) Summary {
	if strings.TrimSpace(diffText) == "" {
		return Summary{}
	}
	parsed, err := diffparser.Parse(diffText)
	if err != nil || parsed == nil {
		return Summary{}
	}

	var s Summary
	for _, file := range parsed.Files {
		change := FileChange{Path: file.NewName, Mode: modeName(file.Mode)}
		if file.Mode == diffparser.DELETED || change.Path == "" {
			change.Path = file.OrigName
		}
		for _, hunk := range file.Hunks {
			for _, line := range hunk.WholeRange.Lines {
				switch line.Mode {
				case diffparser.ADDED:
					change.Added++
				case diffparser.REMOVED:
					change.Removed++
				}
			}
		}
		s.Files = append(s.Files, change)
	}
	return s
}

func modeName(m diffparser.FileMode) string {
	switch m {
	case diffparser.NEW:
		return "added"
	case diffparser.DELETED:
		return "deleted"
	default:
		return "modified"
	}
}

// Truncate caps text at maxBytes, cutting on a line boundary and appending an
// explicit marker. maxBytes <= 0 disables the cap.
func Truncate(text string, maxBytes int64) (string, bool) {
	if maxBytes <= 0 || int64(len(text)) <= maxBytes {
		return text, false
	}
	cut := text[:maxBytes]
	if i := strings.LastIndexByte(cut, '\n'); i >= 0 {
		cut = cut[:i+1]
	}
	omitted := len(text) - len(cut)
	return cut + fmt.Sprintf("[diff truncated: %d bytes omitted]\n", omitted), true
}
