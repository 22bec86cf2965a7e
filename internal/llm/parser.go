package llm

import (
	"regexp"
	"strings"

	"github.com/sevigo/code-reviser/internal/core"
)

var (
	// Markers must start at column 0. Trailing whitespace, including the \r of
	// CRLF output, is ignored; an indented marker is file content.
	startMarkerRegex = regexp.MustCompile(`^--- START OF FILE:\s*(.+?)\s*---$`)
	endMarkerRegex   = regexp.MustCompile(`^--- END OF FILE:\s*(.+?)\s*---$`)
)

// ParseResult is the outcome of scanning a model response for file blocks.
type ParseResult struct {
	// Blocks holds one entry per path, in order of first appearance. When a
	// path appears more than once the last well-formed block wins.
	Blocks []core.FileBlock
	// Skipped counts malformed blocks: an END whose path differs from its
	// START, a START that is never closed, or an END with no START.
	Skipped int
}

// Paths returns the block paths in order.
func (r ParseResult) Paths() []string {
	paths := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		paths = append(paths, b.Path)
	}
	return paths
}

// FormatFileBlock renders a single block in the delimiter grammar. Parsing the
// output of FormatFileBlock yields content unchanged.
func FormatFileBlock(path, content string) string {
	var b strings.Builder
	b.Grow(len(content) + 2*len(path) + 48)
	b.WriteString("--- START OF FILE: ")
	b.WriteString(path)
	b.WriteString(" ---\n")
	b.WriteString(content)
	b.WriteString("\n--- END OF FILE: ")
	b.WriteString(path)
	b.WriteString(" ---\n")
	return b.String()
}

// ParseFileBlocks extracts every well-formed block from text. Content between
// the markers is kept byte for byte: the newline ending the START line and the
// one right before the END line belong to the markers, nothing else is trimmed.
// Malformed blocks never produce an error, they are only counted.
func ParseFileBlocks(text string) ParseResult {
	var (
		result  ParseResult
		index   = make(map[string]int)
		open    bool
		path    string
		content strings.Builder
	)

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		marker := strings.TrimRight(line, " \t\r\n")

		if m := startMarkerRegex.FindStringSubmatch(marker); m != nil {
			if open {
				result.Skipped++
			}
			open = true
			path = strings.TrimSpace(m[1])
			content.Reset()
			continue
		}

		if m := endMarkerRegex.FindStringSubmatch(marker); m != nil {
			endPath := strings.TrimSpace(m[1])
			switch {
			case !open:
				result.Skipped++
			case endPath != path || path == "":
				result.Skipped++
			default:
				block := core.FileBlock{Path: path, Content: trimMarkerNewline(content.String())}
				if i, ok := index[path]; ok {
					result.Blocks[i] = block
				} else {
					index[path] = len(result.Blocks)
					result.Blocks = append(result.Blocks, block)
				}
			}
			open = false
			content.Reset()
			continue
		}

		if open {
			content.WriteString(line)
		}
	}

	if open {
		result.Skipped++
	}
	return result
}

// trimMarkerNewline drops the line break that separates the body from the END marker.
func trimMarkerNewline(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}
