package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineOp marks a preview line as kept, added or removed.
type LineOp byte

const (
	LineEqual   LineOp = ' '
	LineAdded   LineOp = '+'
	LineRemoved LineOp = '-'
)

// PreviewLine is one line of a line-level comparison.
type PreviewLine struct {
	Op   LineOp
	Text string
}

// Preview compares two versions of a file line by line.
func Preview(before, after string) []PreviewLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []PreviewLine
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineAdded
		case diffmatchpatch.DiffDelete:
			op = LineRemoved
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, PreviewLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out
}

// CountChanges returns how many preview lines were added and removed.
func CountChanges(lines []PreviewLine) (added, removed int) {
	for _, l := range lines {
		switch l.Op {
		case LineAdded:
			added++
		case LineRemoved:
			removed++
		}
	}
	return added, removed
}
