package ingest

import (
	"fmt"
	"strings"
)

// ProjectStructure renders files as an indented markdown tree. A directory is
// printed the first time a file below it appears, so files should be sorted.
func ProjectStructure(files []string) string {
	var b strings.Builder
	printed := make(map[string]bool)
	for _, f := range files {
		parts := strings.Split(f, "/")
		for depth := 0; depth < len(parts)-1; depth++ {
			dir := strings.Join(parts[:depth+1], "/")
			if printed[dir] {
				continue
			}
			printed[dir] = true
			fmt.Fprintf(&b, "%s- **%s/**\n", strings.Repeat("  ", depth), parts[depth])
		}
		fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", len(parts)-1), parts[len(parts)-1])
	}
	return b.String()
}
