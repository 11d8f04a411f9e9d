package builder

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// unchanged runs longer than this are shortened to their first and last lines
const diffContext = 3

// Diff returns a line diff from oldText to newText. Lines are prefixed with
// "+ ", "- " or "  "; long unchanged runs are collapsed into "  ...". Equal
// inputs give "".
func Diff(oldText, newText string) string {
	if oldText == newText {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			writeLines(&sb, "+ ", chunk)
		case diffmatchpatch.DiffDelete:
			writeLines(&sb, "- ", chunk)
		default:
			if len(chunk) > 2*diffContext+1 {
				writeLines(&sb, "  ", chunk[:diffContext])
				sb.WriteString("  ...\n")
				chunk = chunk[len(chunk)-diffContext:]
			}
			writeLines(&sb, "  ", chunk)
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(sb *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		sb.WriteString(prefix)
		sb.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			sb.WriteByte('\n')
		}
	}
}
