package surface

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FirstDifference returns the 1-based line in b where b first differs from
// a, or 0 when they are equal.
func FirstDifference(a, b string) int {
	if a == b {
		return 0
	}
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)

	line := 1
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			return line
		}
		line += strings.Count(d.Text, "\n")
	}
	return line
}

// DiffStats counts inserted and deleted lines between a and b.
func DiffStats(a, b string) (added, removed int) {
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if !strings.HasSuffix(d.Text, "\n") && d.Text != "" {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}
