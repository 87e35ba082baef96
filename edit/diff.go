package edit

import (
	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders a unified diff from original to proposed content.
// It returns "" when the contents are equal.
func UnifiedDiff(path, original, proposed string) (string, error) {
	return Diff(path, "original", "proposed", original, proposed)
}

// Diff renders a unified diff between two labeled versions of path.
func Diff(path, fromLabel, toLabel, from, to string) (string, error) {
	if from == to {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: path,
		FromDate: fromLabel,
		ToFile:   path,
		ToDate:   toLabel,
		Context:  3,
	})
}
