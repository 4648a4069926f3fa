package backfill

import (
	"github.com/pmezard/go-difflib/difflib"
)

// diffContext is the number of unchanged lines shown around each change.
const diffContext = 3

// unifiedDiff renders the change a rewrite of path would make.
// Identical inputs produce an empty diff.
func unifiedDiff(path string, before, after []byte) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path + " (original)",
		ToFile:   path + " (with identifiers)",
		Context:  diffContext,
	}
	return difflib.GetUnifiedDiffString(ud)
}
