package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// minSuggestionRatio is the similarity below which no suggestion is made.
const minSuggestionRatio = 0.6

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ProjectRoot walks up from the working directory looking for the directory holding go.mod.
// go-test changes the working directory to the package being tested, so relative paths
// (config/.env.*) must be resolved from the module root.
// When no go.mod is found (installed binary), the working directory is returned.
func ProjectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// Suggest returns the candidate most similar to `s`, or "" when none is similar enough.
func Suggest(s string, candidates []string) string {
	var (
		best      string
		bestRatio float64
	)
	a := strings.Split(strings.ToLower(s), "")
	for _, c := range candidates {
		if c == s {
			continue
		}
		ratio := difflib.NewMatcher(a, strings.Split(strings.ToLower(c), "")).Ratio()
		if ratio >= minSuggestionRatio && ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	return best
}
