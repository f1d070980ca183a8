package builtins

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest returns the built-in closest to word, for "did you mean" hints.
// Near misses by edit distance win; otherwise the best subsequence match
// (e.g. "lower" finds "toLower") is used.
func Suggest(word string) (string, bool) {
	if word == "" {
		return "", false
	}
	if name, ok := Closest(word); ok {
		return name, true
	}
	if len(word) < 3 {
		return "", false
	}
	ranks := fuzzy.RankFindFold(word, Names())
	if len(ranks) == 0 {
		return "", false
	}
	sort.Sort(ranks)
	return ranks[0].Target, true
}

// Closest returns the built-in within a small edit distance of word
// (case-insensitive): one edit for short words, two for six or more letters.
func Closest(word string) (string, bool) {
	limit := 1
	if len(word) >= 6 {
		limit = 2
	}
	lower := strings.ToLower(word)
	best, bestDist := "", limit+1
	for _, name := range Names() {
		d := fuzzy.LevenshteinDistance(lower, strings.ToLower(name))
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best, best != ""
}
