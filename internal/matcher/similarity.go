package matcher

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// tokenSort reorders whitespace tokens alphabetically so that word-order
// differences ("JOES TRADER" vs "TRADER JOES") do not depress similarity.
func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Similarity returns a normalized [0, 1] similarity between two canonical
// descriptions, based on Levenshtein distance over token-sorted strings.
func Similarity(a, b string) float64 {
	a = tokenSort(a)
	b = tokenSort(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
