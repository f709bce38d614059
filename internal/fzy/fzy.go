// Package fzy implements the FZY-style fuzzy matcher used for REPL tab
// completion: a case-insensitive prefix gate followed by the FZY bonus
// scoring function (consecutive-match, camel-boundary, and separator
// bonuses), truncated to 15 results with a stable tie-break by original
// index. Grounded on the vendored `vendor/fzy/match.c` algorithm that
// `apps/ikigai/fzy_wrapper.c` calls into: prefix-filter first, score only
// the survivors, sort descending, keep ties in original order.
package fzy

import (
	"sort"
	"strings"
)

// MaxResults caps the number of candidates returned, matching the
// wrapper's max_results contract.
const MaxResults = 15

const (
	bonusConsecutive = 1.0
	bonusBoundary     = 0.9 // after '/', '-', '_', ' ', '.'
	bonusCamel        = 0.8 // lowercase-to-uppercase transition
	bonusFirstChar    = 0.8
)

// Result pairs a candidate string with its fzy score.
type Result struct {
	Candidate string
	Score     float64
	Index     int
}

// Filter returns the candidates that case-insensitively prefix-match
// search, scored by the FZY bonus function, sorted by descending score
// with a stable tie-break on original index, truncated to MaxResults.
// candidates with no prefix match are excluded entirely, matching the
// wrapper's strncasecmp gate.
func Filter(candidates []string, search string) []Result {
	var matches []Result
	for i, c := range candidates {
		if !strings.HasPrefix(strings.ToLower(c), strings.ToLower(search)) {
			continue
		}
		matches = append(matches, Result{
			Candidate: c,
			Score:     score(search, c),
			Index:     i,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	return matches
}

// score computes the FZY bonus-function score of needle matched
// (case-insensitively) against haystack. needle is assumed to already be
// a prefix of haystack (Filter's gate), but the scoring itself does not
// depend on that: it greedily consumes needle left to right, awarding a
// bonus per matched character based on what precedes it.
func score(needle, haystack string) float64 {
	if needle == "" {
		return 0
	}

	n := []rune(strings.ToLower(needle))
	h := []rune(haystack)
	hLower := []rune(strings.ToLower(haystack))

	var total float64
	ni := 0
	prevMatched := false
	for hi := 0; hi < len(h) && ni < len(n); hi++ {
		if hLower[hi] != n[ni] {
			prevMatched = false
			continue
		}

		bonus := 0.0
		switch {
		case hi == 0:
			bonus = bonusFirstChar
		case prevMatched:
			bonus = bonusConsecutive
		case isBoundary(h[hi-1]):
			bonus = bonusBoundary
		case isCamelBoundary(h[hi-1], h[hi]):
			bonus = bonusCamel
		}
		total += 1.0 + bonus

		prevMatched = true
		ni++
	}

	if ni < len(n) {
		// Should not happen given Filter's prefix gate, but degrade
		// gracefully rather than panic on a partial match.
		return total
	}
	return total
}

func isBoundary(r rune) bool {
	switch r {
	case '/', '-', '_', ' ', '.':
		return true
	default:
		return false
	}
}

func isCamelBoundary(prev, cur rune) bool {
	return prev >= 'a' && prev <= 'z' && cur >= 'A' && cur <= 'Z'
}
