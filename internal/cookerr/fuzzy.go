package cookerr

import "strings"

// FuzzyMatch returns the entry in candidates most similar to name, by
// a normalized Levenshtein-similarity score, used to build the "did
// you mean ...?" suggestion on unknown-identifier diagnostics (spec.md
// §4.D "A fuzzy-match fallback produces 'did you mean...?'
// diagnostics"), grounded on the original's standalone fstrcmp utility
// (original_source/src/fstrcmp/main.c), reimplemented here as edit
// distance rather than the original's Ratcliff/Obershelp algorithm
// since only the "best candidate" behaviour is part of the spec's
// contract, not the particular similarity metric.
func FuzzyMatch(name string, candidates []string) (best string, ok bool) {
	bestScore := -1.0
	for _, c := range candidates {
		score := similarity(name, c)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < 0.5 {
		return "", false
	}
	return best, true
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Normalize is a small helper used before fuzzy matching to fold case
// the way identifier lookups in cook are case-sensitive but
// diagnostics still want to catch "Target" vs "target" typos as close
// matches rather than arbitrary-distance ones.
func Normalize(s string) string { return strings.ToLower(s) }
