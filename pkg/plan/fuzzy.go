package plan

import "strings"

// Similarity returns a [0,1] ratio between two identifiers: 1 minus the
// normalized edit distance of their lowercase forms. Underscores and spaces
// are treated as equal.
func Similarity(a, b string) float64 {
	a = canonical(a)
	b = canonical(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	dist := editDistance(a, b)
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return 1 - float64(dist)/float64(longer)
}

func canonical(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// editDistance is the classic two-row Levenshtein.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
