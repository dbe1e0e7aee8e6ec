package convo

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

var (
	tokenPattern   = regexp.MustCompile(`[a-z0-9]+|[\x{0B80}-\x{0BFF}]+`)
	ordinalDatePat = regexp.MustCompile(`^(\d+)(st|nd|rd|th)$`)
)

// monthAbbreviations expand short month tokens before overlap matching, so
// "sep sales" can claim "September_Sales".
var monthAbbreviations = map[string]string{
	"jan": "january", "feb": "february", "mar": "march", "apr": "april",
	"jun": "june", "jul": "july", "aug": "august", "sep": "september",
	"sept": "september", "oct": "october", "nov": "november", "dec": "december",
}

// MatchCandidate resolves a clarification answer to one of the offered
// tables. Matching order: bare number, ordinal word (English or Tamil),
// substring of a table name, then token overlap with abbreviation and
// ordinal-date expansion. Returns the candidate index, or false when the
// answer does not pick one.
func MatchCandidate(answer string, candidates []string) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimSpace(answer))
	tokens := tokenPattern.FindAllString(lower, -1)

	// Bare or suffixed number: "1", "2nd".
	for _, tok := range tokens {
		digits := tok
		if m := ordinalDatePat.FindStringSubmatch(tok); m != nil {
			digits = m[1]
		}
		if n, err := strconv.Atoi(digits); err == nil {
			if n >= 1 && n <= len(candidates) {
				return n - 1, true
			}
		}
	}

	// Ordinal word: "first", "முதல்", "second one".
	for _, tok := range tokens {
		if n := extract.OrdinalNumber(tok); n >= 1 && n <= len(candidates) {
			return n - 1, true
		}
	}

	// Substring of a candidate name, longest candidate name first wins ties
	// by specificity.
	best := -1
	for i, name := range candidates {
		nameLower := strings.ToLower(name)
		spaced := strings.ReplaceAll(nameLower, "_", " ")
		if strings.Contains(lower, nameLower) || strings.Contains(lower, spaced) ||
			strings.Contains(nameLower, lower) {
			if best == -1 || len(candidates[i]) > len(candidates[best]) {
				best = i
			}
		}
	}
	if best >= 0 {
		return best, true
	}

	// Token overlap after expansion.
	expanded := expandTokens(tokens)
	bestOverlap := 0
	for i, name := range candidates {
		overlap := tokenOverlap(expanded, name)
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = i
		}
	}
	if bestOverlap > 0 {
		return best, true
	}
	return 0, false
}

// expandTokens normalizes answer tokens: month abbreviations become full
// month names and ordinal dates ("14th") become their digits.
func expandTokens(tokens []string) []string {
	expanded := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if full, ok := monthAbbreviations[tok]; ok {
			expanded = append(expanded, full)
			continue
		}
		if m := ordinalDatePat.FindStringSubmatch(tok); m != nil {
			expanded = append(expanded, m[1])
			continue
		}
		if n := extract.OrdinalNumber(tok); n > 0 {
			expanded = append(expanded, strconv.Itoa(n))
			continue
		}
		expanded = append(expanded, tok)
	}
	return expanded
}

func tokenOverlap(answerTokens []string, tableName string) int {
	nameTokens := tokenPattern.FindAllString(strings.ToLower(tableName), -1)
	nameSet := make(map[string]bool, len(nameTokens))
	for _, t := range nameTokens {
		nameSet[t] = true
		if full, ok := monthAbbreviations[t]; ok {
			nameSet[full] = true
		}
	}

	count := 0
	for _, t := range answerTokens {
		if extract.IsStopword(t) {
			continue
		}
		if nameSet[t] {
			count++
		}
	}
	return count
}

// MatchPending applies MatchCandidate to the session's pending state. On a
// match it clears the pending state and returns the chosen table with the
// stored entities.
func (c *Context) MatchPending(answer string) (table string, entities *models.Entities, ok bool) {
	if c.Pending == nil {
		return "", nil, false
	}
	names := make([]string, len(c.Pending.Candidates))
	for i, cand := range c.Pending.Candidates {
		names[i] = cand.Table
	}
	idx, matched := MatchCandidate(answer, names)
	if !matched {
		return "", nil, false
	}
	table = names[idx]
	entities = c.Pending.Entities
	c.ClearPending()
	return table, entities, true
}
