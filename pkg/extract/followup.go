package extract

import "strings"

// continuationPhrases mark a question as continuing the previous turn.
var continuationPhrases = []string{
	"how about", "what about", "and for", "and in", "same for", "also for",
	"what if", "if this continues", "and the", "only the",
	"அதே",          // "the same"
	"அப்படியானால்", // "in that case"
}

// pronouns that, early in a short question, point back at a prior answer.
var anaphoricPronouns = map[string]bool{
	"it": true, "that": true, "this": true, "those": true, "these": true,
	"them": true, "they": true, "there": true, "its": true,
}

// actionVerbs are the words a self-contained question normally opens with.
var actionVerbs = map[string]bool{
	"what": true, "which": true, "show": true, "list": true, "give": true,
	"find": true, "count": true, "compare": true, "how": true, "who": true,
	"when": true, "where": true, "tell": true, "display": true, "get": true,
	"calculate": true, "summarize": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
}

// referencePhrases map back-references in a follow-up to the result keys of
// the previous answer, e.g. "that category" resolves against a previous
// top-category result.
var referencePhrases = map[string]string{
	"that category": "category", "this category": "category",
	"top category": "category", "that product": "product",
	"this product": "product", "top product": "product",
	"that location": "location", "this location": "location",
	"that branch": "location", "that area": "location",
	"that month": "month", "this month": "month",
}

// IsFollowupQuestion reports whether a question depends on previous context:
// very short, opens with a continuation phrase, leans on an anaphoric
// pronoun, or lacks any self-contained action verb.
func (e *Extractor) IsFollowupQuestion(question string) bool {
	lower := strings.ToLower(strings.TrimSpace(question))
	if lower == "" {
		return false
	}
	tokens := tokenize(lower)

	for _, phrase := range continuationPhrases {
		if strings.HasPrefix(lower, phrase) || strings.Contains(lower, phrase) {
			return true
		}
	}

	if len(tokens) <= 3 {
		// Short but complete questions ("total sales?") stand alone.
		hasData := false
		for _, t := range tokens {
			if metricDenySet[t] {
				hasData = true
			}
			if _, ok := tamilMonths[t]; ok {
				hasData = true
			}
		}
		if !hasData {
			return true
		}
	}

	limit := 3
	if len(tokens) < limit {
		limit = len(tokens)
	}
	for _, t := range tokens[:limit] {
		if anaphoricPronouns[t] {
			return true
		}
	}

	if len(tokens) > 0 && !actionVerbs[tokens[0]] && len(tokens) <= 6 {
		// No opening action verb and no verb anywhere in a short question.
		for _, t := range tokens {
			if actionVerbs[t] {
				return false
			}
		}
		return true
	}
	return false
}

// ResolveReferences rewrites back-references like "that category" using the
// previous turn's result values, so "show the trend for that category"
// becomes a self-contained question. Unresolvable references are left
// untouched.
func ResolveReferences(question string, resultValues map[string]string) string {
	if len(resultValues) == 0 {
		return question
	}
	lower := strings.ToLower(question)
	out := question
	for phrase, key := range referencePhrases {
		if !strings.Contains(lower, phrase) {
			continue
		}
		value, ok := resultValues[key]
		if !ok || value == "" {
			continue
		}
		idx := strings.Index(lower, phrase)
		out = out[:idx] + value + out[idx+len(phrase):]
		lower = strings.ToLower(out)
	}
	return out
}
