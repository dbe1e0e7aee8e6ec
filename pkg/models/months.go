package models

import "strings"

// MonthNames are the canonical lowercase English month names used in date
// ranges and entity extraction.
var MonthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// MonthAbbreviations maps common three-letter abbreviations to canonical
// month names. "may" is both full and abbreviated.
var MonthAbbreviations = map[string]string{
	"jan": "january", "feb": "february", "mar": "march", "apr": "april",
	"may": "may", "jun": "june", "jul": "july", "aug": "august",
	"sep": "september", "sept": "september", "oct": "october",
	"nov": "november", "dec": "december",
}

// MonthNumber returns the 1-based month number for a canonical name, or 0.
func MonthNumber(name string) int {
	lower := strings.ToLower(name)
	for i, m := range MonthNames {
		if m == lower {
			return i + 1
		}
	}
	return 0
}

// CanonicalMonth normalizes a month word (full name or abbreviation) to the
// canonical lowercase name; ok is false when the word is not a month.
func CanonicalMonth(word string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(word))
	if MonthNumber(lower) > 0 {
		return lower, true
	}
	if full, ok := MonthAbbreviations[lower]; ok {
		return full, true
	}
	return "", false
}
