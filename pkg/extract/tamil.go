package extract

import "strings"

// tamilMonths maps Tamil month words (Gregorian names written in Tamil
// script) to canonical English month names.
var tamilMonths = map[string]string{
	"ஜனவரி":    "january",
	"பிப்ரவரி": "february",
	"மார்ச்":   "march",
	"ஏப்ரல்":   "april",
	"மே":       "may",
	"ஜூன்":     "june",
	"ஜூலை":     "july",
	"ஆகஸ்ட்":   "august",
	"செப்டம்பர்": "september",
	"அக்டோபர்":  "october",
	"நவம்பர்":   "november",
	"டிசம்பர்":  "december",
}

// tamilCardinals maps Tamil number words 1 through 31 to their values,
// covering every possible day of month.
var tamilCardinals = map[string]int{
	"ஒன்று":          1,
	"இரண்டு":         2,
	"மூன்று":         3,
	"நான்கு":         4,
	"ஐந்து":          5,
	"ஆறு":            6,
	"ஏழு":            7,
	"எட்டு":          8,
	"ஒன்பது":         9,
	"பத்து":          10,
	"பதினொன்று":      11,
	"பன்னிரண்டு":     12,
	"பதின்மூன்று":    13,
	"பதினான்கு":      14,
	"பதினைந்து":      15,
	"பதினாறு":        16,
	"பதினேழு":        17,
	"பதினெட்டு":      18,
	"பத்தொன்பது":     19,
	"இருபது":         20,
	"இருபத்தொன்று":   21,
	"இருபத்திரண்டு":  22,
	"இருபத்திமூன்று": 23,
	"இருபத்திநான்கு": 24,
	"இருபத்தைந்து":   25,
	"இருபத்தாறு":     26,
	"இருபத்தேழு":     27,
	"இருபத்தெட்டு":   28,
	"இருபத்தொன்பது":  29,
	"முப்பது":        30,
	"முப்பத்தொன்று":  31,
}

// tamilOrdinals covers the -ஆம் and -ஆவது ordinal forms of 1..31 plus the
// irregular first forms. Built from tamilCardinals at init.
var tamilOrdinals = func() map[string]int {
	ords := map[string]int{
		"முதல்":     1,
		"முதலாம்":   1,
		"முதலாவது":  1,
	}
	// Cardinal stems ending in உ drop the vowel before the ordinal suffix;
	// accepting both the raw and suffixed spellings keeps matching tolerant
	// of transliteration variation in user input.
	for word, n := range tamilCardinals {
		stem := strings.TrimSuffix(word, "ு")
		for _, base := range []string{word, stem} {
			ords[base+"ாம்"] = n
			ords[base+"ாவது"] = n
			ords[base+"ஆம்"] = n
			ords[base+"ஆவது"] = n
		}
	}
	return ords
}()

// tamilDateKeywords are data-bearing Tamil words that mark a question as a
// real data query, checked ahead of any length heuristics.
var tamilDateKeywords = []string{
	"இன்று",   // today
	"நேற்று",  // yesterday
	"மாதம்",   // month
	"தேதி",    // date
	"மொத்தம்", // total
	"சராசரி",  // average
	"விற்பனை", // sales
	"எவ்வளவு", // how much
	"எத்தனை",  // how many
}

// englishOrdinalWords maps spelled-out English ordinals to day numbers, for
// dates like "the fourteenth of september" and clarification replies like
// "the second one".
var englishOrdinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"fifteenth": 15, "sixteenth": 16, "seventeenth": 17, "eighteenth": 18,
	"nineteenth": 19, "twentieth": 20, "twenty-first": 21,
	"twenty-second": 22, "twenty-third": 23, "twenty-fourth": 24,
	"twenty-fifth": 25, "twenty-sixth": 26, "twenty-seventh": 27,
	"twenty-eighth": 28, "twenty-ninth": 29, "thirtieth": 30,
	"thirty-first": 31,
}

// TamilMonth returns the canonical English month for a Tamil month word.
func TamilMonth(word string) (string, bool) {
	m, ok := tamilMonths[word]
	return m, ok
}

// TamilNumber resolves a Tamil cardinal or ordinal word to its value,
// or 0 when the word is not a number.
func TamilNumber(word string) int {
	if n, ok := tamilCardinals[word]; ok {
		return n
	}
	if n, ok := tamilOrdinals[word]; ok {
		return n
	}
	return 0
}

// OrdinalNumber resolves an English or Tamil ordinal word to its value,
// or 0 when the word is not an ordinal.
func OrdinalNumber(word string) int {
	lower := strings.ToLower(strings.TrimSpace(word))
	if n, ok := englishOrdinalWords[lower]; ok {
		return n
	}
	if n, ok := tamilOrdinals[lower]; ok {
		return n
	}
	return 0
}

// HasTamilDataKeyword reports whether the text carries a data-bearing Tamil
// keyword (month name, number word, or query vocabulary).
func HasTamilDataKeyword(text string) bool {
	for _, kw := range tamilDateKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for word := range tamilMonths {
		if strings.Contains(text, word) {
			return true
		}
	}
	for word := range tamilCardinals {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// ContainsTamil reports whether the text contains any Tamil script runes.
func ContainsTamil(text string) bool {
	for _, r := range text {
		if r >= 0x0B80 && r <= 0x0BFF {
			return true
		}
	}
	return false
}
