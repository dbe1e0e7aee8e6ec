package duck

import "strings"

// QuoteIdentifier double-quotes an identifier, escaping embedded quotes.
// Every user-origin identifier that reaches SQL goes through this.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral single-quotes a string literal, escaping embedded quotes.
func QuoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
