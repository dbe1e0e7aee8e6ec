package healer

import "strings"

// errorClass buckets a database error for fix selection.
type errorClass string

const (
	classColumnNotFound errorClass = "column_not_found"
	classTypeMismatch   errorClass = "type_mismatch"
	classTableNotFound  errorClass = "table_not_found"
	classSyntax         errorClass = "syntax"
	classAmbiguous      errorClass = "ambiguous_column"
	classUnknown        errorClass = "unknown"
)

// classifyDBError buckets an engine error by substring. Order matters:
// ambiguous and table errors both mention "column"/"not found", so the more
// specific checks run first.
func classifyDBError(msg string) errorClass {
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "ambiguous"):
		return classAmbiguous

	case strings.Contains(lower, "table") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return classTableNotFound

	case strings.Contains(lower, "column") || strings.Contains(lower, "binder") ||
		strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "no column"):
		return classColumnNotFound

	case strings.Contains(lower, "cast") || strings.Contains(lower, "type") ||
		strings.Contains(lower, "conversion") || strings.Contains(lower, "cannot compare"):
		return classTypeMismatch

	case strings.Contains(lower, "syntax") || strings.Contains(lower, "parse"):
		return classSyntax
	}
	return classUnknown
}
