package healer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/plan"
)

// missingColumnPatterns extract the offending column name from engine error
// text, most specific first.
var missingColumnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Rr]eferenced column "([^"]+)"`),
	regexp.MustCompile(`[Cc]olumn "([^"]+)"`),
	regexp.MustCompile(`[Cc]olumn with name ([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`"([^"]+)" not found`),
}

func extractMissingColumn(msg string) string {
	for _, pat := range missingColumnPatterns {
		if m := pat.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}

// fixColumnNotFound replaces the missing column reference with the closest
// real column: exact case-insensitive, then synonym, then substring, then
// fuzzy ≥0.75. prof may be nil; the live DESCRIBE is the fallback source.
func (h *Healer) fixColumnNotFound(ctx context.Context, sql, errMsg string, p *models.QueryPlan, prof *models.TableProfile) string {
	bad := extractMissingColumn(errMsg)
	if bad == "" {
		return sql
	}

	var candidates []string
	if prof != nil {
		for name := range prof.Columns {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		described, err := h.catalog.Describe(ctx, p.Table)
		if err != nil {
			return sql
		}
		for _, c := range described {
			candidates = append(candidates, c.Name)
		}
	}

	replacement := resolveColumnName(bad, prof, candidates)
	if replacement == "" || strings.EqualFold(replacement, bad) {
		return sql
	}
	return replaceIdentifier(sql, bad, replacement)
}

func resolveColumnName(bad string, prof *models.TableProfile, candidates []string) string {
	lower := strings.ToLower(bad)
	for _, c := range candidates {
		if strings.EqualFold(c, bad) {
			return c
		}
	}
	if prof != nil {
		if cols, ok := prof.SynonymMap[lower]; ok && len(cols) > 0 {
			return cols[0]
		}
	}
	for _, c := range candidates {
		cl := strings.ToLower(c)
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return c
		}
	}
	best, bestScore := "", 0.0
	for _, c := range candidates {
		if s := plan.Similarity(lower, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore >= 0.75 {
		return best
	}
	return ""
}

// replaceIdentifier rewrites every reference to an identifier, quoted or
// bare, respecting word boundaries.
func replaceIdentifier(sql, from, to string) string {
	quoted := regexp.MustCompile(`"` + regexp.QuoteMeta(from) + `"`)
	out := quoted.ReplaceAllString(sql, duck.QuoteIdentifier(to))
	bare := regexp.MustCompile(`\b` + regexp.QuoteMeta(from) + `\b`)
	return bare.ReplaceAllString(out, duck.QuoteIdentifier(to))
}

// comparisonPattern matches "col" op 'value' triples.
var comparisonPattern = regexp.MustCompile(`"([^"]+)"\s*(=|!=|>=|<=|>|<)\s*'([^']*)'`)

// fixTypeMismatch runs two passes. First: numeric-looking quoted values
// compared against metric columns lose their quotes. Second, only when the
// first changed nothing: the compared column is wrapped in TRY_CAST to
// VARCHAR so text comparison succeeds. Existing CASTs to numeric types are
// softened to TRY_CAST either way.
func fixTypeMismatch(sql string, prof *models.TableProfile) string {
	out := comparisonPattern.ReplaceAllStringFunc(sql, func(m string) string {
		parts := comparisonPattern.FindStringSubmatch(m)
		col, op, val := parts[1], parts[2], parts[3]
		if !isMetricColumn(prof, col) || !isNumericLiteral(val) {
			return m
		}
		return fmt.Sprintf(`"%s" %s %s`, col, op, val)
	})

	if out == sql {
		out = comparisonPattern.ReplaceAllStringFunc(sql, func(m string) string {
			parts := comparisonPattern.FindStringSubmatch(m)
			col, op, val := parts[1], parts[2], parts[3]
			return fmt.Sprintf(`TRY_CAST("%s" AS VARCHAR) %s '%s'`, col, op, val)
		})
	}

	castPattern := regexp.MustCompile(`(?i)\bCAST\(([^)]+) AS (INTEGER|BIGINT|DOUBLE|DECIMAL[^)]*|FLOAT)\)`)
	out = castPattern.ReplaceAllString(out, "TRY_CAST($1 AS $2)")
	return out
}

func isMetricColumn(prof *models.TableProfile, col string) bool {
	if prof == nil {
		return false
	}
	name, ok := prof.ResolveColumn(col)
	if !ok {
		return false
	}
	return prof.Columns[name].Role == models.RoleMetric
}

var numericLiteral = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func isNumericLiteral(s string) bool {
	return numericLiteral.MatchString(strings.TrimSpace(s))
}

// fixTableNotFound swaps the plan's table for the closest live table name:
// case-insensitive, then substring, then ≥50% word overlap.
func (h *Healer) fixTableNotFound(ctx context.Context, sql string, p *models.QueryPlan) string {
	tables, err := h.catalog.ListTables(ctx)
	if err != nil {
		return sql
	}
	bad := p.Table
	badLower := strings.ToLower(bad)

	match := ""
	for _, t := range tables {
		if strings.EqualFold(t, bad) {
			match = t
			break
		}
	}
	if match == "" {
		for _, t := range tables {
			tl := strings.ToLower(t)
			if strings.Contains(tl, badLower) || strings.Contains(badLower, tl) {
				match = t
				break
			}
		}
	}
	if match == "" {
		badWords := splitWords(badLower)
		for _, t := range tables {
			words := toWordSet(strings.ToLower(t))
			overlap := 0
			for _, w := range badWords {
				if words[w] {
					overlap++
				}
			}
			if len(badWords) > 0 && overlap*2 >= len(badWords) {
				match = t
				break
			}
		}
	}
	if match == "" || match == bad {
		return sql
	}
	p.Table = match
	return replaceIdentifier(sql, bad, match)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' || r == '-' })
}

func toWordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range splitWords(s) {
		set[w] = true
	}
	return set
}

var (
	doubleQuotedLiteral = regexp.MustCompile(`(=|!=|>=|<=|>|<|LIKE)\s*"([^"]*)"`)
	eqWildcard          = regexp.MustCompile(`=\s*'(%[^']*|[^']*%)'`)
	bareSpacedTable     = regexp.MustCompile(`(?i)\bFROM\s+([A-Za-z_][A-Za-z0-9_]*(?: [A-Za-z_][A-Za-z0-9_]*)+)\s*(WHERE|GROUP|ORDER|LIMIT|$)`)
)

// fixSyntaxError repairs the common generation slips: double-quoted string
// literals, unquoted table names containing spaces, and equality against a
// wildcard pattern.
func fixSyntaxError(sql string) string {
	out := doubleQuotedLiteral.ReplaceAllStringFunc(sql, func(m string) string {
		parts := doubleQuotedLiteral.FindStringSubmatch(m)
		return parts[1] + " " + duck.QuoteLiteral(parts[2])
	})
	out = bareSpacedTable.ReplaceAllStringFunc(out, func(m string) string {
		parts := bareSpacedTable.FindStringSubmatch(m)
		return "FROM " + duck.QuoteIdentifier(parts[1]) + " " + parts[2]
	})
	out = eqWildcard.ReplaceAllString(out, "LIKE '$1'")
	return out
}

var ambiguousColumnPattern = regexp.MustCompile(`[Aa]mbiguous.*?"([^"]+)"`)

// fixAmbiguousColumn qualifies the offending column with the plan's table.
func fixAmbiguousColumn(sql, errMsg string, p *models.QueryPlan) string {
	m := ambiguousColumnPattern.FindStringSubmatch(errMsg)
	if m == nil {
		return sql
	}
	col := m[1]
	qualified := fmt.Sprintf(`%s.%s`, duck.QuoteIdentifier(p.Table), duck.QuoteIdentifier(col))
	quoted := regexp.MustCompile(`"` + regexp.QuoteMeta(col) + `"`)
	return quoted.ReplaceAllString(sql, qualified)
}
