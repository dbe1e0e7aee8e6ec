package healer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

var (
	limitPattern     = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)
	exactLikePattern = regexp.MustCompile(`(?i)LIKE\s+'([^%'][^']*[^%'])'`)
	exactEqPattern   = regexp.MustCompile(`"([^"]+)"\s*=\s*'([^']+)'`)
)

// RelaxFilters loosens one thing per call, in order of least damage: grow
// the LIMIT, widen exact LIKE patterns, turn exact dimension matches into
// contains-matches, and finally drop the last AND condition. Returns the
// input unchanged when nothing is left to relax.
func RelaxFilters(sql string, prof *models.TableProfile) string {
	if out := growLimit(sql); out != sql {
		return out
	}
	if out := widenLike(sql); out != sql {
		return out
	}
	if out := exactToLike(sql, prof); out != sql {
		return out
	}
	return dropLastAnd(sql)
}

// growLimit multiplies LIMIT by 10, capped at 1000.
func growLimit(sql string) string {
	return limitPattern.ReplaceAllStringFunc(sql, func(m string) string {
		parts := limitPattern.FindStringSubmatch(m)
		n, _ := strconv.Atoi(parts[1])
		if n >= 1000 {
			return m
		}
		grown := n * 10
		if grown > 1000 {
			grown = 1000
		}
		return fmt.Sprintf("LIMIT %d", grown)
	})
}

// widenLike turns LIKE 'X' into LIKE '%X%' when the pattern has no
// wildcards yet.
func widenLike(sql string) string {
	return exactLikePattern.ReplaceAllStringFunc(sql, func(m string) string {
		parts := exactLikePattern.FindStringSubmatch(m)
		return fmt.Sprintf("LIKE '%%%s%%'", parts[1])
	})
}

// exactToLike converts exact text matches on dimension columns to
// contains-matches. Metric and date columns keep exact semantics.
func exactToLike(sql string, prof *models.TableProfile) string {
	if prof == nil {
		return sql
	}
	return exactEqPattern.ReplaceAllStringFunc(sql, func(m string) string {
		parts := exactEqPattern.FindStringSubmatch(m)
		col, val := parts[1], parts[2]
		name, ok := prof.ResolveColumn(col)
		if !ok || prof.Columns[name].Role != models.RoleDimension {
			return m
		}
		return fmt.Sprintf(`"%s" LIKE '%%%s%%'`, col, val)
	})
}

// dropLastAnd removes the last top-level AND condition from the WHERE
// clause. Parenthesized OR groups are never dropped; discarding one arm of
// a disjunction would silently change what the user asked.
func dropLastAnd(sql string) string {
	upper := strings.ToUpper(sql)
	whereIdx := strings.Index(upper, " WHERE ")
	if whereIdx < 0 {
		return sql
	}
	whereStart := whereIdx + len(" WHERE ")

	whereEnd := len(sql)
	for _, kw := range []string{" GROUP BY ", " ORDER BY ", " LIMIT "} {
		if i := strings.Index(upper[whereStart:], kw); i >= 0 && whereStart+i < whereEnd {
			whereEnd = whereStart + i
		}
	}
	where := sql[whereStart:whereEnd]

	idx := lastTopLevelAnd(where)
	if idx < 0 {
		return sql
	}
	tail := where[idx+len(" AND "):]
	if strings.Contains(strings.ToUpper(tail), " OR ") {
		return sql
	}
	return sql[:whereStart] + strings.TrimSpace(where[:idx]) + sql[whereEnd:]
}

// lastTopLevelAnd finds the last " AND " outside parentheses.
func lastTopLevelAnd(where string) int {
	depth := 0
	upper := strings.ToUpper(where)
	last := -1
	for i := 0; i < len(where); i++ {
		switch where[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(upper[i:], " AND ") {
			last = i
		}
	}
	return last
}
