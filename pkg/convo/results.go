package convo

import (
	"fmt"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// resultValueQueryTypes are the query types whose winning row is worth
// remembering for later anaphora ("that category", "the top area").
var resultValueQueryTypes = map[models.QueryType]bool{
	models.QueryRank:          true,
	models.QueryExtremaLookup: true,
	models.QueryFilter:        true,
	models.QueryLookup:        true,
}

// dimensionHintWords marks columns worth capturing even without a profile.
var dimensionHintWords = []string{
	"state", "branch", "area", "zone", "city", "region", "pincode",
	"category", "product", "item", "name", "department", "mode",
}

// locationHintWords are column-name fragments that all resolve through the
// single "location" reference key ("that area", "that branch").
var locationHintWords = []string{
	"location", "area", "branch", "zone", "city", "region", "state",
	"pincode", "district",
}

// ExtractResultValues pulls the top row's dimensional and metric values out
// of a query result, keyed so follow-up references can find them: dimension
// columns store under the canonical reference keys (category, product,
// location, month), metrics under their lowercase column name. Returns nil
// when the query type does not produce a memorable row or the result is
// empty.
func ExtractResultValues(queryType models.QueryType, result *duck.Result, prof *models.TableProfile) map[string]string {
	if !resultValueQueryTypes[queryType] || result == nil || result.Empty() {
		return nil
	}

	row := result.Rows[0]
	values := map[string]string{}
	for i, col := range result.Columns {
		if i >= len(row) || row[i] == nil {
			continue
		}
		if !captureColumn(col, prof) {
			continue
		}
		values[resultKey(col, prof)] = fmt.Sprintf("%v", row[i])
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// resultKey picks the map key a captured column stores under. "Area" and
// "Branch_Name" both answer "that location", so location-ish columns share
// one key; a compound name like "Product_Category" is a category, since the
// values it holds are category labels.
func resultKey(col string, prof *models.TableProfile) string {
	lower := strings.ToLower(col)
	if prof != nil {
		if cp, ok := prof.Columns[col]; ok && cp.Role == models.RoleMetric {
			return lower
		}
	}
	for _, prefix := range []string{"sum_", "avg_", "count_", "max_", "min_"} {
		if strings.HasPrefix(lower, prefix) {
			return lower
		}
	}

	switch {
	case strings.Contains(lower, "category"):
		return "category"
	case strings.Contains(lower, "product"), strings.Contains(lower, "item"):
		return "product"
	case strings.Contains(lower, "month"):
		return "month"
	}
	for _, hint := range locationHintWords {
		if strings.Contains(lower, hint) {
			return "location"
		}
	}
	return lower
}

func captureColumn(col string, prof *models.TableProfile) bool {
	if prof != nil {
		if cp, ok := prof.Columns[col]; ok {
			switch cp.Role {
			case models.RoleDimension, models.RoleIdentifier, models.RoleMetric:
				return true
			}
			return false
		}
	}

	lower := strings.ToLower(col)
	for _, hint := range dimensionHintWords {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	// Aggregate aliases carry the metric value ("sum_Sales_Amount").
	for _, prefix := range []string{"sum_", "avg_", "count_", "max_", "min_"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
