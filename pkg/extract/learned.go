package extract

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// learnedLexicon holds dimension values harvested from table profiles.
// Values are grouped by slot (category, location, product) based on the
// column name they came from; anything else lands in custom, keyed by
// column name. Guarded by a mutex because profiling refreshes concurrently
// with question handling.
type learnedLexicon struct {
	mu         sync.RWMutex
	categories []string
	locations  []string
	products   []string
	custom     map[string][]string
}

func newLearnedLexicon() *learnedLexicon {
	return &learnedLexicon{custom: map[string][]string{}}
}

// RefreshFromProfiles rebuilds the learned lexicon from scratch. Values are
// lowercased, deduplicated, and sorted longest-first so that multi-word
// values ("chennai main") match before their prefixes ("chennai").
func (e *Extractor) RefreshFromProfiles(profiles map[string]*models.TableProfile) {
	catSet := map[string]bool{}
	locSet := map[string]bool{}
	prodSet := map[string]bool{}
	customSets := map[string]map[string]bool{}

	for _, p := range profiles {
		for colName, col := range p.Columns {
			if col.Role != models.RoleDimension {
				continue
			}
			slot := classifyDimensionColumn(colName)
			for _, v := range col.SampleValues {
				val := strings.ToLower(strings.TrimSpace(v))
				if val == "" || len(val) < 2 {
					continue
				}
				switch slot {
				case "location":
					locSet[val] = true
				case "category":
					if !metricDenySet[val] {
						catSet[val] = true
					}
				case "product":
					prodSet[val] = true
				default:
					key := strings.ToLower(colName)
					if customSets[key] == nil {
						customSets[key] = map[string]bool{}
					}
					customSets[key][val] = true
				}
			}
		}
	}

	custom := make(map[string][]string, len(customSets))
	for col, set := range customSets {
		custom[col] = sortedLongestFirst(set)
	}

	e.lexicon.mu.Lock()
	e.lexicon.categories = sortedLongestFirst(catSet)
	e.lexicon.locations = sortedLongestFirst(locSet)
	e.lexicon.products = sortedLongestFirst(prodSet)
	e.lexicon.custom = custom
	e.lexicon.mu.Unlock()

	e.logger.Info("Learned lexicon refreshed",
		zap.Int("categories", len(catSet)),
		zap.Int("locations", len(locSet)),
		zap.Int("products", len(prodSet)),
		zap.Int("custom_columns", len(custom)))
}

// classifyDimensionColumn routes a dimension column to a lexicon slot by
// its name.
func classifyDimensionColumn(colName string) string {
	lower := strings.ToLower(colName)
	for _, w := range locationColumnWords {
		if strings.Contains(lower, w) {
			return "location"
		}
	}
	for _, w := range categoryColumnWords {
		if strings.Contains(lower, w) {
			return "category"
		}
	}
	for _, w := range productColumnWords {
		if strings.Contains(lower, w) {
			return "product"
		}
	}
	return "custom"
}

// sortedLongestFirst turns a value set into a slice ordered by descending
// length, ties broken alphabetically for deterministic extraction.
func sortedLongestFirst(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// matchLongest returns the first lexicon value found in the question. The
// lexicon is ordered longest-first, so a hit is the longest possible match;
// ties at equal length go to the earlier question position.
func matchLongest(question string, values []string) string {
	best := ""
	bestPos := -1
	bestLen := 0
	for _, v := range values {
		if len(v) < bestLen {
			break
		}
		pos := strings.Index(question, v)
		if pos < 0 {
			continue
		}
		if len(v) > bestLen || pos < bestPos {
			best, bestPos, bestLen = v, pos, len(v)
		}
	}
	return best
}
