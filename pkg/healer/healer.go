// Package healer executes SQL with bounded self-repair: classify the engine
// error, apply one fix, retry. Empty results for row queries get filter
// relaxation before the error budget is touched.
package healer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/profile"
)

// MaxRetries is the default error budget per execution.
const MaxRetries = 3

// maxRelaxations bounds the empty-result relaxation loop, which does not
// consume the error budget.
const maxRelaxations = 4

// Attempt is one entry in the execution history.
type Attempt struct {
	SQL   string `json:"sql"`
	Error string `json:"error,omitempty"`
	Class string `json:"class,omitempty"`
	Fix   string `json:"fix,omitempty"`
}

// ExecutionError is the terminal failure after the budget is spent. It
// carries the full attempt history for postmortem.
type ExecutionError struct {
	Attempts []Attempt
	Last     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query failed after %d attempts: %v", len(e.Attempts), e.Last)
}

func (e *ExecutionError) Unwrap() error { return e.Last }

// Healer executes plans' SQL against the catalog with healing.
type Healer struct {
	catalog    duck.Catalog
	store      *profile.Store
	maxRetries int
	logger     *zap.Logger
}

func New(catalog duck.Catalog, store *profile.Store, maxRetries int, logger *zap.Logger) *Healer {
	if maxRetries < 1 {
		maxRetries = MaxRetries
	}
	return &Healer{
		catalog:    catalog,
		store:      store,
		maxRetries: maxRetries,
		logger:     logger.Named("healer"),
	}
}

// ExecuteWithHealing runs the SQL, healing failures until success or the
// retry budget is spent. It returns the result and the SQL that finally ran.
func (h *Healer) ExecuteWithHealing(ctx context.Context, sql string, p *models.QueryPlan) (*duck.Result, string, error) {
	var (
		attempts    []Attempt
		lastErr     error
		prof        *models.TableProfile
		relaxations int
	)
	if h.store != nil {
		prof = h.store.Get(p.Table)
	}

	for tries := 0; tries < h.maxRetries; {
		result, err := h.catalog.Query(ctx, sql)
		if err == nil {
			if result.Empty() && h.shouldRelax(p, relaxations) {
				relaxed := RelaxFilters(sql, prof)
				if relaxed != sql {
					attempts = append(attempts, Attempt{SQL: sql, Fix: "relax_filters"})
					h.logger.Info("Empty result, relaxing filters",
						zap.String("sql", relaxed))
					sql = relaxed
					relaxations++
					continue
				}
			}
			return result, sql, nil
		}

		lastErr = err
		class := classifyDBError(err.Error())
		fixed, fixName := h.applyFix(ctx, class, sql, err.Error(), p, prof)
		attempts = append(attempts, Attempt{
			SQL:   sql,
			Error: err.Error(),
			Class: string(class),
			Fix:   fixName,
		})
		tries++

		h.logger.Warn("Query failed",
			zap.String("class", string(class)),
			zap.String("fix", fixName),
			zap.Int("attempt", tries),
			zap.Error(err))

		if fixed == "" || fixed == sql {
			break
		}
		sql = fixed
	}

	return nil, sql, apperrors.NewQueryError(apperrors.KindSQLFailed,
		"query could not be healed", &ExecutionError{Attempts: attempts, Last: lastErr})
}

// shouldRelax limits relaxation to row queries that actually filter.
func (h *Healer) shouldRelax(p *models.QueryPlan, relaxations int) bool {
	if relaxations >= maxRelaxations {
		return false
	}
	if p.QueryType != models.QueryLookup && p.QueryType != models.QueryFilter {
		return false
	}
	return len(p.Filters) > 0
}

// applyFix dispatches one fix for the classified error. A fix returning the
// input unchanged ends the healing loop.
func (h *Healer) applyFix(ctx context.Context, class errorClass, sql, errMsg string, p *models.QueryPlan, prof *models.TableProfile) (string, string) {
	switch class {
	case classColumnNotFound:
		return h.fixColumnNotFound(ctx, sql, errMsg, p, prof), "fix_column_not_found"
	case classTypeMismatch:
		return fixTypeMismatch(sql, prof), "fix_type_mismatch"
	case classTableNotFound:
		return h.fixTableNotFound(ctx, sql, p), "fix_table_not_found"
	case classSyntax:
		return fixSyntaxError(sql), "fix_syntax_error"
	case classAmbiguous:
		return fixAmbiguousColumn(sql, errMsg, p), "fix_ambiguous_column"
	}
	return sql, ""
}

// Execute runs SQL without healing, for callers that assemble their own
// statements and want plain errors.
func (h *Healer) Execute(ctx context.Context, sql string) (*duck.Result, error) {
	result, err := h.catalog.Query(ctx, sql)
	if err != nil {
		return nil, apperrors.NewQueryError(apperrors.KindSQLFailed,
			strings.Split(err.Error(), "\n")[0], err)
	}
	return result, nil
}
