package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/sqlgen"
)

// Executor runs assembled SQL. The healer satisfies this.
type Executor interface {
	Execute(ctx context.Context, sql string) (*duck.Result, error)
}

// Analyzer runs the advanced operators against validated plans.
type Analyzer struct {
	exec   Executor
	logger *zap.Logger
}

func NewAnalyzer(exec Executor, logger *zap.Logger) *Analyzer {
	return &Analyzer{exec: exec, logger: logger.Named("analysis")}
}

// Compare executes both sides of a comparison plan and derives the delta,
// direction, and ratio.
func (a *Analyzer) Compare(ctx context.Context, p *models.QueryPlan) (*models.ComparisonResult, error) {
	spec := p.Comparison
	if spec == nil {
		return nil, apperrors.NewQueryError(apperrors.KindPlanInvalid, "comparison block missing", nil)
	}

	valueA, err := a.scalar(ctx, sqlgen.AggregateSQL(p.Table, spec.PeriodA))
	if err != nil {
		return nil, fmt.Errorf("period_a: %w", err)
	}
	valueB, err := a.scalar(ctx, sqlgen.AggregateSQL(p.Table, spec.PeriodB))
	if err != nil {
		return nil, fmt.Errorf("period_b: %w", err)
	}

	result := &models.ComparisonResult{
		LabelA:      spec.PeriodA.Label,
		LabelB:      spec.PeriodB.Label,
		ValueA:      valueA,
		ValueB:      valueB,
		Difference:  valueB - valueA,
		CompareType: spec.CompareType,
	}
	if valueA != 0 {
		result.PercentageChange = (valueB - valueA) / valueA * 100
		result.Ratio = valueB / valueA
	}
	switch {
	case valueB > valueA:
		result.Direction = "increased"
		result.DirectionGlyph = "↑"
	case valueB < valueA:
		result.Direction = "decreased"
		result.DirectionGlyph = "↓"
	default:
		result.Direction = "unchanged"
		result.DirectionGlyph = "→"
	}

	a.logger.Info("Comparison computed",
		zap.Float64("value_a", valueA),
		zap.Float64("value_b", valueB),
		zap.String("direction", result.Direction))
	return result, nil
}

// Percentage executes the numerator and denominator aggregates and divides.
func (a *Analyzer) Percentage(ctx context.Context, p *models.QueryPlan) (*models.PercentageResult, error) {
	spec := p.Percentage
	if spec == nil {
		return nil, apperrors.NewQueryError(apperrors.KindPlanInvalid, "percentage block missing", nil)
	}

	num, err := a.scalar(ctx, sqlgen.PercentagePartSQL(p.Table, spec.Numerator))
	if err != nil {
		return nil, fmt.Errorf("numerator: %w", err)
	}
	den, err := a.scalar(ctx, sqlgen.PercentagePartSQL(p.Table, spec.Denominator))
	if err != nil {
		return nil, fmt.Errorf("denominator: %w", err)
	}
	if den == 0 {
		return nil, apperrors.NewQueryError(apperrors.KindDataEmpty,
			"percentage denominator is zero", nil)
	}
	return &models.PercentageResult{
		Numerator:   num,
		Denominator: den,
		Percentage:  num / den * 100,
	}, nil
}

func (a *Analyzer) scalar(ctx context.Context, sql string) (float64, error) {
	result, err := a.exec.Execute(ctx, sql)
	if err != nil {
		return 0, err
	}
	if result.Empty() {
		return 0, apperrors.NewQueryError(apperrors.KindDataEmpty, "aggregate returned no rows", nil)
	}
	return result.ScalarFloat(), nil
}
