package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/analysis"
	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/convo"
	"github.com/tablechat-ai/tablechat/pkg/gate"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

func (p *Pipeline) answerComparison(ctx context.Context, session *convo.Context, in turnInput, qp *models.QueryPlan) (*Answer, error) {
	result, err := p.analyzer.Compare(ctx, qp)
	if err != nil {
		return p.analysisFailure(session, in, err)
	}

	text := fmt.Sprintf("%s: %.2f, %s: %.2f. %s %s by %.2f",
		result.LabelA, result.ValueA, result.LabelB, result.ValueB,
		result.DirectionGlyph, result.Direction, absFloat(result.Difference))
	if result.ValueA != 0 {
		text += fmt.Sprintf(" (%.1f%%)", absFloat(result.PercentageChange))
	}

	p.recordTurn(session, models.ConversationTurn{
		Question: in.question, ResolvedQuestion: in.resolved, Entities: in.entities,
		TableUsed: in.table, WasFollowup: in.wasFollowup, Confidence: in.confidence,
		ResultSummary: text,
		Elapsed:       time.Since(in.start).Seconds(),
		AnalysisData: &models.AnalysisData{
			Kind:      "comparison",
			Direction: result.Direction,
		},
	})
	return &Answer{Text: text, Table: in.table, Kind: gate.KindDataQuery}, nil
}

func (p *Pipeline) answerPercentage(ctx context.Context, session *convo.Context, in turnInput, qp *models.QueryPlan) (*Answer, error) {
	result, err := p.analyzer.Percentage(ctx, qp)
	if err != nil {
		return p.analysisFailure(session, in, err)
	}

	text := fmt.Sprintf("That is %.1f%% (%.2f of %.2f).",
		result.Percentage, result.Numerator, result.Denominator)
	p.recordTurn(session, models.ConversationTurn{
		Question: in.question, ResolvedQuestion: in.resolved, Entities: in.entities,
		TableUsed: in.table, WasFollowup: in.wasFollowup, Confidence: in.confidence,
		ResultSummary: text,
		Elapsed:       time.Since(in.start).Seconds(),
	})
	return &Answer{Text: text, Table: in.table, Kind: gate.KindDataQuery}, nil
}

func (p *Pipeline) answerTrend(ctx context.Context, session *convo.Context, in turnInput, qp *models.QueryPlan) (*Answer, error) {
	trend, err := p.analyzer.Trend(ctx, qp)
	if err != nil {
		return p.analysisFailure(session, in, err)
	}

	text := renderTrend(trend)
	p.recordTurn(session, models.ConversationTurn{
		Question: in.question, ResolvedQuestion: in.resolved, Entities: in.entities,
		TableUsed: in.table, WasFollowup: in.wasFollowup, Confidence: in.confidence,
		ResultSummary: text,
		Elapsed:       time.Since(in.start).Seconds(),
		AnalysisData: &models.AnalysisData{
			Kind:        "trend",
			DataPoints:  trend.DataPoints,
			Slope:       trend.Slope,
			Direction:   trend.Direction,
			Confidence:  trend.Confidence,
			PeriodUnit:  "month",
			MetricLabel: qp.Trend.ValueColumn,
		},
	})
	return &Answer{Text: text, Table: in.table, Kind: gate.KindDataQuery}, nil
}

// answerProjection handles forward-looking questions without the planner.
// handled is false when the profile lacks the columns to build a series, in
// which case the normal planning path proceeds.
func (p *Pipeline) answerProjection(ctx context.Context, session *convo.Context, in turnInput, req *models.ProjectionRequest) (*Answer, bool, error) {
	var points []models.DataPoint
	var trendConfidence string

	// A continuation follow-up right after a trend answer reuses that
	// turn's series instead of re-querying.
	prev := session.LastAnalysisData()
	if req.Type == models.ProjectionContinuation && prev != nil &&
		prev.Kind == "trend" && len(prev.DataPoints) >= 2 {
		points = prev.DataPoints
		trendConfidence = prev.Confidence
	} else {
		dateCols := p.store.GetDateColumns(in.table)
		metricCols := p.store.GetMetricColumns(in.table)
		if len(dateCols) == 0 || len(metricCols) == 0 {
			return nil, false, nil
		}

		valueColumn := metricCols[0]
		if in.entities != nil && in.entities.Metric != "" {
			if col, ok := p.store.GetColumnForTerm(in.table, in.entities.Metric); ok {
				valueColumn = col
			}
		}

		qp := &models.QueryPlan{
			QueryType: models.QueryTrend,
			Table:     in.table,
			Trend: &models.TrendSpec{
				DateColumn:   dateCols[0],
				ValueColumn:  valueColumn,
				Aggregation:  "SUM",
				AnalysisType: "direction",
			},
		}
		trend, err := p.analyzer.Trend(ctx, qp)
		if err != nil {
			answer, err := p.analysisFailure(session, in, err)
			return answer, true, err
		}
		if len(trend.DataPoints) < 2 {
			return p.fallbackAnswer(session, in.question,
				"I need at least two periods of data to project forward.", in.start), true, nil
		}
		points = trend.DataPoints
		trendConfidence = trend.Confidence
	}

	analysis.ResolvePeriodsAhead(req, points)
	projection := analysis.Project(points, trendConfidence, req)

	text := renderProjection(projection, req)
	p.recordTurn(session, models.ConversationTurn{
		Question: in.question, ResolvedQuestion: in.resolved, Entities: in.entities,
		TableUsed: in.table, WasFollowup: in.wasFollowup, Confidence: in.confidence,
		ResultSummary: text,
		Elapsed:       time.Since(in.start).Seconds(),
	})
	p.logger.Info("Projection answered",
		zap.String("method", projection.Method),
		zap.Int("periods_ahead", projection.PeriodsAhead))
	return &Answer{Text: text, Table: in.table, Kind: gate.KindDataQuery}, true, nil
}

// analysisFailure converts operator errors into either a surfaceable error
// or a graceful fallback, per the propagation policy.
func (p *Pipeline) analysisFailure(session *convo.Context, in turnInput, err error) (*Answer, error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindDataEmpty || kind == apperrors.KindSQLFailed {
		p.recordTurn(session, models.ConversationTurn{
			Question: in.question, ResolvedQuestion: in.resolved,
			TableUsed: in.table, ResultSummary: "analysis failed",
			Elapsed: time.Since(in.start).Seconds(),
		})
		return nil, err
	}
	p.logger.Warn("Analysis fell back", zap.Error(err))
	return p.fallbackAnswer(session, in.question,
		"I couldn't run that analysis on the data I have. "+p.schemaHint(), in.start), nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
