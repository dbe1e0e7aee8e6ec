// Package planner owns the single LLM call that turns a question plus a
// routed table schema into a candidate query plan. The returned plan is
// untrusted; validation happens downstream.
package planner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Service produces candidate query plans.
type Service interface {
	// Plan asks the model for a query plan against the given table. The
	// result has not been validated.
	Plan(ctx context.Context, question string, p *models.TableProfile, ents *models.Entities) (*models.QueryPlan, error)
}

type service struct {
	client  llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewService(client llm.Client, timeout time.Duration, logger *zap.Logger) Service {
	return &service{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("planner"),
	}
}

func (s *service) Plan(ctx context.Context, question string, p *models.TableProfile, ents *models.Entities) (*models.QueryPlan, error) {
	prompt := buildPrompt(question, p, ents)

	plan, err := llm.CallJSON[models.QueryPlan](ctx, s.client, prompt, plannerSystemMessage, 0.1, s.timeout)
	if err != nil {
		// One extra attempt for malformed output with an explicit nudge;
		// transport and timeout errors have already been retried below us.
		if llm.IsMalformed(err) {
			s.logger.Warn("Planner returned malformed JSON, retrying once",
				zap.String("question", question))
			plan, err = llm.CallJSON[models.QueryPlan](ctx, s.client,
				prompt+"\nRespond with valid JSON only.", plannerSystemMessage, 0.0, s.timeout)
		}
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("Plan produced",
		zap.String("table", plan.Table),
		zap.String("query_type", string(plan.QueryType)))
	return &plan, nil
}
