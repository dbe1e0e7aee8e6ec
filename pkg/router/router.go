// Package router picks the table a question should run against. Explicit
// references win outright; otherwise an LLM selects semantically with a
// rule-based scorer as the fallback.
package router

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/profile"
)

// EntityExtractor is the slice of the extractor the router needs.
type EntityExtractor interface {
	Extract(question string) *models.Entities
	IsFollowupQuestion(question string) bool
}

// Service routes questions to tables.
type Service interface {
	// Route resolves the target table for a question. prev carries the
	// previous turn's entities for follow-up merging; nil for a fresh turn.
	Route(ctx context.Context, question string, prev *models.Entities) (*models.RoutingResult, error)
}

type service struct {
	store     *profile.Store
	catalog   duck.Catalog
	extractor EntityExtractor
	llmClient llm.Client // nil disables semantic selection
	useLLM    bool
	timeout   time.Duration
	logger    *zap.Logger
}

func NewService(
	store *profile.Store,
	catalog duck.Catalog,
	extractor EntityExtractor,
	llmClient llm.Client,
	useLLM bool,
	timeout time.Duration,
	logger *zap.Logger,
) Service {
	return &service{
		store:     store,
		catalog:   catalog,
		extractor: extractor,
		llmClient: llmClient,
		useLLM:    useLLM && llmClient != nil,
		timeout:   timeout,
		logger:    logger.Named("router"),
	}
}

func (s *service) Route(ctx context.Context, question string, prev *models.Entities) (*models.RoutingResult, error) {
	ents := s.extractor.Extract(question)
	if prev != nil && s.extractor.IsFollowupQuestion(question) {
		ents = ents.Merge(prev)
	}

	live, err := liveTableIndex(ctx, s.catalog)
	if err != nil {
		return nil, err
	}

	if ents.ExplicitTable != "" {
		if table := s.resolveExplicit(ents.ExplicitTable, live); table != "" {
			s.logger.Info("Routed by explicit reference",
				zap.String("table", table))
			return &models.RoutingResult{
				Table:      table,
				Entities:   ents,
				Confidence: 1.0,
				Method:     "explicit",
			}, nil
		}
		s.logger.Debug("Explicit table reference did not resolve",
			zap.String("reference", ents.ExplicitTable))
	}

	if s.useLLM {
		if resp, ok := s.llmSelect(ctx, question, live); ok {
			result := &models.RoutingResult{
				Table:      resp.SelectedTable,
				Entities:   ents,
				Confidence: resp.Confidence,
				Method:     "llm",
				Reason:     resp.Reason,
			}
			if alt, ok := live[strings.ToLower(resp.Alternative)]; ok && alt != resp.SelectedTable {
				result.Alternatives = []models.ScoredTable{{Table: alt}}
			}
			s.logger.Info("Routed by LLM",
				zap.String("table", result.Table),
				zap.Float64("confidence", result.Confidence))
			return result, nil
		}
	}

	return s.routeByScoring(question, ents, live), nil
}

// resolveExplicit matches a user table reference against known profiles:
// exact, then substring, then word overlap of at least half the reference
// words. The match must also exist in the live catalog.
func (s *service) resolveExplicit(ref string, live map[string]string) string {
	norm := strings.ToLower(strings.ReplaceAll(ref, " ", "_"))

	var match string
	if name, ok := s.store.ResolveTable(norm); ok {
		match = name
	}
	if match == "" {
		for _, name := range s.store.Names() {
			lower := strings.ToLower(name)
			if strings.Contains(lower, norm) || strings.Contains(norm, lower) {
				match = name
				break
			}
		}
	}
	if match == "" {
		refWords := strings.Fields(strings.ToLower(ref))
		for _, name := range s.store.Names() {
			nameWords := toSet(splitName(name))
			overlap := 0
			for _, w := range refWords {
				if nameWords[w] {
					overlap++
				}
			}
			if len(refWords) > 0 && overlap*2 >= len(refWords) {
				match = name
				break
			}
		}
	}
	if match == "" {
		return ""
	}
	canonical, ok := live[strings.ToLower(match)]
	if !ok {
		return ""
	}
	return canonical
}

// routeByScoring runs the rule-based scorer and derives confidence,
// clarification state, and alternatives from the candidate list.
func (s *service) routeByScoring(question string, ents *models.Entities, live map[string]string) *models.RoutingResult {
	candidates := ScoreTables(question, ents, s.store.GetAll())

	// Catalog reconciliation: drop candidates whose table vanished, fix
	// casing to the catalog's.
	reconciled := candidates[:0]
	for _, c := range candidates {
		if canonical, ok := live[strings.ToLower(c.Table)]; ok {
			c.Table = canonical
			reconciled = append(reconciled, c)
		}
	}
	candidates = reconciled

	result := &models.RoutingResult{
		Entities: ents,
		Method:   "scoring",
	}
	if len(candidates) == 0 {
		s.logger.Warn("No routing candidates", zap.String("question", question))
		return result
	}

	result.Table = candidates[0].Table
	result.Confidence = confidence(candidates, ents.CrossTableIntent)
	result.NeedsClarification = needsClarification(candidates)
	if result.NeedsClarification {
		// The user picks from this list, so it must include the best
		// candidate, not just the runners-up.
		result.Alternatives = ClarificationOptions(candidates)
	} else if len(candidates) > 1 {
		result.Alternatives = candidates[1:]
		if len(result.Alternatives) > 4 {
			result.Alternatives = result.Alternatives[:4]
		}
	}

	s.logger.Info("Routed by scoring",
		zap.String("table", result.Table),
		zap.Int("score", candidates[0].Score),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("needs_clarification", result.NeedsClarification))
	return result
}
