package profile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// LexiconRefresher is notified after profiles change so learned dimension
// values can be re-derived. The entity extractor implements it.
type LexiconRefresher interface {
	RefreshFromProfiles(profiles map[string]*models.TableProfile)
}

// Service orchestrates profiling: fan out over tables, publish to the
// single-writer store, prune stale profiles, persist, refresh lexicons.
type Service interface {
	// Refresh profiles every table in the live catalog. Tables that vanished
	// from the catalog lose their profiles; unrelated profiles are untouched.
	Refresh(ctx context.Context) (*RefreshResult, error)

	// RefreshTables profiles only the named tables (partial update).
	RefreshTables(ctx context.Context, tables []string) (*RefreshResult, error)
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Profiled int
	Failed   []string
	Pruned   []string
}

type outcome struct {
	table   string
	profile *models.TableProfile
	err     error
}

type service struct {
	catalog   duck.Catalog
	store     *Store
	profiler  *Profiler
	refresher LexiconRefresher
	llmClient llm.Client // nil disables LLM summaries
	pool      *llm.WorkerPool
	workers   int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewService creates the profiling service. llmClient may be nil; summaries
// then stay rule-based. maxConcurrent bounds parallel LLM summary calls.
func NewService(
	catalog duck.Catalog,
	store *Store,
	profiler *Profiler,
	refresher LexiconRefresher,
	llmClient llm.Client,
	workers int,
	maxConcurrent int,
	llmTimeout time.Duration,
	logger *zap.Logger,
) Service {
	if workers < 1 {
		workers = 5
	}
	return &service{
		catalog:   catalog,
		store:     store,
		profiler:  profiler,
		refresher: refresher,
		llmClient: llmClient,
		pool:      llm.NewWorkerPool(maxConcurrent, logger),
		workers:   workers,
		timeout:   llmTimeout,
		logger:    logger.Named("profile-service"),
	}
}

func (s *service) Refresh(ctx context.Context) (*RefreshResult, error) {
	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	result, err := s.RefreshTables(ctx, tables)
	if err != nil {
		return nil, err
	}

	// Prune profiles whose tables are gone from the catalog.
	live := make(map[string]bool, len(tables))
	for _, t := range tables {
		live[t] = true
	}
	for _, name := range s.store.Names() {
		if !live[name] {
			s.store.Delete(name)
			result.Pruned = append(result.Pruned, name)
		}
	}
	if len(result.Pruned) > 0 {
		if err := s.store.Save(); err != nil {
			return nil, fmt.Errorf("save after prune: %w", err)
		}
	}
	return result, nil
}

func (s *service) RefreshTables(ctx context.Context, tables []string) (*RefreshResult, error) {
	s.logger.Info("Profiling tables",
		zap.Int("count", len(tables)),
		zap.Int("workers", s.workers))

	result := &RefreshResult{}
	if len(tables) == 0 {
		return result, nil
	}

	// Each worker profiles independently; only the store publish is shared,
	// and Store serializes that internally.
	outcomes := make([]outcome, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, table := range tables {
		g.Go(func() error {
			p, err := s.profiler.ProfileTable(gctx, table)
			outcomes[i] = outcome{table: table, profile: p, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.applyLLMSummaries(ctx, outcomes)

	for _, o := range outcomes {
		if o.err != nil {
			s.logger.Error("Profiling failed",
				zap.String("table", o.table),
				zap.Error(o.err))
			result.Failed = append(result.Failed, o.table)
			continue
		}
		s.store.Set(o.table, o.profile)
		result.Profiled++
	}

	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("save profiles: %w", err)
	}

	if s.refresher != nil {
		s.refresher.RefreshFromProfiles(s.store.GetAll())
	}

	s.logger.Info("Profiling complete",
		zap.Int("profiled", result.Profiled),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// applyLLMSummaries replaces rule-based summaries with model-written ones,
// fanned out through the bounded LLM worker pool. LLMSummary falls back to
// the rule-based text itself, so results are always usable.
func (s *service) applyLLMSummaries(ctx context.Context, outcomes []outcome) {
	if s.llmClient == nil {
		return
	}

	byTable := make(map[string]*models.TableProfile, len(outcomes))
	items := make([]llm.WorkItem[string], 0, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		p := o.profile
		byTable[o.table] = p
		items = append(items, llm.WorkItem[string]{
			ID: o.table,
			Execute: func(ctx context.Context) (string, error) {
				return LLMSummary(ctx, s.llmClient, p, s.timeout, s.logger), nil
			},
		})
	}

	for _, r := range llm.Process(ctx, s.pool, items, nil) {
		if r.Err == nil && r.Result != "" {
			byTable[r.ID].SemanticSummary = r.Result
		}
	}
}
