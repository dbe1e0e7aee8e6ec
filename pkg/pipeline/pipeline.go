// Package pipeline wires the full question path: dialogue gate, translation,
// routing, planning, validation, compilation or analysis, and healed
// execution. One Ask call is one conversation turn.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/analysis"
	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/convo"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/gate"
	"github.com/tablechat-ai/tablechat/pkg/healer"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/plan"
	"github.com/tablechat-ai/tablechat/pkg/planner"
	"github.com/tablechat-ai/tablechat/pkg/profile"
	"github.com/tablechat-ai/tablechat/pkg/router"
	"github.com/tablechat-ai/tablechat/pkg/sqlgen"
	"github.com/tablechat-ai/tablechat/pkg/translate"
)

// Answer is one turn's user-facing result.
type Answer struct {
	Text  string       `json:"text"`
	Table string       `json:"table,omitempty"`
	SQL   string       `json:"sql,omitempty"`
	Rows  *duck.Result `json:"rows,omitempty"`
	Kind  gate.Kind    `json:"kind"`

	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Candidates         []string `json:"candidates,omitempty"`
}

// Pipeline orchestrates a turn end to end.
type Pipeline struct {
	gate       *gate.Gate
	extractor  *extract.Extractor
	router     router.Service
	planner    planner.Service
	validator  *plan.Validator
	healer     *healer.Healer
	analyzer   *analysis.Analyzer
	store      *profile.Store
	sessions   *convo.Manager
	translator translate.Translator
	explainer  Explainer
	logger     *zap.Logger
}

// Deps carries the pipeline's collaborators.
type Deps struct {
	Gate       *gate.Gate
	Extractor  *extract.Extractor
	Router     router.Service
	Planner    planner.Service
	Validator  *plan.Validator
	Healer     *healer.Healer
	Analyzer   *analysis.Analyzer
	Store      *profile.Store
	Sessions   *convo.Manager
	Translator translate.Translator
	Explainer  Explainer
}

func New(deps Deps, logger *zap.Logger) *Pipeline {
	if deps.Translator == nil {
		deps.Translator = translate.Passthrough{}
	}
	if deps.Explainer == nil {
		deps.Explainer = TemplateExplainer{}
	}
	return &Pipeline{
		gate:       deps.Gate,
		extractor:  deps.Extractor,
		router:     deps.Router,
		planner:    deps.Planner,
		validator:  deps.Validator,
		healer:     deps.Healer,
		analyzer:   deps.Analyzer,
		store:      deps.Store,
		sessions:   deps.Sessions,
		translator: deps.Translator,
		explainer:  deps.Explainer,
		logger:     logger.Named("pipeline"),
	}
}

// Ask answers one question for a session. Errors are returned only for the
// surfaceable kinds (ambiguous routing, terminal SQL failure, unrelaxable
// empty data); everything else resolves to a graceful textual answer.
func (p *Pipeline) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	session := p.sessions.Get(sessionID)
	start := time.Now()

	decision := p.gate.Classify(question, session)
	switch decision.Kind {
	case gate.KindReply, gate.KindSchemaInquiry:
		p.recordTurn(session, models.ConversationTurn{Question: question, ResultSummary: decision.Reply, Elapsed: time.Since(start).Seconds()})
		return &Answer{Text: decision.Reply, Kind: decision.Kind}, nil
	case gate.KindMemory:
		session.UserName = decision.UserName
		p.recordTurn(session, models.ConversationTurn{Question: question, ResultSummary: decision.Reply, Elapsed: time.Since(start).Seconds()})
		return &Answer{Text: decision.Reply, Kind: decision.Kind}, nil
	case gate.KindDateContext:
		session.DateHint = decision.DateHint
		p.recordTurn(session, models.ConversationTurn{Question: question, ResultSummary: decision.Reply, Elapsed: time.Since(start).Seconds()})
		return &Answer{Text: decision.Reply, Kind: decision.Kind}, nil
	case gate.KindClarification:
		answer, err := p.answerClarified(ctx, session, decision, start)
		if decision.IsTamil {
			return p.localizeAnswer(ctx, answer, err)
		}
		return answer, err
	}

	answer, err := p.answerData(ctx, session, question, start)
	if extract.ContainsTamil(question) {
		return p.localizeAnswer(ctx, answer, err)
	}
	return answer, err
}

// localizeAnswer renders the answer text in Tamil for Tamil turns.
// Translation is best-effort; the English text stands when it fails.
func (p *Pipeline) localizeAnswer(ctx context.Context, answer *Answer, err error) (*Answer, error) {
	if answer == nil || answer.Text == "" {
		return answer, err
	}
	if text, terr := p.translator.ToTamil(ctx, answer.Text); terr == nil && strings.TrimSpace(text) != "" {
		answer.Text = text
	}
	return answer, err
}

// answerClarified re-enters the data path bound to the chosen table,
// reusing the entities captured when the clarification was raised.
func (p *Pipeline) answerClarified(ctx context.Context, session *convo.Context, decision gate.Decision, start time.Time) (*Answer, error) {
	prof := p.store.Get(decision.Table)
	if prof == nil {
		return p.fallbackAnswer(session, decision.OriginalQuestion,
			fmt.Sprintf("I no longer have data for %s.", decision.Table), start), nil
	}
	ents := decision.Entities
	if ents == nil {
		ents = p.extractor.Extract(decision.OriginalQuestion)
	}
	return p.execute(ctx, session, turnInput{
		question:   decision.OriginalQuestion,
		resolved:   decision.OriginalQuestion,
		table:      decision.Table,
		entities:   ents,
		confidence: 1.0,
		start:      start,
	})
}

func (p *Pipeline) answerData(ctx context.Context, session *convo.Context, question string, start time.Time) (*Answer, error) {
	translated, _ := p.translator.ToEnglish(ctx, question)

	resolved := translated
	if values := session.LastResultValues(); values != nil {
		resolved = extract.ResolveReferences(translated, values)
	}

	var prev *models.Entities
	if session.ActiveEntities != nil {
		prev = session.ActiveEntities
	}

	routing, err := p.router.Route(ctx, resolved, prev)
	if err != nil {
		return p.fallbackAnswer(session, question,
			"I couldn't work out which table answers that. "+p.schemaHint(), start), nil
	}

	if routing.NeedsClarification && len(routing.Alternatives) >= 2 {
		return p.raiseClarification(session, question, translated, routing)
	}
	if routing.ShouldFallback() {
		return p.fallbackAnswer(session, question,
			"I couldn't find data matching that question. "+p.schemaHint(), start), nil
	}

	prof := p.store.Get(routing.Table)
	if prof == nil {
		return p.fallbackAnswer(session, question,
			fmt.Sprintf("I don't have a profile for %s yet.", routing.Table), start), nil
	}

	wasFollowup := p.extractor.IsFollowupQuestion(question)
	return p.execute(ctx, session, turnInput{
		question:    question,
		resolved:    resolved,
		table:       routing.Table,
		entities:    routing.Entities,
		confidence:  routing.Confidence,
		wasFollowup: wasFollowup,
		start:       start,
	})
}

type turnInput struct {
	question    string
	resolved    string
	table       string
	entities    *models.Entities
	confidence  float64
	wasFollowup bool
	start       time.Time
}

// execute plans, validates, and runs the query, then renders and records
// the answer.
func (p *Pipeline) execute(ctx context.Context, session *convo.Context, in turnInput) (*Answer, error) {
	prof := p.store.Get(in.table)

	// Forward-looking questions skip the planner: the series comes from a
	// deterministic trend query over the profile's date and metric columns.
	if req, ok := analysis.DetectProjection(in.resolved); ok {
		if answer, handled, err := p.answerProjection(ctx, session, in, req); handled {
			return answer, err
		}
	}

	qp, err := p.planner.Plan(ctx, in.resolved, prof, in.entities)
	if err != nil {
		p.logger.Warn("Planner unavailable", zap.Error(err))
		return p.fallbackAnswer(session, in.question,
			"I couldn't plan that question right now. Could you rephrase it more simply?", in.start), nil
	}
	qp.Table = in.table

	if err := p.validator.Validate(ctx, qp, prof); err != nil {
		p.logger.Warn("Plan rejected", zap.Error(err))
		return p.fallbackAnswer(session, in.question,
			"I couldn't map that question onto the data. "+p.schemaHint(), in.start), nil
	}

	switch qp.QueryType {
	case models.QueryComparison:
		return p.answerComparison(ctx, session, in, qp)
	case models.QueryPercentage:
		return p.answerPercentage(ctx, session, in, qp)
	case models.QueryTrend:
		return p.answerTrend(ctx, session, in, qp)
	}

	sql, err := sqlgen.Compile(qp)
	if err != nil {
		return p.fallbackAnswer(session, in.question,
			"That question needs an analysis I don't support yet.", in.start), nil
	}

	result, finalSQL, err := p.healer.ExecuteWithHealing(ctx, sql, qp)
	if err != nil {
		p.recordTurn(session, models.ConversationTurn{
			Question: in.question, ResolvedQuestion: in.resolved,
			TableUsed: in.table, SQL: sql, WasFollowup: in.wasFollowup,
			Confidence: in.confidence, ResultSummary: "query failed",
			Elapsed: time.Since(in.start).Seconds(),
		})
		return nil, err
	}
	if result.Empty() {
		p.recordTurn(session, models.ConversationTurn{
			Question: in.question, ResolvedQuestion: in.resolved,
			TableUsed: in.table, SQL: finalSQL, WasFollowup: in.wasFollowup,
			Confidence: in.confidence, ResultSummary: "no rows",
			Elapsed: time.Since(in.start).Seconds(),
		})
		return nil, apperrors.NewQueryError(apperrors.KindDataEmpty,
			fmt.Sprintf("no data found for: %s", in.question), nil)
	}

	text := p.explain(ctx, in.resolved, qp, result)
	p.logger.Info("Question answered",
		zap.String("table", in.table),
		zap.String("query_type", string(qp.QueryType)),
		zap.Int("rows", result.RowCount()),
		zap.Duration("elapsed", time.Since(in.start)))
	p.recordTurn(session, models.ConversationTurn{
		Question: in.question, ResolvedQuestion: in.resolved,
		Entities: in.entities, TableUsed: in.table, Filters: qp.Filters,
		SQL: finalSQL, WasFollowup: in.wasFollowup, Confidence: in.confidence,
		ResultSummary: summarize(result),
		ResultValues:  convo.ExtractResultValues(qp.QueryType, result, prof),
		Elapsed:       time.Since(in.start).Seconds(),
	})

	return &Answer{
		Text: text, Table: in.table, SQL: finalSQL, Rows: result,
		Kind: gate.KindDataQuery,
	}, nil
}

func (p *Pipeline) raiseClarification(session *convo.Context, question, translated string, routing *models.RoutingResult) (*Answer, error) {
	candidates := make([]string, 0, len(routing.Alternatives))
	for _, alt := range routing.Alternatives {
		candidates = append(candidates, alt.Table)
	}
	session.SetPending(&models.PendingClarification{
		OriginalQuestion:   question,
		TranslatedQuestion: translated,
		Candidates:         routing.Alternatives,
		Entities:           routing.Entities,
		IsTamil:            extract.ContainsTamil(question),
	})
	p.saveSession(session)

	var b strings.Builder
	b.WriteString("That could come from more than one table. Which did you mean?\n")
	for i, name := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return &Answer{
		Text:               strings.TrimRight(b.String(), "\n"),
		Kind:               gate.KindDataQuery,
		NeedsClarification: true,
		Candidates:         candidates,
	}, apperrors.NewQueryError(apperrors.KindRoutingAmbiguous,
		"multiple tables match; clarification needed", nil)
}

func (p *Pipeline) fallbackAnswer(session *convo.Context, question, text string, start time.Time) *Answer {
	p.recordTurn(session, models.ConversationTurn{
		Question: question, ResultSummary: text,
		Elapsed: time.Since(start).Seconds(),
	})
	return &Answer{Text: text, Kind: gate.KindDataQuery}
}

// schemaHint lists what the user could ask about instead.
func (p *Pipeline) schemaHint() string {
	names := p.store.Names()
	if len(names) == 0 {
		return "No tables are loaded yet."
	}
	return "You could ask about: " + strings.Join(names, ", ") + "."
}

func (p *Pipeline) recordTurn(session *convo.Context, turn models.ConversationTurn) {
	session.AddTurn(turn)
	p.saveSession(session)
}

func (p *Pipeline) saveSession(session *convo.Context) {
	if err := p.sessions.Save(session); err != nil {
		p.logger.Warn("Failed to persist session",
			zap.String("session_id", session.SessionID), zap.Error(err))
	}
}

func (p *Pipeline) explain(ctx context.Context, question string, qp *models.QueryPlan, result *duck.Result) string {
	text, err := p.explainer.Explain(ctx, question, qp, result)
	if err != nil || strings.TrimSpace(text) == "" {
		return TemplateExplainer{}.render(qp, result)
	}
	return text
}

// summarize produces the short per-turn result description stored in history.
func summarize(result *duck.Result) string {
	if result == nil || result.Empty() {
		return "no rows"
	}
	if result.RowCount() == 1 && len(result.Rows[0]) == 1 {
		return fmt.Sprintf("%s = %v", result.Columns[0], result.Rows[0][0])
	}
	return fmt.Sprintf("%d rows, columns: %s", result.RowCount(), strings.Join(result.Columns, ", "))
}
