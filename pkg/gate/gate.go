// Package gate classifies raw user text before the analytics pipeline runs.
// It exists to keep greetings, mic checks, and off-topic chatter away from
// the planner: every branch short-circuits with a templated reply, and only
// genuine data questions fall through.
package gate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/convo"
	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/profile"
)

// Kind is the gate's classification of one input.
type Kind string

const (
	KindReply         Kind = "reply"          // answered directly, pipeline skipped
	KindMemory        Kind = "memory"         // user shared a fact to remember
	KindSchemaInquiry Kind = "schema_inquiry" // answered from the profile store
	KindDateContext   Kind = "date_context"   // stored as a hint, not a query
	KindClarification Kind = "clarification"  // matched a pending candidate
	KindDataQuery     Kind = "data_query"     // proceed to the pipeline
)

// Decision is the gate's output for one turn.
type Decision struct {
	Kind  Kind
	Reply string

	// Memory capture.
	UserName string

	// Date-context hint, as stated by the user.
	DateHint string

	// Clarification match. OriginalQuestion is the question that triggered
	// the clarification; the pipeline re-enters with it bound to Table.
	// IsTamil carries the original question's language so the answer can be
	// rendered back in it.
	Table            string
	Entities         *models.Entities
	OriginalQuestion string
	IsTamil          bool
}

type rule struct {
	name    string
	pattern *regexp.Regexp
	reply   string
}

// Gate classifies user input ahead of the pipeline.
type Gate struct {
	store  *profile.Store
	logger *zap.Logger
}

func New(store *profile.Store, logger *zap.Logger) *Gate {
	return &Gate{store: store, logger: logger.Named("gate")}
}

// Classify runs the priority-ordered rule table. It never returns an error;
// unrecognized input becomes a data query attempt, and the pipeline's own
// fallbacks handle the rest.
func (g *Gate) Classify(question string, session *convo.Context) Decision {
	trimmed := strings.TrimSpace(question)
	lower := strings.ToLower(trimmed)

	if trimmed == "" {
		return Decision{Kind: KindReply, Reply: "I didn't catch that. What would you like to know about your data?"}
	}

	// Tamil data vocabulary wins over every short-text heuristic below.
	tamilData := extract.HasTamilDataKeyword(trimmed)

	if m := memoryPattern.FindStringSubmatch(trimmed); m != nil {
		name := strings.TrimSpace(m[2])
		return Decision{
			Kind:     KindMemory,
			UserName: name,
			Reply:    fmt.Sprintf("Nice to meet you, %s! Ask me anything about your data.", name),
		}
	}

	if !tamilData {
		for _, r := range smalltalkRules {
			if r.pattern.MatchString(lower) {
				g.logger.Debug("Gate handled input", zap.String("rule", r.name))
				return Decision{Kind: KindReply, Reply: r.reply}
			}
		}
	}

	if schemaInquiryPattern.MatchString(lower) {
		return Decision{Kind: KindSchemaInquiry, Reply: g.describeSchema(lower)}
	}

	if m := dateContextPattern.FindStringSubmatch(lower); m != nil {
		hint := strings.TrimSpace(m[2])
		return Decision{
			Kind:     KindDateContext,
			DateHint: hint,
			Reply:    fmt.Sprintf("Got it, I'll treat %s as today's date for this conversation.", hint),
		}
	}

	if session != nil && session.Pending != nil {
		original := session.Pending.OriginalQuestion
		if session.Pending.TranslatedQuestion != "" {
			original = session.Pending.TranslatedQuestion
		}
		wasTamil := session.Pending.IsTamil
		if table, ents, ok := session.MatchPending(trimmed); ok {
			return Decision{Kind: KindClarification, Table: table, Entities: ents, OriginalQuestion: original, IsTamil: wasTamil}
		}
	}

	return Decision{Kind: KindDataQuery}
}

// describeSchema formats the profile store directly; schema questions never
// reach SQL.
func (g *Gate) describeSchema(lower string) string {
	names := g.store.Names()
	if len(names) == 0 {
		return "No tables are loaded yet. Load a spreadsheet and I can describe it."
	}
	sort.Strings(names)

	// "sheet 2" or a named table gets the detailed view.
	if m := sheetNumberPattern.FindStringSubmatch(lower); m != nil {
		idx := 0
		fmt.Sscanf(m[1], "%d", &idx)
		if idx >= 1 && idx <= len(names) {
			return g.describeTable(names[idx-1])
		}
	}
	for _, name := range names {
		spaced := strings.ReplaceAll(strings.ToLower(name), "_", " ")
		if strings.Contains(lower, strings.ToLower(name)) || strings.Contains(lower, spaced) {
			return g.describeTable(name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I have %d tables loaded:\n", len(names))
	for i, name := range names {
		p := g.store.Get(name)
		if p != nil && p.SemanticSummary != "" {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, name, p.SemanticSummary)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *Gate) describeTable(name string) string {
	p := g.store.Get(name)
	if p == nil {
		return fmt.Sprintf("I know the table %s but have no profile for it yet.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d rows, %d columns.\n", name, p.RowCount, p.ColumnCount)
	if p.SemanticSummary != "" {
		b.WriteString(p.SemanticSummary + "\n")
	}
	cols := make([]string, 0, len(p.Columns))
	for col := range p.Columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	b.WriteString("Columns: " + strings.Join(cols, ", "))
	return b.String()
}
