package models

import "time"

// ConversationTurn records one completed question/answer exchange.
type ConversationTurn struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	ResolvedQuestion string    `json:"resolved_question,omitempty"`
	Entities         *Entities `json:"entities,omitempty"`
	TableUsed        string    `json:"table_used,omitempty"`
	Filters          []Filter  `json:"filters,omitempty"`
	ResultSummary    string    `json:"result_summary,omitempty"`
	SQL              string    `json:"sql,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Elapsed          float64   `json:"elapsed_seconds"`
	WasFollowup      bool      `json:"was_followup"`
	Confidence       float64   `json:"confidence"`

	// ResultValues holds the winning dimensional row of the result, e.g.
	// {"category": "Sarees", "sales": "125000"}. It feeds anaphora
	// resolution ("that state", "top category") on later turns.
	ResultValues map[string]string `json:"result_values,omitempty"`

	// AnalysisData carries trend/comparison statistics for projection
	// follow-ups ("if this continues ...").
	AnalysisData *AnalysisData `json:"analysis_data,omitempty"`
}

// AnalysisData is the numeric residue of an advanced-operator turn that a
// projection follow-up can build on.
type AnalysisData struct {
	Kind        string      `json:"kind"` // trend | comparison | percentage
	DataPoints  []DataPoint `json:"data_points,omitempty"`
	Slope       float64     `json:"slope,omitempty"`
	Direction   string      `json:"direction,omitempty"`
	Confidence  string      `json:"confidence,omitempty"`
	PeriodUnit  string      `json:"period_unit,omitempty"` // month, day, quarter
	MetricLabel string      `json:"metric_label,omitempty"`
}

// PendingClarification is session state awaiting a user choice among
// candidate tables.
type PendingClarification struct {
	OriginalQuestion   string        `json:"original_question"`
	TranslatedQuestion string        `json:"translated_question,omitempty"`
	Candidates         []ScoredTable `json:"candidates"`
	Entities           *Entities     `json:"entities,omitempty"`
	IsTamil            bool          `json:"is_tamil"`
	CreatedAt          time.Time     `json:"created_at"`
}
