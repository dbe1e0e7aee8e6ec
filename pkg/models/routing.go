package models

// ScoredTable is one routing candidate with its rule-based score.
type ScoredTable struct {
	Table string `json:"table"`
	Score int    `json:"score"`
}

// RoutingResult is the outcome of table routing for one question.
type RoutingResult struct {
	Table        string        `json:"table,omitempty"`
	Entities     *Entities     `json:"entities"`
	Confidence   float64       `json:"confidence"`
	Alternatives []ScoredTable `json:"alternatives,omitempty"`

	// NeedsClarification is set only for genuine ambiguity between
	// closely-scored candidates, not whenever confidence is imperfect.
	NeedsClarification bool `json:"needs_clarification"`

	// Method records how the table was chosen: explicit, llm, or scoring.
	Method string `json:"method,omitempty"`

	// Reason is the LLM's stated selection rationale, when available.
	Reason string `json:"reason,omitempty"`
}

// IsConfident reports whether the routing cleared the confidence bar.
func (r *RoutingResult) IsConfident() bool {
	return r.Table != "" && r.Confidence >= 0.6
}

// ShouldFallback reports whether the caller should abandon routed execution.
func (r *RoutingResult) ShouldFallback() bool {
	return r.Table == "" || r.Confidence < 0.3
}
