package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

func TestRuleBasedSummary(t *testing.T) {
	p := testProfile()
	p.TableName = "Pincode_Sales"

	s := RuleBasedSummary(p)
	assert.Contains(t, s, "Contains:")
	assert.Contains(t, s, "Use for:")
	assert.Contains(t, s, "Sales_Amount")
	assert.Contains(t, s, "august, september")
	assert.Contains(t, s, "row-level questions")
}

func TestRuleBasedSummaryEmptyProfile(t *testing.T) {
	s := RuleBasedSummary(&models.TableProfile{RowCount: 10, ColumnCount: 2})
	assert.Contains(t, s, "2 columns across 10 rows")
	assert.Contains(t, s, "general lookups")
}

func TestLLMSummaryUsesModelOutput(t *testing.T) {
	mock := &llm.Mock{Responses: []string{
		`{"summary": "Contains: daily sales by pincode. Use for: transaction questions."}`,
	}}
	p := testProfile()
	p.TableName = "Pincode_Sales"

	got := LLMSummary(context.Background(), mock, p, time.Second, zap.NewNop())
	assert.Equal(t, "Contains: daily sales by pincode. Use for: transaction questions.", got)
}

func TestLLMSummaryFallsBackOnBadOutput(t *testing.T) {
	mock := &llm.Mock{Responses: []string{`{"summary": "just one vague sentence"}`}}
	p := testProfile()
	p.TableName = "Pincode_Sales"

	got := LLMSummary(context.Background(), mock, p, time.Second, zap.NewNop())
	assert.Equal(t, RuleBasedSummary(p), got)
}

func TestLLMSummaryFallsBackOnError(t *testing.T) {
	mock := &llm.Mock{Err: llm.NewError(llm.ErrorTypeTimeout, "deadline", false, nil)}
	p := testProfile()

	got := LLMSummary(context.Background(), mock, p, time.Second, zap.NewNop())
	assert.Contains(t, got, "Contains:")
}
