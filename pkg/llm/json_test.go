package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromFencedResponse(t *testing.T) {
	response := "Here is the plan:\n```json\n{\"query_type\": \"metric\"}\n```\nLet me know."
	got, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"query_type": "metric"}`, got)
}

func TestExtractJSONStripsThinkTags(t *testing.T) {
	response := "<think>the user wants a total\nso a metric plan</think>{\"query_type\": \"metric\"}"
	got, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"query_type": "metric"}`, got)
}

func TestExtractJSONHandlesBracesInsideStrings(t *testing.T) {
	response := `prose {"filter": "value with } brace", "n": 1} trailing`
	got, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"filter": "value with } brace", "n": 1}`, got)
}

func TestExtractJSONPrefersObjectBeforeArray(t *testing.T) {
	response := `{"tables": ["a", "b"]}`
	got, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, response, got)
}

func TestExtractJSONRejectsProse(t *testing.T) {
	_, err := ExtractJSON("the answer is probably in the sales table")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestParseJSONResponse(t *testing.T) {
	type pick struct {
		Table string `json:"table"`
	}
	got, err := ParseJSONResponse[pick]("```json\n{\"table\": \"Pincode_Sales\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Pincode_Sales", got.Table)

	_, err = ParseJSONResponse[pick](`{"table": 42}`)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestCallJSONParsesMockResponse(t *testing.T) {
	type pick struct {
		Table string `json:"table"`
	}
	mock := &Mock{Responses: []string{`{"table": "Pincode_Sales"}`}}

	got, err := CallJSON[pick](context.Background(), mock, "route this", "system", 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Pincode_Sales", got.Table)
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, "route this", mock.Calls[0].Prompt)
}

func TestCallJSONClassifiesFailure(t *testing.T) {
	type pick struct{}
	mock := &Mock{Err: NewError(ErrorTypeAuth, "authentication failed", false, nil)}

	_, err := CallJSON[pick](context.Background(), mock, "p", "s", 0, time.Second)
	require.Error(t, err)
	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrorTypeAuth, llmErr.Type)
	assert.Len(t, mock.Calls, 1, "auth failures must not be retried")
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{errors.New("401 Unauthorized"), ErrorTypeAuth, false},
		{errors.New("model gpt-x not found"), ErrorTypeModel, false},
		{errors.New("404 page not found"), ErrorTypeEndpoint, false},
		{errors.New("context deadline exceeded"), ErrorTypeTimeout, true},
		{errors.New("dial tcp: connection refused"), ErrorTypeTransport, true},
		{errors.New("429 Too Many Requests: rate limit"), ErrorTypeTransport, true},
		{errors.New("503 Service Unavailable"), ErrorTypeTransport, true},
		{errors.New("something else"), ErrorTypeUnknown, false},
	}
	for _, tc := range cases {
		got := ClassifyError(tc.err)
		assert.Equal(t, tc.wantType, got.Type, tc.err.Error())
		assert.Equal(t, tc.retryable, got.IsRetryable(), tc.err.Error())
	}
}

func TestClassifyErrorPassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeMalformed, "bad json", false, nil)
	assert.Same(t, orig, ClassifyError(orig))
}
