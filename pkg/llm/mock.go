package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Client for tests. Responses are returned in order; when
// the script runs out the last response repeats. Set Err to fail every call.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	ModelName string

	// Calls records every prompt passed to Complete.
	Calls []MockCall

	next int
}

// MockCall captures one invocation.
type MockCall struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
}

// Complete returns the next scripted response.
func (m *Mock) Complete(_ context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Prompt: prompt, SystemMessage: systemMessage, Temperature: temperature})

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", NewError(ErrorTypeMalformed, "mock has no responses", false, nil)
	}
	i := m.next
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.next++
	return m.Responses[i], nil
}

// Model returns the mock model name.
func (m *Mock) Model() string {
	if m.ModelName == "" {
		return "mock"
	}
	return m.ModelName
}
