package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient provides a controllable Client implementation for testing.
// Responses and errors are consumed in order; an error entry, when non-nil,
// takes precedence over the response at the same position.
type MockClient struct {
	mu            sync.Mutex
	responses     []CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int

	// Requests records every request seen, for assertions.
	Requests []CompletionRequest
}

// NewMockClient creates a mock client with predefined responses.
func NewMockClient(responses []CompletionResponse, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
	}
}

// NewMockClientWithContent creates a mock client that replies with the
// given strings, one per call.
func NewMockClientWithContent(contents ...string) *MockClient {
	responses := make([]CompletionResponse, len(contents))
	for i, c := range contents {
		responses[i] = CompletionResponse{Content: c, StopReason: "end_turn"}
	}
	return NewMockClient(responses, nil)
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return CompletionResponse{}, err
	}
	if m.errorIndex < len(m.errors) {
		m.errorIndex++
	}

	if m.responseIndex >= len(m.responses) {
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Stream returns a channel that delivers the next predefined response.
func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 2)
	go func() {
		defer close(ch)
		ch <- StreamChunk{Content: resp.Content}
		ch <- StreamChunk{Done: true}
	}()
	return ch, nil
}

// GetModelName returns a fixed mock model name.
func (m *MockClient) GetModelName() string {
	return "mock-model"
}

// CallCount returns how many completions have been requested.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
