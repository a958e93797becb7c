package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned reply for MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays canned responses for tests. Replies scripted for a
// purpose (see Script) are used first for calls carrying that purpose;
// everything else is served from the shared FIFO queue. Every request is
// recorded.
type MockProvider struct {
	mu        sync.Mutex
	queue     []MockResponse
	byPurpose map[string][]MockResponse

	Calls    []Request
	Purposes []string
}

// NewMockProvider creates a MockProvider whose shared queue holds responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{queue: responses, byPurpose: map[string][]MockResponse{}}
}

// Script queues responses for calls made with the given purpose.
func (m *MockProvider) Script(purpose string, responses ...MockResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPurpose[purpose] = append(m.byPurpose[purpose], responses...)
	return m
}

// AddResponse appends a response to the shared queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

// Generate pops the next response for the call. An exhausted script and
// queue yield ErrProviderUnavailable.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purpose := PurposeFrom(ctx)
	m.Calls = append(m.Calls, req)
	m.Purposes = append(m.Purposes, purpose)

	var next MockResponse
	switch {
	case len(m.byPurpose[purpose]) > 0:
		next = m.byPurpose[purpose][0]
		m.byPurpose[purpose] = m.byPurpose[purpose][1:]
	case len(m.queue) > 0:
		next = m.queue[0]
		m.queue = m.queue[1:]
	default:
		return nil, &ErrProviderUnavailable{}
	}

	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{
		Content:    next.Content,
		Usage:      next.Usage,
		Model:      "mock",
		StopReason: StopEnd,
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
