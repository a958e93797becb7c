package visual

import (
	"context"
	"sync"
)

// MockRenderer is a deterministic Renderer for tests. It returns Image (or
// a small placeholder) unless Err is set, and records every spec.
type MockRenderer struct {
	Image *Image
	Err   error

	mu    sync.Mutex
	Calls []Spec
}

func (m *MockRenderer) Render(_ context.Context, spec Spec) (*Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, spec)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Image != nil {
		return m.Image, nil
	}
	return &Image{Format: "png", Data: []byte("mock-png:" + spec.CellID)}, nil
}

// CallCount returns the number of Render calls made.
func (m *MockRenderer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
