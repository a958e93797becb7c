package registry

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/celltutor/internal/agent"
)

// Memory is an in-process Registry and AgentStore. It is not durable and
// is meant for tests, demos, and single-run CLI sessions.
type Memory struct {
	mu        sync.Mutex
	seq       int64
	keys      map[string]struct{}
	attempts  map[cellKey][]agent.Attempt
	manifests map[string]agent.Manifest
	closed    bool

	// FailRecord, when set, is consulted before each Record. A non-nil
	// return aborts the write and surfaces as a persistence failure.
	FailRecord func(attempt agent.Attempt, idempotencyKey string) error
}

type cellKey struct {
	learnerID string
	cellID    string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		keys:      map[string]struct{}{},
		attempts:  map[cellKey][]agent.Attempt{},
		manifests: map[string]agent.Manifest{},
	}
}

func (m *Memory) Record(_ context.Context, attempt agent.Attempt, idempotencyKey string) error {
	if idempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", agent.ErrPersistenceFailed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: registry closed", agent.ErrPersistenceFailed)
	}
	if _, dup := m.keys[idempotencyKey]; dup {
		return nil
	}
	if m.FailRecord != nil {
		if err := m.FailRecord(attempt, idempotencyKey); err != nil {
			return fmt.Errorf("%w: %w", agent.ErrPersistenceFailed, err)
		}
	}

	m.seq++
	attempt.Sequence = m.seq
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now().UTC()
	}
	k := cellKey{attempt.LearnerID, attempt.CellID}
	m.attempts[k] = append(m.attempts[k], attempt)
	m.keys[idempotencyKey] = struct{}{}
	return nil
}

func (m *Memory) History(_ context.Context, learnerID, cellID string) ([]agent.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("%w: registry closed", agent.ErrPersistenceFailed)
	}
	return slices.Clone(m.attempts[cellKey{learnerID, cellID}]), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) SaveAgent(_ context.Context, a *agent.CellAgent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[a.Cell().ID] = a.Manifest()
	return nil
}

func (m *Memory) LoadAgent(_ context.Context, cellID string) (agent.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	man, ok := m.manifests[cellID]
	if !ok {
		return agent.Manifest{}, fmt.Errorf("agent %s: %w", cellID, ErrAgentNotFound)
	}
	return man, nil
}

func (m *Memory) ListAgents(_ context.Context) ([]agent.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]agent.Manifest, 0, len(m.manifests))
	for _, man := range m.manifests {
		out = append(out, man)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CellID < out[j].CellID })
	return out, nil
}
