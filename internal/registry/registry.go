// Package registry persists learner attempts and built agent manifests,
// and derives per-learner, per-cell state from attempt history.
package registry

import (
	"context"
	"errors"

	"github.com/abhisek/celltutor/internal/agent"
)

// ErrAgentNotFound is returned when no manifest exists for a cell.
var ErrAgentNotFound = errors.New("agent not found")

// Registry is the append-only attempt log.
type Registry interface {
	// Record stores attempt under idempotencyKey. Recording the same key
	// twice is a successful no-op, so callers may retry freely. Failures
	// wrap agent.ErrPersistenceFailed.
	Record(ctx context.Context, attempt agent.Attempt, idempotencyKey string) error

	// History returns the attempts of learnerID on cellID, oldest first.
	// Each call reads fresh from the backing store.
	History(ctx context.Context, learnerID, cellID string) ([]agent.Attempt, error)

	// Close releases the backing store.
	Close() error
}

// AgentStore persists built agents so later processes can reuse them.
type AgentStore interface {
	SaveAgent(ctx context.Context, a *agent.CellAgent) error

	// LoadAgent returns the manifest for cellID, or an error wrapping
	// ErrAgentNotFound.
	LoadAgent(ctx context.Context, cellID string) (agent.Manifest, error)

	ListAgents(ctx context.Context) ([]agent.Manifest, error)
}
