package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/store"
)

// SQLite is a durable Registry and AgentStore backed by the store package.
type SQLite struct {
	st        *store.Store
	attempts  store.AttemptRepo
	manifests store.ManifestRepo
	logger    *slog.Logger
}

// NewSQLite wraps an open store. Close closes the store.
func NewSQLite(st *store.Store, logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLite{
		st:        st,
		attempts:  st.AttemptRepo(),
		manifests: st.ManifestRepo(),
		logger:    logger.With("component", "registry"),
	}
}

// OpenSQLite opens the database at dsn and returns a registry owning it.
func OpenSQLite(dsn string, logger *slog.Logger) (*SQLite, error) {
	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", agent.ErrPersistenceFailed, err)
	}
	return NewSQLite(st, logger), nil
}

// Store returns the underlying store.
func (r *SQLite) Store() *store.Store {
	return r.st
}

func (r *SQLite) Record(ctx context.Context, attempt agent.Attempt, idempotencyKey string) error {
	written, err := r.attempts.Append(ctx, store.AttemptRecord{
		IdempotencyKey: idempotencyKey,
		LearnerID:      attempt.LearnerID,
		CellID:         attempt.CellID,
		QuestionID:     attempt.QuestionID,
		Answer:         attempt.Answer,
		Correct:        attempt.Correct,
		Tier:           attempt.Tier.String(),
		Timestamp:      attempt.Timestamp,
	})
	if err != nil {
		r.logger.Warn("record attempt failed",
			"learner_id", attempt.LearnerID,
			"cell_id", attempt.CellID,
			"busy", store.IsBusy(err),
			"error", err,
		)
		return fmt.Errorf("%w: %w", agent.ErrPersistenceFailed, err)
	}
	if !written {
		r.logger.Debug("duplicate attempt ignored", "idempotency_key", idempotencyKey)
	}
	return nil
}

func (r *SQLite) History(ctx context.Context, learnerID, cellID string) ([]agent.Attempt, error) {
	recs, err := r.attempts.ForLearnerCell(ctx, learnerID, cellID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", agent.ErrPersistenceFailed, err)
	}

	out := make([]agent.Attempt, 0, len(recs))
	for _, rec := range recs {
		tier, err := agent.ParseTier(rec.Tier)
		if err != nil {
			return nil, fmt.Errorf("attempt %d: %w", rec.Sequence, err)
		}
		out = append(out, agent.Attempt{
			LearnerID:  rec.LearnerID,
			CellID:     rec.CellID,
			QuestionID: rec.QuestionID,
			Answer:     rec.Answer,
			Correct:    rec.Correct,
			Tier:       tier,
			Timestamp:  rec.Timestamp,
			Sequence:   rec.Sequence,
		})
	}
	return out, nil
}

// Learners lists learners with history on cellID.
func (r *SQLite) Learners(ctx context.Context, cellID string) ([]string, error) {
	return r.attempts.Learners(ctx, cellID)
}

func (r *SQLite) Close() error {
	return r.st.Close()
}

func (r *SQLite) SaveAgent(ctx context.Context, a *agent.CellAgent) error {
	m := a.Manifest()
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest %s: %w", m.CellID, err)
	}
	return r.manifests.Save(ctx, store.ManifestRecord{
		CellID: m.CellID,
		Detail: string(m.Detail),
		Data:   data,
	})
}

func (r *SQLite) LoadAgent(ctx context.Context, cellID string) (agent.Manifest, error) {
	rec, err := r.manifests.Load(ctx, cellID)
	if errors.Is(err, store.ErrNotFound) {
		return agent.Manifest{}, fmt.Errorf("agent %s: %w", cellID, ErrAgentNotFound)
	}
	if err != nil {
		return agent.Manifest{}, err
	}
	return decodeManifest(*rec)
}

func (r *SQLite) ListAgents(ctx context.Context) ([]agent.Manifest, error) {
	recs, err := r.manifests.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]agent.Manifest, 0, len(recs))
	for _, rec := range recs {
		m, err := decodeManifest(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeManifest(rec store.ManifestRecord) (agent.Manifest, error) {
	var m agent.Manifest
	if err := json.Unmarshal(rec.Data, &m); err != nil {
		return agent.Manifest{}, fmt.Errorf("decode manifest %s: %w", rec.CellID, err)
	}
	return m, nil
}
