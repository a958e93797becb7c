package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/visual"
)

type createAgentRequest struct {
	CellID    string       `json:"cell_id"`
	Source    string       `json:"source"`
	Detail    agent.Detail `json:"detail"`
	QuizCount *int         `json:"quiz_count"`
	Visual    *bool        `json:"visual"`
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decode(r, &req); err != nil {
		Error(w, err)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		Error(w, badRequest("source is required"))
		return
	}

	cfg := s.build
	if req.Detail != "" {
		cfg.Detail = req.Detail
	}
	if req.QuizCount != nil {
		cfg.QuizCount = *req.QuizCount
	}
	if req.Visual != nil {
		cfg.VisualEnabled = *req.Visual
	}
	if err := cfg.Validate(); err != nil {
		Error(w, badRequest("%v", err))
		return
	}

	cell := agent.NewCodeCell(req.CellID, req.Source)
	if a, err := s.lookup(r.Context(), cell.ID); err == nil {
		if a.Cell().Source != cell.Source {
			Error(w, badRequest("cell %s already exists with different source", cell.ID))
			return
		}
		JSON(w, http.StatusOK, newAgentView(a))
		return
	}

	v, err, _ := s.builds.Do(cell.ID, func() (any, error) {
		if a, ok := s.cached(cell.ID); ok {
			return a, nil
		}
		// The build outlives a cancelled request so that concurrent
		// callers waiting on the same cell still get the agent.
		a, err := s.builder.Build(context.WithoutCancel(r.Context()), cell, cfg)
		if err != nil {
			return nil, err
		}
		s.store(a)
		s.save(r.Context(), a)
		return a, nil
	})
	if err != nil {
		s.logger.Warn("agent build failed", "cell_id", cell.ID, "error", err)
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, newAgentView(v.(*agent.CellAgent)))
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	out := []agentView{}
	seen := make(map[string]bool)

	s.mu.RLock()
	for id, a := range s.cache {
		seen[id] = true
		out = append(out, newAgentView(a))
	}
	s.mu.RUnlock()

	if s.agents != nil {
		manifests, err := s.agents.ListAgents(r.Context())
		if err != nil {
			Error(w, err)
			return
		}
		for _, m := range manifests {
			if seen[m.CellID] {
				continue
			}
			out = append(out, newAgentView(s.restore(m)))
		}
	}
	JSON(w, http.StatusOK, out)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.lookup(r.Context(), chi.URLParam(r, "cellID"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, newAgentView(a))
}

// getVisual serves the agent's PNG, rendering it on first request.
func (s *Server) getVisual(w http.ResponseWriter, r *http.Request) {
	a, err := s.lookup(r.Context(), chi.URLParam(r, "cellID"))
	if err != nil {
		Error(w, err)
		return
	}
	had := a.HasVisual()
	img, err := s.builder.RenderVisual(r.Context(), a)
	if err != nil {
		Error(w, err)
		return
	}
	if !had {
		s.save(r.Context(), a)
	}
	if r.URL.Query().Get("format") == "gif" {
		if len(img.Animation) == 0 {
			Error(w, fmt.Errorf("%w: no animation for %s", agent.ErrVisualUnavailable, a.Cell().ID))
			return
		}
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(img.Animation)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(img.Data)
}

// lookup returns the agent for cellID from memory, falling back to the
// agent store.
func (s *Server) lookup(ctx context.Context, cellID string) (*agent.CellAgent, error) {
	if a, ok := s.cached(cellID); ok {
		return a, nil
	}
	if s.agents == nil {
		return nil, fmt.Errorf("agent %s: %w", cellID, registry.ErrAgentNotFound)
	}
	m, err := s.agents.LoadAgent(ctx, cellID)
	if err != nil {
		return nil, err
	}
	s.store(s.restore(m))
	a, _ := s.cached(cellID)
	return a, nil
}

// restore rebuilds an agent from its manifest. Facts are recomputed and
// a missing visual artifact only leaves the agent without a visual.
func (s *Server) restore(m agent.Manifest) *agent.CellAgent {
	cell := agent.CodeCell{ID: m.CellID, Source: m.Source}
	a := agent.FromManifest(m, s.builder.Inspect(cell))
	if m.VisualPath != "" {
		img, err := visual.Load(m.VisualPath)
		if err != nil {
			s.logger.Debug("visual artifact not restored", "cell_id", m.CellID, "error", err)
		} else {
			a.SetVisual(img)
		}
	}
	return a
}

// save persists a's manifest. Failure only costs a rebuild in a later
// process, so it is logged rather than returned.
func (s *Server) save(ctx context.Context, a *agent.CellAgent) {
	if s.agents == nil {
		return
	}
	if err := s.agents.SaveAgent(ctx, a); err != nil {
		s.logger.Warn("agent manifest not saved", "cell_id", a.Cell().ID, "error", err)
	}
}

func (s *Server) cached(cellID string) (*agent.CellAgent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.cache[cellID]
	return a, ok
}

// store caches a unless another agent for the same cell got there first.
func (s *Server) store(a *agent.CellAgent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[a.Cell().ID]; !ok {
		s.cache[a.Cell().ID] = a
	}
}
