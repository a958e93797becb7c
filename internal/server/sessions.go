package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/runtime"
)

type startSessionRequest struct {
	LearnerID string `json:"learner_id"`
}

type answerRequest struct {
	Answer         string `json:"answer"`
	IdempotencyKey string `json:"idempotency_key"`
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		Error(w, err)
		return
	}
	if strings.TrimSpace(req.LearnerID) == "" {
		Error(w, badRequest("learner_id is required"))
		return
	}
	a, err := s.lookup(r.Context(), chi.URLParam(r, "cellID"))
	if err != nil {
		Error(w, err)
		return
	}

	sess, res, err := s.runtime.Start(r.Context(), a, req.LearnerID)
	if sess == nil {
		Error(w, err)
		return
	}
	s.mu.Lock()
	s.sessions[sess.ID] = &sessionEntry{session: sess}
	s.mu.Unlock()

	// A failed first explanation still leaves a usable Idle session, so
	// the caller gets its ID along with the error.
	w.Header().Set("Location", "/sessions/"+sess.ID)
	if err != nil {
		writeError(w, err, sess.State().String())
		return
	}
	JSON(w, http.StatusCreated, newResultView(sess, res))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ context.Context, sess *runtime.Session) (runtime.Result, error) {
		return runtime.Result{State: sess.State(), Question: sess.Current()}, nil
	})
}

func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, sess *runtime.Session) (runtime.Result, error) {
		return s.runtime.Explain(ctx, sess)
	})
}

func (s *Server) requestVisual(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, sess *runtime.Session) (runtime.Result, error) {
		had := sess.Agent.HasVisual()
		res, err := s.runtime.RequestVisual(ctx, sess)
		if err == nil && !had {
			s.save(ctx, sess.Agent)
		}
		return res, err
	})
}

func (s *Server) startQuiz(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, sess *runtime.Session) (runtime.Result, error) {
		hadQuiz := sess.Agent.HasQuiz()
		res, err := s.runtime.StartQuiz(ctx, sess)
		if err == nil && !hadQuiz {
			s.save(ctx, sess.Agent)
		}
		return res, err
	})
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decode(r, &req); err != nil {
		Error(w, err)
		return
	}
	s.withSession(w, r, func(ctx context.Context, sess *runtime.Session) (runtime.Result, error) {
		return s.runtime.SubmitAnswer(ctx, sess, req.Answer, req.IdempotencyKey)
	})
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, sess *runtime.Session) (runtime.Result, error) {
		return s.runtime.RetryPending(ctx, sess)
	})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(r, &req); err != nil {
		Error(w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		Error(w, badRequest("question is required"))
		return
	}
	s.withSession(w, r, func(ctx context.Context, sess *runtime.Session) (runtime.Result, error) {
		return s.runtime.Ask(ctx, sess, req.Question)
	})
}

func (s *Server) abandon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.withSession(w, r, func(_ context.Context, sess *runtime.Session) (runtime.Result, error) {
		res, err := s.runtime.Abandon(sess)
		if err == nil {
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
		}
		return res, err
	})
}

// withSession runs op under the session's lock and writes its result.
// Errors carry the session's state so clients can tell where they stand.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, op func(context.Context, *runtime.Session) (runtime.Result, error)) {
	id := chi.URLParam(r, "sessionID")
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		Error(w, fmt.Errorf("session %s: %w", id, errUnknownSession))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := op(r.Context(), e.session)
	if err != nil {
		writeError(w, err, e.session.State().String())
		return
	}
	JSON(w, http.StatusOK, newResultView(e.session, res))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")
	cellID := chi.URLParam(r, "cellID")
	attempts, err := s.registry.History(r.Context(), learnerID, cellID)
	if err != nil {
		Error(w, err)
		return
	}
	if attempts == nil {
		attempts = []agent.Attempt{}
	}
	JSON(w, http.StatusOK, historyView{
		LearnerID: learnerID,
		CellID:    cellID,
		Attempts:  attempts,
		State:     registry.Derive(attempts, s.window),
	})
}
