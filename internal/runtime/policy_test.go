package runtime

import (
	"testing"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/registry"
)

func TestTargetTier(t *testing.T) {
	tests := []struct {
		name string
		st   registry.LearnerCellState
		want agent.Tier
	}{
		{"no history", registry.LearnerCellState{}, agent.TierMedium},
		{"perfect window raises", registry.LearnerCellState{Attempts: 2, LastTier: agent.TierMedium, RecentPassRate: 1, RecentCount: 2}, agent.TierHard},
		{"perfect window capped", registry.LearnerCellState{Attempts: 2, LastTier: agent.TierHard, RecentPassRate: 1, RecentCount: 2}, agent.TierHard},
		{"zero lowers", registry.LearnerCellState{Attempts: 1, LastTier: agent.TierMedium, RecentCount: 1}, agent.TierEasy},
		{"zero floored", registry.LearnerCellState{Attempts: 1, LastTier: agent.TierEasy, RecentCount: 1}, agent.TierEasy},
		{"rising raises", registry.LearnerCellState{Attempts: 6, LastTier: agent.TierEasy, RecentPassRate: 0.67, RecentCount: 3, PreviousPassRate: 0.33, PreviousCount: 3}, agent.TierMedium},
		{"falling lowers", registry.LearnerCellState{Attempts: 6, LastTier: agent.TierHard, RecentPassRate: 0.33, RecentCount: 3, PreviousPassRate: 0.67, PreviousCount: 3}, agent.TierMedium},
		{"flat holds", registry.LearnerCellState{Attempts: 6, LastTier: agent.TierMedium, RecentPassRate: 0.67, RecentCount: 3, PreviousPassRate: 0.67, PreviousCount: 3}, agent.TierMedium},
		{"no previous window holds", registry.LearnerCellState{Attempts: 2, LastTier: agent.TierMedium, RecentPassRate: 0.5, RecentCount: 2}, agent.TierMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TargetTier(tt.st); got != tt.want {
				t.Errorf("TargetTier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTargetTier_FromDerivedHistory(t *testing.T) {
	var history []agent.Attempt
	for _, correct := range []bool{false, false, true, true, true, false} {
		history = append(history, agent.Attempt{Correct: correct, Tier: agent.TierMedium})
	}
	// previous window 1/3, recent window 2/3: rising.
	st := registry.Derive(history, 3)
	if got := TargetTier(st); got != agent.TierHard {
		t.Errorf("TargetTier() = %v, want hard", got)
	}
}

func TestClampTier(t *testing.T) {
	tests := []struct {
		name      string
		target    agent.Tier
		available []agent.Tier
		want      agent.Tier
		ok        bool
	}{
		{"exact", agent.TierMedium, []agent.Tier{agent.TierEasy, agent.TierMedium}, agent.TierMedium, true},
		{"nearest", agent.TierHard, []agent.Tier{agent.TierEasy, agent.TierMedium}, agent.TierMedium, true},
		{"tie prefers lower", agent.TierMedium, []agent.Tier{agent.TierHard, agent.TierEasy}, agent.TierEasy, true},
		{"only option", agent.TierEasy, []agent.Tier{agent.TierHard}, agent.TierHard, true},
		{"empty", agent.TierEasy, nil, agent.TierEasy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClampTier(tt.target, tt.available)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ClampTier() = %v, %v, want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNextQuestion(t *testing.T) {
	bank := fullBank()

	q, ok := NextQuestion(bank, map[string]bool{}, agent.TierMedium)
	if !ok || q.ID != "m1" {
		t.Errorf("got %q, want m1", q.ID)
	}

	q, ok = NextQuestion(bank, map[string]bool{"m1": true, "m2": true}, agent.TierMedium)
	if !ok || q.ID != "e1" {
		t.Errorf("tie between easy and hard should pick easy, got %q", q.ID)
	}

	all := map[string]bool{}
	for _, q := range bank {
		all[q.ID] = true
	}
	if _, ok := NextQuestion(bank, all, agent.TierHard); ok {
		t.Error("expected no question when all are asked")
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		StateIdle:        "idle",
		StateExplaining:  "explaining",
		StateVisualizing: "visualizing",
		StateQuizzing:    "quizzing",
		StateEvaluating:  "evaluating",
		StateAdapting:    "adapting",
	} {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(st), st.String(), want)
		}
	}
}
