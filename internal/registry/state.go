package registry

import "github.com/abhisek/celltutor/internal/agent"

// LearnerCellState is derived from a learner's attempt history on one cell.
// It is never stored; callers recompute it from History on every read.
type LearnerCellState struct {
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	PassRate float64 `json:"pass_rate"`

	// LastTier is the tier of the most recent attempt. It is meaningless
	// when Attempts is zero.
	LastTier agent.Tier `json:"last_tier"`

	// RecentPassRate covers the last window attempts; PreviousPassRate the
	// window before it. The counts say how many attempts each covers.
	RecentPassRate   float64 `json:"recent_pass_rate"`
	RecentCount      int     `json:"recent_count"`
	PreviousPassRate float64 `json:"previous_pass_rate"`
	PreviousCount    int     `json:"previous_count"`
}

// Derive computes the state for history (oldest first) with a rolling
// window of the given size. A non-positive window covers all attempts.
func Derive(history []agent.Attempt, window int) LearnerCellState {
	var s LearnerCellState
	s.Attempts = len(history)
	if s.Attempts == 0 {
		s.LastTier = agent.DefaultTier
		return s
	}

	s.Correct = countCorrect(history)
	s.PassRate = float64(s.Correct) / float64(s.Attempts)
	s.LastTier = history[len(history)-1].Tier

	if window <= 0 {
		window = len(history)
	}
	recentStart := max(0, len(history)-window)
	recent := history[recentStart:]
	previous := history[max(0, recentStart-window):recentStart]

	s.RecentCount = len(recent)
	s.RecentPassRate = rate(recent)
	s.PreviousCount = len(previous)
	s.PreviousPassRate = rate(previous)
	return s
}

func countCorrect(attempts []agent.Attempt) int {
	n := 0
	for _, a := range attempts {
		if a.Correct {
			n++
		}
	}
	return n
}

func rate(attempts []agent.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	return float64(countCorrect(attempts)) / float64(len(attempts))
}
