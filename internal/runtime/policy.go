package runtime

import (
	"slices"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/registry"
)

// TargetTier picks the next tier from the learner's derived state. A
// perfect recent window or a rising pass rate raises the tier by one; a
// zero or falling pass rate lowers it by one. Otherwise it holds.
func TargetTier(st registry.LearnerCellState) agent.Tier {
	if st.Attempts == 0 {
		return agent.DefaultTier
	}
	base := st.LastTier
	switch {
	case st.RecentPassRate == 1:
		return base.Raise()
	case st.RecentPassRate == 0:
		return base.Lower()
	case st.PreviousCount > 0 && st.RecentPassRate > st.PreviousPassRate:
		return base.Raise()
	case st.PreviousCount > 0 && st.RecentPassRate < st.PreviousPassRate:
		return base.Lower()
	default:
		return base
	}
}

// ClampTier returns the tier in available nearest to target. Ties go to
// the lower tier. It reports false when available is empty.
func ClampTier(target agent.Tier, available []agent.Tier) (agent.Tier, bool) {
	if len(available) == 0 {
		return target, false
	}
	best, bestDist := available[0], -1
	for _, t := range available {
		d := int(t - target)
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && t < best) {
			best, bestDist = t, d
		}
	}
	return best, true
}

// NextQuestion selects the next unanswered question from bank for the
// target tier, clamped to the tiers still available. Within a tier, bank
// order wins.
func NextQuestion(bank []agent.QuizQuestion, asked map[string]bool, target agent.Tier) (agent.QuizQuestion, bool) {
	var available []agent.Tier
	for _, q := range bank {
		if !asked[q.ID] && !slices.Contains(available, q.Tier) {
			available = append(available, q.Tier)
		}
	}
	tier, ok := ClampTier(target, available)
	if !ok {
		return agent.QuizQuestion{}, false
	}
	for _, q := range bank {
		if !asked[q.ID] && q.Tier == tier {
			return q, true
		}
	}
	return agent.QuizQuestion{}, false
}
