package agent

import "fmt"

// Tier is an ordered difficulty category for quiz questions.
type Tier int

const (
	TierEasy Tier = iota
	TierMedium
	TierHard
)

// DefaultTier is the target tier for the first generated question and for
// learners without history.
const DefaultTier = TierMedium

// AllTiers returns every tier in ascending order.
func AllTiers() []Tier {
	return []Tier{TierEasy, TierMedium, TierHard}
}

func (t Tier) String() string {
	switch t {
	case TierEasy:
		return "easy"
	case TierMedium:
		return "medium"
	case TierHard:
		return "hard"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t >= TierEasy && t <= TierHard
}

// Raise returns the next tier up, capped at TierHard.
func (t Tier) Raise() Tier {
	if t >= TierHard {
		return TierHard
	}
	return t + 1
}

// Lower returns the next tier down, floored at TierEasy.
func (t Tier) Lower() Tier {
	if t <= TierEasy {
		return TierEasy
	}
	return t - 1
}

// ParseTier parses a tier label ("easy", "medium", "hard").
func ParseTier(s string) (Tier, error) {
	switch s {
	case "easy":
		return TierEasy, nil
	case "medium":
		return TierMedium, nil
	case "hard":
		return TierHard, nil
	}
	return 0, fmt.Errorf("unknown difficulty tier: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
