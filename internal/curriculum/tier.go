package curriculum

import (
	"fmt"
	"strings"
)

// Tier is one of the three ordered difficulty levels a learner climbs.
type Tier int

const (
	TierRecognition   Tier = iota // Recall and identify
	TierComprehension             // Explain and interpret
	TierApplication               // Use in unfamiliar problems
)

// AllTiers returns the tiers in ascending order.
func AllTiers() []Tier {
	return []Tier{TierRecognition, TierComprehension, TierApplication}
}

// FirstTier is where every session starts.
const FirstTier = TierRecognition

// LastTier is the final tier; advancing past it ends the session.
const LastTier = TierApplication

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t >= TierRecognition && t <= TierApplication
}

// Next returns the following tier. ok is false when t is the last tier.
func (t Tier) Next() (next Tier, ok bool) {
	if t >= LastTier {
		return t, false
	}
	return t + 1, true
}

// IsLast reports whether t is the final tier.
func (t Tier) IsLast() bool {
	return t == LastTier
}

func (t Tier) String() string {
	switch t {
	case TierRecognition:
		return "recognition"
	case TierComprehension:
		return "comprehension"
	case TierApplication:
		return "application"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// DisplayName returns a human-readable name for a tier.
func (t Tier) DisplayName() string {
	switch t {
	case TierRecognition:
		return "Recognition"
	case TierComprehension:
		return "Comprehension"
	case TierApplication:
		return "Application"
	default:
		return t.String()
	}
}

// ParseTier parses a tier name (case-insensitive) or its ordinal ("1".."3").
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recognition", "1":
		return TierRecognition, nil
	case "comprehension", "2":
		return TierComprehension, nil
	case "application", "3":
		return TierApplication, nil
	}
	return 0, fmt.Errorf("invalid tier %q: must be recognition, comprehension or application", s)
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
