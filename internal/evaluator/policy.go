package evaluator

import (
	"fmt"
	"math"
)

// Policy holds the two pass thresholds. They are independent because a
// remediation round need not be the same size as a bundle.
type Policy struct {
	// BundlePassScore is the minimum number of correct bundle answers.
	BundlePassScore int `json:"bundle_pass_score"`

	// RoundPassRatio is the minimum accuracy over all remediation answers
	// of a tier.
	RoundPassRatio float64 `json:"round_pass_ratio"`
}

// DefaultPolicy returns the reference thresholds: 4 of 5 and 80%.
func DefaultPolicy() Policy {
	return Policy{BundlePassScore: 4, RoundPassRatio: 0.80}
}

// Validate checks that the thresholds are usable.
func (p Policy) Validate() error {
	if p.BundlePassScore < 1 {
		return fmt.Errorf("bundle pass score must be at least 1, got %d", p.BundlePassScore)
	}
	if p.RoundPassRatio <= 0 || p.RoundPassRatio > 1 {
		return fmt.Errorf("round pass ratio must be in (0, 1], got %v", p.RoundPassRatio)
	}
	return nil
}

// BundlePassed applies the bundle threshold to a score.
func (p Policy) BundlePassed(score int) bool {
	return score >= p.BundlePassScore
}

// RoundsPassed applies the remediation threshold. The comparison is done
// in permille so that exactly 80.0% passes and 79.9% does not.
func (p Policy) RoundsPassed(correct, total int) bool {
	if total <= 0 {
		return false
	}
	return correct*1000 >= p.thresholdPermille()*total
}

func (p Policy) thresholdPermille() int {
	return int(math.Round(p.RoundPassRatio * 1000))
}
