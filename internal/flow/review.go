package flow

import "fmt"

// ReviewKind identifies which review a state concerns.
type ReviewKind int

const (
	ReviewNone ReviewKind = iota
	ReviewBundlePass
	ReviewBundleFail
	ReviewRound
	ReviewSuppPass
	ReviewSuppFail
)

var reviewKindNames = [...]string{
	ReviewNone:       "none",
	ReviewBundlePass: "bundle_pass",
	ReviewBundleFail: "bundle_fail",
	ReviewRound:      "round",
	ReviewSuppPass:   "remediation_pass",
	ReviewSuppFail:   "remediation_fail",
}

func (k ReviewKind) String() string {
	if k < 0 || int(k) >= len(reviewKindNames) {
		return "unknown"
	}
	return reviewKindNames[k]
}

// MarshalText encodes the kind by name.
func (k ReviewKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ReviewKind) UnmarshalText(b []byte) error {
	for i, name := range reviewKindNames {
		if name == string(b) {
			*k = ReviewKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown review kind %q", b)
}

// Supplementary reports whether the review summarizes remediation.
func (k ReviewKind) Supplementary() bool {
	return k == ReviewSuppPass || k == ReviewSuppFail
}

// ReviewKindOf answers which review s concerns, derived from s alone.
func ReviewKindOf(s State) ReviewKind {
	switch s.Phase {
	case PhaseReview:
		return ReviewBundlePass
	case PhaseReviewFail:
		return ReviewBundleFail
	case PhaseRoundReview:
		return ReviewRound
	case PhaseReviewSupp:
		return ReviewSuppPass
	case PhaseReviewSuppFail:
		return ReviewSuppFail
	}
	return ReviewNone
}
