package models

// SigningStrategy is an M-of-N recovery policy.
type SigningStrategy string

const (
	OneOfOne     SigningStrategy = "OneOfOne"
	OneOfTwo     SigningStrategy = "OneOfTwo"
	TwoOfTwo     SigningStrategy = "TwoOfTwo"
	OneOfThree   SigningStrategy = "OneOfThree"
	TwoOfThree   SigningStrategy = "TwoOfThree"
	ThreeOfThree SigningStrategy = "ThreeOfThree"
)

var thresholds = map[SigningStrategy]int{
	OneOfOne:     1,
	OneOfTwo:     2,
	TwoOfTwo:     2,
	OneOfThree:   3,
	TwoOfThree:   3,
	ThreeOfThree: 3,
}

// Threshold is the number of guardians that must be ACTIVE under s,
// or 0 for an unknown strategy.
func (s SigningStrategy) Threshold() int {
	return thresholds[s]
}

func (s SigningStrategy) Valid() bool {
	_, ok := thresholds[s]
	return ok
}

// AllSigningStrategies returns the strategy catalogue in display order.
func AllSigningStrategies() []SigningStrategy {
	return []SigningStrategy{OneOfOne, OneOfTwo, TwoOfTwo, OneOfThree, TwoOfThree, ThreeOfThree}
}

// GuardianSettings is the per-account signing policy.
type GuardianSettings struct {
	ID        string
	AccountID string
	Signers   SigningStrategy
}
