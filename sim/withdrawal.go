package sim

import "sort"

// WithdrawalPolicy maps the cumulative return factor after a year's growth
// to the factor after that year's withdrawal.
type WithdrawalPolicy func(factor, rate float64) float64

const (
	// PolicyRateSubtraction subtracts the rate itself from the factor.
	// The rate is a ratio, not a currency amount converted back to a factor;
	// this reproduces the historical calculator's output.
	PolicyRateSubtraction = "rate-subtraction"

	// PolicyProportional withdraws rate × current value: factor * (1 - rate).
	PolicyProportional = "proportional"

	// PolicyNone leaves the factor unchanged.
	PolicyNone = "none"
)

var withdrawalPolicies = map[string]WithdrawalPolicy{
	PolicyRateSubtraction: func(factor, rate float64) float64 { return factor - rate },
	PolicyProportional:    func(factor, rate float64) float64 { return factor * (1 - rate) },
	PolicyNone:            func(factor, _ float64) float64 { return factor },
}

// IsValidPolicy returns true if name is a registered withdrawal policy.
// The empty string selects the default policy.
func IsValidPolicy(name string) bool {
	if name == "" {
		return true
	}
	_, ok := withdrawalPolicies[name]
	return ok
}

// PolicyNames returns the registered policy names in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(withdrawalPolicies))
	for name := range withdrawalPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPolicy returns the policy registered under name.
// The empty string returns PolicyRateSubtraction. Unknown names return nil.
func LookupPolicy(name string) WithdrawalPolicy {
	return withdrawalPolicies[LookupPolicyName(name)]
}

// LookupPolicyName resolves the empty string to the default policy name.
func LookupPolicyName(name string) string {
	if name == "" {
		return PolicyRateSubtraction
	}
	return name
}
