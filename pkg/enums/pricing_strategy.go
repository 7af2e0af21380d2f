package enums

import "fmt"

// PricingStrategy selects how a price list splits the retail price between
// retailer payment and supplier profit.
type PricingStrategy string

const (
	PricingStrategyMargin    PricingStrategy = "MARGIN"
	PricingStrategyWholesale PricingStrategy = "WHOLESALE"
)

var validPricingStrategies = []PricingStrategy{
	PricingStrategyMargin,
	PricingStrategyWholesale,
}

// String implements fmt.Stringer.
func (p PricingStrategy) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PricingStrategy.
func (p PricingStrategy) IsValid() bool {
	for _, candidate := range validPricingStrategies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePricingStrategy converts raw input into a PricingStrategy.
func ParsePricingStrategy(value string) (PricingStrategy, error) {
	for _, candidate := range validPricingStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing strategy %q", value)
}
