// Package market provides the grid market condition classifier.
// Maps carbon intensity and wholesale price to a qualitative band
// used by the decision engine and the API layer.
package market

// Condition is the qualitative market assessment.
type Condition string

const (
	ConditionOptimal  Condition = "optimal"  // both carbon and price well below threshold
	ConditionGood     Condition = "good"     // both within threshold
	ConditionModerate Condition = "moderate" // exactly one within threshold
	ConditionPoor     Condition = "poor"     // both above threshold
	ConditionCritical Condition = "critical" // both above, at least one by >50%
)

// Classifier holds the configured acceptance thresholds.
type Classifier struct {
	CarbonThreshold float64 // gCO2/kWh
	PriceThreshold  float64 // £/kWh
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(carbonThreshold, priceThreshold float64) Classifier {
	return Classifier{
		CarbonThreshold: carbonThreshold,
		PriceThreshold:  priceThreshold,
	}
}

// Classify assesses grid conditions for workload execution.
//
// The bands are not mutually exclusive from the raw ratios alone, so the
// rules must be evaluated in this exact order; the first match wins.
func (c Classifier) Classify(carbonIntensity, price float64) Condition {
	carbonOK := carbonIntensity <= c.CarbonThreshold
	priceOK := price <= c.PriceThreshold

	carbonRatio := carbonIntensity / c.CarbonThreshold
	priceRatio := price / c.PriceThreshold

	switch {
	case carbonOK && priceOK:
		if carbonRatio < 0.5 && priceRatio < 0.5 {
			return ConditionOptimal
		}
		return ConditionGood
	case carbonOK || priceOK:
		return ConditionModerate
	case carbonRatio > 1.5 || priceRatio > 1.5:
		return ConditionCritical
	default:
		return ConditionPoor
	}
}

// Favorable reports whether conditions support immediate execution.
func (c Condition) Favorable() bool {
	return c == ConditionOptimal || c == ConditionGood
}
