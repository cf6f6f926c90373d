// Package units provides canonical unit types and conversions.
package units

import "math"

// Unit represents a measurable quantity.
type Unit string

const (
	// Energy units
	UnitKWh Unit = "kWh"
	UnitMWh Unit = "MWh"

	// Power units
	UnitKW Unit = "kW"
	UnitMW Unit = "MW"

	// Carbon units
	UnitGramsCO2 Unit = "gCO2"
	UnitKgCO2    Unit = "kgCO2"
)

// KWhToMWh converts kilowatt-hours to megawatt-hours.
func KWhToMWh(kwh float64) float64 {
	return kwh / 1000.0
}

// MWhToKWh converts megawatt-hours to kilowatt-hours.
func MWhToKWh(mwh float64) float64 {
	return mwh * 1000.0
}

// GramsToKg converts grams of CO2 to kilograms.
func GramsToKg(grams float64) float64 {
	return grams / 1000.0
}

// KgToGrams converts kilograms of CO2 to grams.
func KgToGrams(kg float64) float64 {
	return kg * 1000.0
}

// Round2 rounds a quantity to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
