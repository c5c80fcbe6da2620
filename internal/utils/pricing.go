package utils

import (
	"math"
	"time"
)

// PriceRoundingUnit is the currency granularity rental fees are rounded to.
const PriceRoundingUnit = 500

// durationTier maps a rental length (inclusive upper bound, in hours) to a price multiplier.
type durationTier struct {
	MaxHours   float64
	Multiplier float64
}

// Tiers are checked in order; anything longer than the last one uses longRentalMultiplier.
var durationTiers = []durationTier{
	{MaxHours: 4, Multiplier: 1.0},     // no discount
	{MaxHours: 8, Multiplier: 0.7},     // 30% off
	{MaxHours: 12, Multiplier: 0.5333}, // 46.67% off
}

const longRentalMultiplier = 0.3333 // 66.67% off, also for 24h and longer

// PackageHours are the fixed durations shown side by side for comparison.
var PackageHours = []int{4, 8, 12, 24}

// PackagePrice is the display price of a fixed-duration package.
type PackagePrice struct {
	Hours  int   `json:"hours"`
	Amount int64 `json:"amount"`
}

// TierMultiplier returns the fraction of the undiscounted price charged for a rental of the given length.
func TierMultiplier(hours float64) float64 {
	for _, t := range durationTiers {
		if hours <= t.MaxHours {
			return t.Multiplier
		}
	}
	return longRentalMultiplier
}

// PriceForDuration is the rental fee for renting at hourlyRate for hours, rounded to PriceRoundingUnit.
// Quote and booking creation must both call this.
func PriceForDuration(hourlyRate int64, hours float64) int64 {
	if hours <= 0 || hourlyRate <= 0 {
		return 0
	}
	raw := float64(hourlyRate) * hours * TierMultiplier(hours)
	return RoundToUnit(raw, PriceRoundingUnit)
}

// EffectiveHourlyRate is the per-hour price implied by the discount curve before rounding.
func EffectiveHourlyRate(hourlyRate int64, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return float64(hourlyRate) * TierMultiplier(hours)
}

// RoundToUnit rounds amount to the nearest multiple of unit, halves away from zero.
func RoundToUnit(amount float64, unit int64) int64 {
	if unit <= 1 {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount/float64(unit))) * unit
}

// HoursBetween is the rental length in fractional hours.
func HoursBetween(pickup, ret time.Time) float64 {
	return ret.Sub(pickup).Hours()
}

// RentalFee prices the [pickup, ret) window.
func RentalFee(hourlyRate int64, pickup, ret time.Time) int64 {
	return PriceForDuration(hourlyRate, HoursBetween(pickup, ret))
}

// PackagePrices returns the 4h/8h/12h/24h prices regardless of the requested window.
func PackagePrices(hourlyRate int64) []PackagePrice {
	prices := make([]PackagePrice, 0, len(PackageHours))
	for _, h := range PackageHours {
		prices = append(prices, PackagePrice{
			Hours:  h,
			Amount: PriceForDuration(hourlyRate, float64(h)),
		})
	}
	return prices
}
