package domain

import "math"

// RoundMoney rounds to whole cents.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ToMinorUnits converts a currency amount to cents as sent to the payment provider.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// AmountsDiffer reports a difference larger than one cent.
func AmountsDiffer(a, b float64) bool {
	return math.Abs(a-b) > 0.01+1e-9
}
