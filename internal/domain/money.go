package domain

import "github.com/shopspring/decimal"

// Currency is the display currency for every wallet and catalog amount.
const Currency = "DH"

// RoundDisplay formats an amount with two decimal places.
// It is for display only; stored and computed amounts keep full precision.
func RoundDisplay(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ToMinorUnits converts a DH amount to centimes for payment providers.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts centimes back to a DH amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
