package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnits maps ISO 4217 currency codes to the number of decimal places
// amounts in that currency may carry. Not uniform: JPY has none, BHD has three.
var minorUnits = map[string]int32{
	"USD": 2, "EUR": 2, "GBP": 2, "CHF": 2,
	"CAD": 2, "AUD": 2, "NZD": 2, "SGD": 2,
	"SEK": 2, "NOK": 2, "DKK": 2, "PLN": 2,
	"MXN": 2, "BRL": 2, "INR": 2, "ZAR": 2,
	"TRY": 2, "HKD": 2, "CNY": 2, "AED": 2,
	"JPY": 0, "KRW": 0, "VND": 0, "ISK": 0,
	"BHD": 3, "KWD": 3, "OMR": 3, "JOD": 3, "TND": 3,
}

// MinorUnits returns the decimal precision for a currency code.
func MinorUnits(currency string) (int32, bool) {
	u, ok := minorUnits[strings.ToUpper(strings.TrimSpace(currency))]
	return u, ok
}

// ValidateCurrency checks that the code is a supported ISO 4217 currency.
func ValidateCurrency(currency string) error {
	if _, ok := MinorUnits(currency); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}
	return nil
}

// ValidateAmount checks that an amount is strictly positive and does not
// exceed the currency's minor-unit precision. A half-cent USD amount is a
// caller bug, not something to round away.
func ValidateAmount(amount decimal.Decimal, currency string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	units, ok := MinorUnits(currency)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}

	if amount.Exponent() < -units {
		return fmt.Errorf("%w: %s has more than %d decimal places for %s",
			ErrAmountScale, amount.String(), units, strings.ToUpper(currency))
	}

	return nil
}
