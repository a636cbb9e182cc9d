package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrNonPositive     = errors.New("amount must be greater than zero")
	ErrAboveMaximum    = errors.New("amount exceeds the allowed maximum")
	ErrInvalidRate     = errors.New("tax rate must be between 0 and 100")
)

const Places = 2

var (
	MinAmount = decimal.New(1, -Places)
	hundred   = decimal.NewFromInt(100)
)

// Parse reads a plain decimal literal such as "1500" or "-12.5". Exponent
// notation and more than two fractional digits are rejected.
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	unsigned := strings.TrimLeft(trimmed, "+-")
	if len(trimmed)-len(unsigned) > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.SplitN(unsigned, ".", 2)
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	if !isDigits(parts[0]) {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(parts) == 2 {
		if !isDigits(parts[1]) {
			return decimal.Zero, ErrInvalidAmount
		}
		if len(parts[1]) > Places {
			return decimal.Zero, ErrTooManyDecimals
		}
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

// ValidateAmount checks a transaction amount against [0.01, max].
func ValidateAmount(amount, max decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(Places)) {
		return ErrTooManyDecimals
	}
	if amount.LessThan(MinAmount) {
		return ErrNonPositive
	}
	if amount.GreaterThan(max) {
		return ErrAboveMaximum
	}
	return nil
}

// ValidateRate checks a tax rate percentage.
func ValidateRate(rate decimal.Decimal) error {
	if !rate.Equal(rate.Truncate(Places)) {
		return ErrTooManyDecimals
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return ErrInvalidRate
	}
	return nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Places)
}

// PercentChange is (current - baseline) / baseline * 100 rounded to two
// places. A zero baseline yields 100 when current is positive and 0 otherwise.
func PercentChange(baseline, current decimal.Decimal) decimal.Decimal {
	if baseline.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(baseline).Div(baseline).Mul(hundred).Round(Places)
}

// ApplyRate returns amount * rate / 100 rounded to two places.
func ApplyRate(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(Places)
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
