package ledger

import (
	"fmt"
	"strings"
)

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

type PaymentMethod string

const (
	Cash    PaymentMethod = "cash"
	NonCash PaymentMethod = "non_cash"
)

// PaymentMethods is the fixed report order.
var PaymentMethods = []PaymentMethod{Cash, NonCash}

func (m PaymentMethod) Valid() bool {
	return m == Cash || m == NonCash
}

func (m PaymentMethod) Label() string {
	switch m {
	case Cash:
		return "Наличные"
	case NonCash:
		return "Безналичные"
	}
	return string(m)
}

// Granularity is a time-series bucket width.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ParseGranularity accepts day/month/year and daily/monthly/yearly. An empty
// value means month.
func ParseGranularity(raw string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "month", "monthly":
		return Month, nil
	case "day", "daily":
		return Day, nil
	case "year", "yearly":
		return Year, nil
	}
	return "", fmt.Errorf("unknown period %q: use daily, monthly or yearly", raw)
}

// Label is the to_char pattern for the bucket label.
func (g Granularity) Label() string {
	switch g {
	case Day:
		return "YYYY-MM-DD"
	case Year:
		return "YYYY"
	}
	return "YYYY-MM"
}
