package store

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"taxledger/internal/ledger"
)

// AnalyticsStore runs read-only grouped sums straight off the ledger.
type AnalyticsStore struct {
	db DB
}

func NewAnalyticsStore(db DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

const (
	sumIncome  = `COALESCE(SUM(t.amount) FILTER (WHERE t.transaction_type = 'income'), 0)`
	sumExpense = `COALESCE(SUM(t.amount) FILTER (WHERE t.transaction_type = 'expense'), 0)`
	// Taxable business income at the rates snapshotted on each transaction.
	sumEstimatedTax = `COALESCE(SUM(t.amount * CASE WHEN t.payment_method = 'cash'
		THEN COALESCE(t.cash_tax_rate, 0) ELSE COALESCE(t.non_cash_tax_rate, 0) END / 100)
		FILTER (WHERE t.transaction_type = 'income' AND t.is_taxable AND t.is_business), 0)`
)

type Totals struct {
	Income  decimal.Decimal `db:"income"`
	Expense decimal.Decimal `db:"expense"`
	Count   int64           `db:"transaction_count"`
}

func (s *AnalyticsStore) Totals(ctx context.Context, filter ledger.Filter) (Totals, error) {
	where, args := filter.Where("t")
	var totals Totals
	err := s.db.GetContext(ctx, &totals, `
		SELECT `+sumIncome+` AS income, `+sumExpense+` AS expense, COUNT(*) AS transaction_count
		FROM transactions t
		WHERE `+where, args...)
	return totals, err
}

type Bucket struct {
	Period  string          `db:"period"`
	Income  decimal.Decimal `db:"income"`
	Expense decimal.Decimal `db:"expense"`
}

// TimeSeries groups by calendar bucket. Empty buckets are absent.
func (s *AnalyticsStore) TimeSeries(ctx context.Context, filter ledger.Filter, granularity ledger.Granularity) ([]Bucket, error) {
	unit := string(ledger.Month)
	switch granularity {
	case ledger.Day, ledger.Year:
		unit = string(granularity)
	}
	where, args := filter.Where("t")
	query := `
		SELECT to_char(date_trunc('` + unit + `', t.transaction_date), '` + granularity.Label() + `') AS period,
		       ` + sumIncome + ` AS income, ` + sumExpense + ` AS expense
		FROM transactions t
		WHERE ` + where + `
		GROUP BY 1
		ORDER BY 1`
	var rows []Bucket
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Bucket{}
	}
	return rows, nil
}

type CategoryTotal struct {
	CategoryName string          `db:"category_name"`
	CategoryType string          `db:"category_type"`
	Total        decimal.Decimal `db:"total"`
	Count        int64           `db:"count"`
}

// CategoryBreakdown skips uncategorized transactions.
func (s *AnalyticsStore) CategoryBreakdown(ctx context.Context, filter ledger.Filter, limit int) ([]CategoryTotal, error) {
	filter.RequireCategory = true
	where, args := filter.Where("t")
	query := `
		SELECT c.name AS category_name, c.category_type, SUM(t.amount) AS total, COUNT(*) AS count
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE ` + where + `
		GROUP BY c.name, c.category_type
		ORDER BY total DESC, c.name
		LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)
	var rows []CategoryTotal
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []CategoryTotal{}
	}
	return rows, nil
}

type TaxableSplit struct {
	TaxableIncome     decimal.Decimal `db:"taxable_income"`
	TaxableExpense    decimal.Decimal `db:"taxable_expense"`
	NonTaxableIncome  decimal.Decimal `db:"non_taxable_income"`
	NonTaxableExpense decimal.Decimal `db:"non_taxable_expense"`
}

func (s *AnalyticsStore) TaxableSplit(ctx context.Context, filter ledger.Filter) (TaxableSplit, error) {
	where, args := filter.Where("t")
	var split TaxableSplit
	err := s.db.GetContext(ctx, &split, `
		SELECT
			COALESCE(SUM(t.amount) FILTER (WHERE t.is_taxable AND t.transaction_type = 'income'), 0) AS taxable_income,
			COALESCE(SUM(t.amount) FILTER (WHERE t.is_taxable AND t.transaction_type = 'expense'), 0) AS taxable_expense,
			COALESCE(SUM(t.amount) FILTER (WHERE NOT t.is_taxable AND t.transaction_type = 'income'), 0) AS non_taxable_income,
			COALESCE(SUM(t.amount) FILTER (WHERE NOT t.is_taxable AND t.transaction_type = 'expense'), 0) AS non_taxable_expense
		FROM transactions t
		WHERE `+where, args...)
	return split, err
}

type MethodTotal struct {
	PaymentMethod string          `db:"payment_method"`
	Income        decimal.Decimal `db:"income"`
	Expense       decimal.Decimal `db:"expense"`
	EstimatedTax  decimal.Decimal `db:"estimated_tax"`
}

// ByPaymentMethod returns only methods that have transactions.
func (s *AnalyticsStore) ByPaymentMethod(ctx context.Context, filter ledger.Filter) ([]MethodTotal, error) {
	where, args := filter.Where("t")
	var rows []MethodTotal
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.payment_method, `+sumIncome+` AS income, `+sumExpense+` AS expense,
		       `+sumEstimatedTax+` AS estimated_tax
		FROM transactions t
		WHERE `+where+`
		GROUP BY t.payment_method
		ORDER BY t.payment_method`, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type ActivityTotal struct {
	ActivityCodeID int64           `db:"activity_code_id"`
	Code           string          `db:"code"`
	Name           string          `db:"name"`
	Income         decimal.Decimal `db:"income"`
	Expense        decimal.Decimal `db:"expense"`
}

// ByActivity covers business transactions with an activity code only.
func (s *AnalyticsStore) ByActivity(ctx context.Context, filter ledger.Filter) ([]ActivityTotal, error) {
	filter.RequireActivity = true
	where, args := filter.Where("t")
	var rows []ActivityTotal
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.activity_code_id, a.code, a.name, `+sumIncome+` AS income, `+sumExpense+` AS expense
		FROM transactions t
		JOIN activity_codes a ON a.id = t.activity_code_id
		WHERE `+where+`
		GROUP BY t.activity_code_id, a.code, a.name
		ORDER BY income DESC, a.code`, args...)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ActivityTotal{}
	}
	return rows, nil
}
