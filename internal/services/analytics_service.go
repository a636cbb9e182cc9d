package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"taxledger/internal/ledger"
	"taxledger/internal/money"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
)

const DefaultBreakdownLimit = 10

// AnalyticsService is the aggregation engine. Everything it returns is
// computed from the ledger at call time.
type AnalyticsService struct {
	store       AnalyticsStore
	defaultDays int
	today       func() time.Time
}

func NewAnalyticsService(analytics AnalyticsStore, defaultDays int, loc *time.Location) *AnalyticsService {
	if defaultDays <= 0 {
		defaultDays = 365
	}
	return &AnalyticsService{
		store:       analytics,
		defaultDays: defaultDays,
		today:       func() time.Time { return taxperiod.Today(loc) },
	}
}

type Range struct {
	From *time.Time
	To   *time.Time
}

func (r Range) validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return NewValidationError("date_from", "must not be after date_to")
	}
	return nil
}

type TimeSeriesQuery struct {
	UserID      string
	Granularity ledger.Granularity
	Range       Range
	Type        ledger.TransactionType
}

type SeriesPoint struct {
	Period  string
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// TimeSeries returns one point per non-empty bucket in ascending order.
// With neither bound set the window is the trailing default period ending
// today. The applied range is returned alongside the points.
func (s *AnalyticsService) TimeSeries(ctx context.Context, q TimeSeriesQuery) ([]SeriesPoint, Range, error) {
	if err := q.Range.validate(); err != nil {
		return nil, Range{}, err
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, Range{}, NewValidationError("transaction_type", "must be income or expense")
	}
	if q.Granularity == "" {
		q.Granularity = ledger.Month
	}
	window := q.Range
	if window.From == nil && window.To == nil {
		to := s.today()
		from := to.AddDate(0, 0, -s.defaultDays)
		window = Range{From: &from, To: &to}
	}
	buckets, err := s.store.TimeSeries(ctx, ledger.Filter{
		UserID:   q.UserID,
		DateFrom: window.From,
		DateTo:   window.To,
		Type:     q.Type,
	}, q.Granularity)
	if err != nil {
		return nil, Range{}, err
	}
	points := make([]SeriesPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, SeriesPoint{
			Period:  b.Period,
			Income:  b.Income,
			Expense: b.Expense,
			Net:     b.Income.Sub(b.Expense),
		})
	}
	return points, window, nil
}

type BreakdownQuery struct {
	UserID string
	Range  Range
	Type   ledger.TransactionType
	Limit  int
}

func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, q BreakdownQuery) ([]store.CategoryTotal, error) {
	if err := q.Range.validate(); err != nil {
		return nil, err
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, NewValidationError("transaction_type", "must be income or expense")
	}
	if q.Limit <= 0 {
		return nil, NewValidationError("limit", "must be a positive integer")
	}
	return s.store.CategoryBreakdown(ctx, ledger.Filter{
		UserID:   q.UserID,
		DateFrom: q.Range.From,
		DateTo:   q.Range.To,
		Type:     q.Type,
	}, q.Limit)
}

type PeriodStats struct {
	Period           taxperiod.Period
	Income           decimal.Decimal
	Expense          decimal.Decimal
	Net              decimal.Decimal
	TransactionCount int64
}

type PeriodChange struct {
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Net        decimal.Decimal
	IncomePct  decimal.Decimal
	ExpensePct decimal.Decimal
	NetPct     decimal.Decimal
}

type Comparison struct {
	Period1 PeriodStats
	Period2 PeriodStats
	Change  PeriodChange
}

// ComparePeriods reports period2 relative to period1. The ranges may overlap.
func (s *AnalyticsService) ComparePeriods(ctx context.Context, userID string, p1, p2 taxperiod.Period) (Comparison, error) {
	verr := &ValidationError{}
	if p1.Start.After(p1.End) {
		verr.Add("p1_from", "must not be after p1_to")
	}
	if p2.Start.After(p2.End) {
		verr.Add("p2_from", "must not be after p2_to")
	}
	if err := verr.OrNil(); err != nil {
		return Comparison{}, err
	}
	first, err := s.stats(ctx, userID, p1)
	if err != nil {
		return Comparison{}, err
	}
	second, err := s.stats(ctx, userID, p2)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Period1: first,
		Period2: second,
		Change: PeriodChange{
			Income:     second.Income.Sub(first.Income),
			Expense:    second.Expense.Sub(first.Expense),
			Net:        second.Net.Sub(first.Net),
			IncomePct:  money.PercentChange(first.Income, second.Income),
			ExpensePct: money.PercentChange(first.Expense, second.Expense),
			NetPct:     money.PercentChange(first.Net, second.Net),
		},
	}, nil
}

func (s *AnalyticsService) stats(ctx context.Context, userID string, p taxperiod.Period) (PeriodStats, error) {
	totals, err := s.store.Totals(ctx, periodFilter(userID, p))
	if err != nil {
		return PeriodStats{}, err
	}
	return PeriodStats{
		Period:           p,
		Income:           totals.Income,
		Expense:          totals.Expense,
		Net:              totals.Income.Sub(totals.Expense),
		TransactionCount: totals.Count,
	}, nil
}

type Flow struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (f Flow) Net() decimal.Decimal {
	return f.Income.Sub(f.Expense)
}

type MethodFlow struct {
	Method       ledger.PaymentMethod
	Flow         Flow
	EstimatedTax decimal.Decimal
}

type ActivityFlow struct {
	ActivityCodeID int64
	Code           string
	Name           string
	Flow           Flow
}

type TaxAggregates struct {
	Totals       Flow
	Taxable      Flow
	NonTaxable   Flow
	ByMethod     []MethodFlow
	ByActivity   []ActivityFlow
	EstimatedTax decimal.Decimal
}

// TaxAggregates computes the sums a tax report is built from. ByMethod
// always has a cash and a non_cash row, in that order.
func (s *AnalyticsService) TaxAggregates(ctx context.Context, userID string, p taxperiod.Period) (TaxAggregates, error) {
	filter := periodFilter(userID, p)
	totals, err := s.store.Totals(ctx, filter)
	if err != nil {
		return TaxAggregates{}, err
	}
	split, err := s.store.TaxableSplit(ctx, filter)
	if err != nil {
		return TaxAggregates{}, err
	}
	methods, err := s.store.ByPaymentMethod(ctx, filter)
	if err != nil {
		return TaxAggregates{}, err
	}
	activities, err := s.store.ByActivity(ctx, filter)
	if err != nil {
		return TaxAggregates{}, err
	}

	agg := TaxAggregates{
		Totals:     Flow{Income: totals.Income, Expense: totals.Expense},
		Taxable:    Flow{Income: split.TaxableIncome, Expense: split.TaxableExpense},
		NonTaxable: Flow{Income: split.NonTaxableIncome, Expense: split.NonTaxableExpense},
	}
	byMethod := make(map[string]store.MethodTotal, len(methods))
	for _, m := range methods {
		byMethod[m.PaymentMethod] = m
	}
	agg.EstimatedTax = decimal.Zero
	for _, method := range ledger.PaymentMethods {
		row := byMethod[string(method)]
		flow := MethodFlow{
			Method:       method,
			Flow:         Flow{Income: row.Income, Expense: row.Expense},
			EstimatedTax: row.EstimatedTax.Round(money.Places),
		}
		agg.EstimatedTax = agg.EstimatedTax.Add(flow.EstimatedTax)
		agg.ByMethod = append(agg.ByMethod, flow)
	}
	agg.ByActivity = make([]ActivityFlow, 0, len(activities))
	for _, a := range activities {
		agg.ByActivity = append(agg.ByActivity, ActivityFlow{
			ActivityCodeID: a.ActivityCodeID,
			Code:           a.Code,
			Name:           a.Name,
			Flow:           Flow{Income: a.Income, Expense: a.Expense},
		})
	}
	return agg, nil
}

func periodFilter(userID string, p taxperiod.Period) ledger.Filter {
	from, to := p.Start, p.End
	return ledger.Filter{UserID: userID, DateFrom: &from, DateTo: &to}
}
