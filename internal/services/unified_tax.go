package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"taxledger/internal/ledger"
	"taxledger/internal/money"
	"taxledger/internal/taxperiod"
)

const (
	minReportYear = 2000
	maxReportYear = 2100
)

// Unified tax and social fund contributions are charged on quarterly turnover.
var (
	UnifiedTaxRate = decimal.NewFromInt(10)
	SocialFundRate = decimal.NewFromInt(3)
)

// UnifiedTaxReport's amounts are decimal strings with two places, rates are
// percentages.
type UnifiedTaxReport struct {
	Year           int    `json:"year"`
	Quarter        int    `json:"quarter"`
	DateFrom       string `json:"date_from"`
	DateTo         string `json:"date_to"`
	Turnover       string `json:"turnover"`
	Rate           string `json:"rate"`
	UnifiedTax     string `json:"unified_tax"`
	SocialFundRate string `json:"social_fund_rate"`
	SocialFund     string `json:"social_fund"`
	TotalPayable   string `json:"total_payable"`
}

func QuarterPeriod(year, quarter int) taxperiod.Period {
	first := time.Month((quarter-1)*3 + 1)
	return taxperiod.Period{Start: taxperiod.Date(year, first, 1), End: taxperiod.Date(year, first+3, 0)}
}

// UnifiedQuarter computes the unified tax declaration for one calendar
// quarter. Turnover is taxable business income only.
func (s *TaxReportService) UnifiedQuarter(ctx context.Context, userID string, year, quarter int) (UnifiedTaxReport, error) {
	verr := &ValidationError{}
	if year < minReportYear || year > maxReportYear {
		verr.Add("year", "must be between 2000 and 2100")
	}
	if quarter < 1 || quarter > 4 {
		verr.Add("quarter", "must be 1, 2, 3 or 4")
	}
	if err := verr.OrNil(); err != nil {
		return UnifiedTaxReport{}, err
	}
	if _, err := s.organizations.GetByUser(ctx, s.reader, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UnifiedTaxReport{}, ErrProfileNotFound
		}
		return UnifiedTaxReport{}, err
	}

	period := QuarterPeriod(year, quarter)
	turnover, err := s.analytics.TaxableBusinessIncome(ctx, userID, period)
	if err != nil {
		return UnifiedTaxReport{}, err
	}
	unified := money.ApplyRate(turnover, UnifiedTaxRate)
	social := money.ApplyRate(turnover, SocialFundRate)
	return UnifiedTaxReport{
		Year:           year,
		Quarter:        quarter,
		DateFrom:       taxperiod.FormatDate(period.Start),
		DateTo:         taxperiod.FormatDate(period.End),
		Turnover:       money.Format(turnover),
		Rate:           money.Format(UnifiedTaxRate),
		UnifiedTax:     money.Format(unified),
		SocialFundRate: money.Format(SocialFundRate),
		SocialFund:     money.Format(social),
		TotalPayable:   money.Format(unified.Add(social)),
	}, nil
}

// TaxableBusinessIncome sums taxable business income inside p.
func (s *AnalyticsService) TaxableBusinessIncome(ctx context.Context, userID string, p taxperiod.Period) (decimal.Decimal, error) {
	yes := true
	totals, err := s.store.Totals(ctx, ledger.Filter{
		UserID:     userID,
		DateFrom:   &p.Start,
		DateTo:     &p.End,
		Type:       ledger.Income,
		IsBusiness: &yes,
		IsTaxable:  &yes,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return totals.Income, nil
}
