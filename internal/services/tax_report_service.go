package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taxledger/internal/money"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
)

// DatePreset is a trailing window ending today.
type DatePreset string

const (
	PresetWeek    DatePreset = "week"
	PresetMonth   DatePreset = "month"
	PresetYear    DatePreset = "year"
	PresetAllTime DatePreset = "all_time"
)

const allTimeYears = 50

// Range returns the closed period the preset covers as of today.
func (p DatePreset) Range(today time.Time) (taxperiod.Period, error) {
	today = taxperiod.Civil(today)
	switch p {
	case PresetWeek:
		return taxperiod.Period{Start: today.AddDate(0, 0, -7), End: today}, nil
	case PresetMonth:
		return taxperiod.Period{Start: today.AddDate(0, 0, -30), End: today}, nil
	case PresetYear:
		return taxperiod.Period{Start: today.AddDate(0, 0, -365), End: today}, nil
	case PresetAllTime:
		return taxperiod.Period{Start: taxperiod.Date(today.Year()-allTimeYears, time.January, 1), End: today}, nil
	}
	return taxperiod.Period{}, NewValidationError("preset", "must be one of week, month, year, all_time")
}

type TaxReportService struct {
	reader        store.Getter
	organizations OrganizationStore
	analytics     *AnalyticsService
	today         func() time.Time
}

func NewTaxReportService(reader store.Getter, organizations OrganizationStore, analytics *AnalyticsService, loc *time.Location) *TaxReportService {
	return &TaxReportService{
		reader:        reader,
		organizations: organizations,
		analytics:     analytics,
		today:         func() time.Time { return taxperiod.Today(loc) },
	}
}

// ReportRequest selects the report period. UseOrgTaxPeriod wins over Preset,
// which wins over the explicit dates. With nothing set the month preset applies.
type ReportRequest struct {
	UserID          string
	DateFrom        *time.Time
	DateTo          *time.Time
	Preset          DatePreset
	UseOrgTaxPeriod bool
}

func (s *TaxReportService) ResolvePeriod(ctx context.Context, req ReportRequest) (taxperiod.Period, error) {
	switch {
	case req.UseOrgTaxPeriod:
		return s.CurrentTaxPeriod(ctx, req.UserID)
	case req.Preset != "":
		return req.Preset.Range(s.today())
	case req.DateFrom != nil && req.DateTo != nil:
		if req.DateFrom.After(*req.DateTo) {
			return taxperiod.Period{}, NewValidationError("date_from", "must not be after date_to")
		}
		return taxperiod.Period{Start: taxperiod.Civil(*req.DateFrom), End: taxperiod.Civil(*req.DateTo)}, nil
	case req.DateFrom != nil || req.DateTo != nil:
		return taxperiod.Period{}, NewValidationError("date_from", "date_from and date_to must be provided together")
	}
	return PresetMonth.Range(s.today())
}

// CurrentTaxPeriod resolves the organization's configured period containing
// today. An unconfigured policy is a *taxperiod.ConfigError.
func (s *TaxReportService) CurrentTaxPeriod(ctx context.Context, userID string) (taxperiod.Period, error) {
	profile, err := s.organizations.GetByUser(ctx, s.reader, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return taxperiod.Period{}, ErrProfileNotFound
		}
		return taxperiod.Period{}, err
	}
	return taxperiod.Resolve(profile.TaxPolicy(), s.today())
}

type ReportPeriod struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type ReportTotals struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	Net          string `json:"net"`
	EstimatedTax string `json:"estimated_tax"`
}

type ReportFlow struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type ReportMethodRow struct {
	PaymentMethod        string `json:"payment_method"`
	PaymentMethodDisplay string `json:"payment_method_display"`
	Income               string `json:"income"`
	Expense              string `json:"expense"`
	Net                  string `json:"net"`
	EstimatedTax         string `json:"estimated_tax"`
}

type ReportActivityRow struct {
	ActivityCodeID int64  `json:"activity_code_id"`
	ActivityCode   string `json:"activity_code"`
	ActivityName   string `json:"activity_name"`
	Income         string `json:"income"`
	Expense        string `json:"expense"`
	Net            string `json:"net"`
}

type TaxReport struct {
	Period          ReportPeriod        `json:"period"`
	Totals          ReportTotals        `json:"totals"`
	Taxable         ReportFlow          `json:"taxable"`
	NonTaxable      ReportFlow          `json:"non_taxable"`
	ByPaymentMethod []ReportMethodRow   `json:"by_payment_method"`
	ByActivity      []ReportActivityRow `json:"by_activity"`
}

func (s *TaxReportService) Build(ctx context.Context, req ReportRequest) (TaxReport, error) {
	period, err := s.ResolvePeriod(ctx, req)
	if err != nil {
		return TaxReport{}, err
	}
	agg, err := s.analytics.TaxAggregates(ctx, req.UserID, period)
	if err != nil {
		return TaxReport{}, err
	}
	return assembleReport(period, agg), nil
}

func assembleReport(period taxperiod.Period, agg TaxAggregates) TaxReport {
	report := TaxReport{
		Period: ReportPeriod{
			DateFrom: taxperiod.FormatDate(period.Start),
			DateTo:   taxperiod.FormatDate(period.End),
		},
		Totals: ReportTotals{
			TotalIncome:  money.Format(agg.Totals.Income),
			TotalExpense: money.Format(agg.Totals.Expense),
			Net:          money.Format(agg.Totals.Net()),
			EstimatedTax: money.Format(agg.EstimatedTax),
		},
		Taxable:         ReportFlow{Income: money.Format(agg.Taxable.Income), Expense: money.Format(agg.Taxable.Expense)},
		NonTaxable:      ReportFlow{Income: money.Format(agg.NonTaxable.Income), Expense: money.Format(agg.NonTaxable.Expense)},
		ByPaymentMethod: make([]ReportMethodRow, 0, len(agg.ByMethod)),
		ByActivity:      make([]ReportActivityRow, 0, len(agg.ByActivity)),
	}
	for _, m := range agg.ByMethod {
		report.ByPaymentMethod = append(report.ByPaymentMethod, ReportMethodRow{
			PaymentMethod:        string(m.Method),
			PaymentMethodDisplay: m.Method.Label(),
			Income:               money.Format(m.Flow.Income),
			Expense:              money.Format(m.Flow.Expense),
			Net:                  money.Format(m.Flow.Net()),
			EstimatedTax:         money.Format(m.EstimatedTax),
		})
	}
	for _, a := range agg.ByActivity {
		report.ByActivity = append(report.ByActivity, ReportActivityRow{
			ActivityCodeID: a.ActivityCodeID,
			ActivityCode:   a.Code,
			ActivityName:   a.Name,
			Income:         money.Format(a.Flow.Income),
			Expense:        money.Format(a.Flow.Expense),
			Net:            money.Format(a.Flow.Net()),
		})
	}
	return report
}
