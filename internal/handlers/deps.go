package handlers

import (
	"context"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/services"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]store.AuditEntry, error)
}

type ActivityDirectory interface {
	Search(ctx context.Context, search string, limit int) ([]models.ActivityCode, error)
}

type OrganizationService interface {
	Profile(ctx context.Context, userID string) (models.OrganizationProfile, error)
	Existing(ctx context.Context, userID string) (models.OrganizationProfile, error)
	UpdateProfile(ctx context.Context, userID string, update services.ProfileUpdate) (models.OrganizationProfile, error)
	Status(ctx context.Context, userID string) (services.OnboardingState, error)
	Finalize(ctx context.Context, userID string) (models.OrganizationProfile, error)
	TaxPeriod(ctx context.Context, userID string) (services.TaxPeriodView, error)
	Activities(ctx context.Context, userID string) ([]models.OrganizationActivity, error)
	AddActivity(ctx context.Context, userID string, in services.ActivityInput) (models.OrganizationActivity, error)
	UpdateActivity(ctx context.Context, userID string, activityID int64, in services.ActivityInput) (models.OrganizationActivity, error)
	DeleteActivity(ctx context.Context, userID string, activityID int64) error
}

type CategoryService interface {
	List(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error)
	Create(ctx context.Context, userID string, in services.CategoryInput) (models.Category, error)
	Update(ctx context.Context, userID, categoryID string, in services.CategoryInput) (models.Category, error)
	Delete(ctx context.Context, userID, categoryID string) error
}

type TransactionService interface {
	Create(ctx context.Context, in services.TransactionInput) (models.Transaction, error)
	Update(ctx context.Context, transactionID string, in services.TransactionInput) (models.Transaction, error)
	Delete(ctx context.Context, userID, transactionID string) error
	Get(ctx context.Context, userID, transactionID string) (models.Transaction, error)
	List(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) (services.TransactionPage, error)
}

type DashboardService interface {
	Get(ctx context.Context, userID string) (services.Dashboard, error)
}

type AnalyticsService interface {
	TimeSeries(ctx context.Context, q services.TimeSeriesQuery) ([]services.SeriesPoint, services.Range, error)
	CategoryBreakdown(ctx context.Context, q services.BreakdownQuery) ([]store.CategoryTotal, error)
	ComparePeriods(ctx context.Context, userID string, p1, p2 taxperiod.Period) (services.Comparison, error)
}

type TaxReportService interface {
	Build(ctx context.Context, req services.ReportRequest) (services.TaxReport, error)
	UnifiedQuarter(ctx context.Context, userID string, year, quarter int) (services.UnifiedTaxReport, error)
}
