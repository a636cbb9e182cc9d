package services

import (
	"context"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/store"
	"taxledger/internal/websocket"
)

type CategoryStore interface {
	ListVisible(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error)
	GetVisible(ctx context.Context, q store.Getter, userID, categoryID string) (models.Category, error)
	Create(ctx context.Context, tx store.Execer, category models.Category) error
	Update(ctx context.Context, tx store.Execer, userID string, category models.Category) (int64, error)
	Delete(ctx context.Context, tx store.Execer, userID, categoryID string) (int64, error)
	CountOtherType(ctx context.Context, q store.Getter, categoryID string, categoryType ledger.TransactionType) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, t models.Transaction) error
	Update(ctx context.Context, tx store.Execer, t models.Transaction) (int64, error)
	Delete(ctx context.Context, tx store.Execer, userID, transactionID string) (int64, error)
	GetByID(ctx context.Context, q store.Getter, userID, transactionID string) (models.Transaction, error)
	List(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) ([]models.Transaction, error)
	Count(ctx context.Context, filter ledger.Filter) (int64, error)
}

type OrganizationStore interface {
	GetByUser(ctx context.Context, q store.Getter, userID string) (models.OrganizationProfile, error)
	Create(ctx context.Context, tx store.Execer, id, userID string) error
	Update(ctx context.Context, tx store.Execer, p models.OrganizationProfile) error
	ListActivities(ctx context.Context, profileID string) ([]models.OrganizationActivity, error)
	GetActivity(ctx context.Context, q store.Getter, profileID string, activityID int64) (models.OrganizationActivity, error)
	AddActivity(ctx context.Context, tx store.Getter, a models.OrganizationActivity) (int64, error)
	UpdateActivity(ctx context.Context, tx store.Execer, a models.OrganizationActivity) (int64, error)
	DeleteActivity(ctx context.Context, tx store.Execer, profileID string, activityID int64) (int64, error)
	CountActivities(ctx context.Context, q store.Getter, profileID string) (store.ActivityCounts, error)
	HasOtherPrimary(ctx context.Context, q store.Getter, profileID string, exceptID int64) (bool, error)
	ActivityRates(ctx context.Context, q store.Getter, userID string, activityCodeID int64) (models.ActivityRates, error)
}

type ActivityCodeStore interface {
	GetByID(ctx context.Context, q store.Getter, id int64) (models.ActivityCode, error)
}

type AnalyticsStore interface {
	Totals(ctx context.Context, filter ledger.Filter) (store.Totals, error)
	TimeSeries(ctx context.Context, filter ledger.Filter, granularity ledger.Granularity) ([]store.Bucket, error)
	CategoryBreakdown(ctx context.Context, filter ledger.Filter, limit int) ([]store.CategoryTotal, error)
	TaxableSplit(ctx context.Context, filter ledger.Filter) (store.TaxableSplit, error)
	ByPaymentMethod(ctx context.Context, filter ledger.Filter) ([]store.MethodTotal, error)
	ByActivity(ctx context.Context, filter ledger.Filter) ([]store.ActivityTotal, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type LedgerHub interface {
	BroadcastLedger(userID string, event websocket.LedgerEvent)
}

// DashboardInvalidator drops a user's cached dashboard.
type DashboardInvalidator interface {
	Invalidate(userID string)
}
