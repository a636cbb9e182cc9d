package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/store"
	"taxledger/internal/websocket"
)

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubCategoryStore struct {
	listVisibleFn    func(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error)
	getVisibleFn     func(ctx context.Context, q store.Getter, userID, categoryID string) (models.Category, error)
	createFn         func(ctx context.Context, tx store.Execer, category models.Category) error
	updateFn         func(ctx context.Context, tx store.Execer, userID string, category models.Category) (int64, error)
	deleteFn         func(ctx context.Context, tx store.Execer, userID, categoryID string) (int64, error)
	countOtherTypeFn func(ctx context.Context, q store.Getter, categoryID string, categoryType ledger.TransactionType) (int64, error)
}

func (s stubCategoryStore) ListVisible(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error) {
	if s.listVisibleFn == nil {
		return []models.Category{}, nil
	}
	return s.listVisibleFn(ctx, userID, categoryType)
}

func (s stubCategoryStore) GetVisible(ctx context.Context, q store.Getter, userID, categoryID string) (models.Category, error) {
	if s.getVisibleFn == nil {
		return models.Category{}, sql.ErrNoRows
	}
	return s.getVisibleFn(ctx, q, userID, categoryID)
}

func (s stubCategoryStore) Create(ctx context.Context, tx store.Execer, category models.Category) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, category)
}

func (s stubCategoryStore) Update(ctx context.Context, tx store.Execer, userID string, category models.Category) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, userID, category)
}

func (s stubCategoryStore) Delete(ctx context.Context, tx store.Execer, userID, categoryID string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, tx, userID, categoryID)
}

func (s stubCategoryStore) CountOtherType(ctx context.Context, q store.Getter, categoryID string, categoryType ledger.TransactionType) (int64, error) {
	if s.countOtherTypeFn == nil {
		return 0, nil
	}
	return s.countOtherTypeFn(ctx, q, categoryID, categoryType)
}

type stubTransactionStore struct {
	createFn  func(ctx context.Context, tx store.Execer, t models.Transaction) error
	updateFn  func(ctx context.Context, tx store.Execer, t models.Transaction) (int64, error)
	deleteFn  func(ctx context.Context, tx store.Execer, userID, transactionID string) (int64, error)
	getByIDFn func(ctx context.Context, q store.Getter, userID, transactionID string) (models.Transaction, error)
	listFn    func(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) ([]models.Transaction, error)
	countFn   func(ctx context.Context, filter ledger.Filter) (int64, error)
}

func (s stubTransactionStore) Create(ctx context.Context, tx store.Execer, t models.Transaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, t)
}

func (s stubTransactionStore) Update(ctx context.Context, tx store.Execer, t models.Transaction) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, t)
}

func (s stubTransactionStore) Delete(ctx context.Context, tx store.Execer, userID, transactionID string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, tx, userID, transactionID)
}

func (s stubTransactionStore) GetByID(ctx context.Context, q store.Getter, userID, transactionID string) (models.Transaction, error) {
	if s.getByIDFn == nil {
		return models.Transaction{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, q, userID, transactionID)
}

func (s stubTransactionStore) List(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) ([]models.Transaction, error) {
	if s.listFn == nil {
		return []models.Transaction{}, nil
	}
	return s.listFn(ctx, filter, ordering, limit, offset)
}

func (s stubTransactionStore) Count(ctx context.Context, filter ledger.Filter) (int64, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, filter)
}

type stubOrganizationStore struct {
	getByUserFn       func(ctx context.Context, q store.Getter, userID string) (models.OrganizationProfile, error)
	createFn          func(ctx context.Context, tx store.Execer, id, userID string) error
	updateFn          func(ctx context.Context, tx store.Execer, p models.OrganizationProfile) error
	listActivitiesFn  func(ctx context.Context, profileID string) ([]models.OrganizationActivity, error)
	getActivityFn     func(ctx context.Context, q store.Getter, profileID string, activityID int64) (models.OrganizationActivity, error)
	addActivityFn     func(ctx context.Context, tx store.Getter, a models.OrganizationActivity) (int64, error)
	updateActivityFn  func(ctx context.Context, tx store.Execer, a models.OrganizationActivity) (int64, error)
	deleteActivityFn  func(ctx context.Context, tx store.Execer, profileID string, activityID int64) (int64, error)
	countActivitiesFn func(ctx context.Context, q store.Getter, profileID string) (store.ActivityCounts, error)
	hasOtherPrimaryFn func(ctx context.Context, q store.Getter, profileID string, exceptID int64) (bool, error)
	activityRatesFn   func(ctx context.Context, q store.Getter, userID string, activityCodeID int64) (models.ActivityRates, error)
}

func (s stubOrganizationStore) GetByUser(ctx context.Context, q store.Getter, userID string) (models.OrganizationProfile, error) {
	if s.getByUserFn == nil {
		return models.OrganizationProfile{}, sql.ErrNoRows
	}
	return s.getByUserFn(ctx, q, userID)
}

func (s stubOrganizationStore) Create(ctx context.Context, tx store.Execer, id, userID string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, userID)
}

func (s stubOrganizationStore) Update(ctx context.Context, tx store.Execer, p models.OrganizationProfile) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, p)
}

func (s stubOrganizationStore) ListActivities(ctx context.Context, profileID string) ([]models.OrganizationActivity, error) {
	if s.listActivitiesFn == nil {
		return []models.OrganizationActivity{}, nil
	}
	return s.listActivitiesFn(ctx, profileID)
}

func (s stubOrganizationStore) GetActivity(ctx context.Context, q store.Getter, profileID string, activityID int64) (models.OrganizationActivity, error) {
	if s.getActivityFn == nil {
		return models.OrganizationActivity{ID: activityID, ProfileID: profileID}, nil
	}
	return s.getActivityFn(ctx, q, profileID, activityID)
}

func (s stubOrganizationStore) AddActivity(ctx context.Context, tx store.Getter, a models.OrganizationActivity) (int64, error) {
	if s.addActivityFn == nil {
		return 1, nil
	}
	return s.addActivityFn(ctx, tx, a)
}

func (s stubOrganizationStore) UpdateActivity(ctx context.Context, tx store.Execer, a models.OrganizationActivity) (int64, error) {
	if s.updateActivityFn == nil {
		return 1, nil
	}
	return s.updateActivityFn(ctx, tx, a)
}

func (s stubOrganizationStore) DeleteActivity(ctx context.Context, tx store.Execer, profileID string, activityID int64) (int64, error) {
	if s.deleteActivityFn == nil {
		return 1, nil
	}
	return s.deleteActivityFn(ctx, tx, profileID, activityID)
}

func (s stubOrganizationStore) CountActivities(ctx context.Context, q store.Getter, profileID string) (store.ActivityCounts, error) {
	if s.countActivitiesFn == nil {
		return store.ActivityCounts{}, nil
	}
	return s.countActivitiesFn(ctx, q, profileID)
}

func (s stubOrganizationStore) HasOtherPrimary(ctx context.Context, q store.Getter, profileID string, exceptID int64) (bool, error) {
	if s.hasOtherPrimaryFn == nil {
		return false, nil
	}
	return s.hasOtherPrimaryFn(ctx, q, profileID, exceptID)
}

func (s stubOrganizationStore) ActivityRates(ctx context.Context, q store.Getter, userID string, activityCodeID int64) (models.ActivityRates, error) {
	if s.activityRatesFn == nil {
		return models.ActivityRates{}, sql.ErrNoRows
	}
	return s.activityRatesFn(ctx, q, userID, activityCodeID)
}

type stubActivityCodeStore struct {
	getByIDFn func(ctx context.Context, q store.Getter, id int64) (models.ActivityCode, error)
}

func (s stubActivityCodeStore) GetByID(ctx context.Context, q store.Getter, id int64) (models.ActivityCode, error) {
	if s.getByIDFn == nil {
		return models.ActivityCode{ID: id}, nil
	}
	return s.getByIDFn(ctx, q, id)
}

type stubAnalyticsStore struct {
	totalsFn            func(ctx context.Context, filter ledger.Filter) (store.Totals, error)
	timeSeriesFn        func(ctx context.Context, filter ledger.Filter, granularity ledger.Granularity) ([]store.Bucket, error)
	categoryBreakdownFn func(ctx context.Context, filter ledger.Filter, limit int) ([]store.CategoryTotal, error)
	taxableSplitFn      func(ctx context.Context, filter ledger.Filter) (store.TaxableSplit, error)
	byPaymentMethodFn   func(ctx context.Context, filter ledger.Filter) ([]store.MethodTotal, error)
	byActivityFn        func(ctx context.Context, filter ledger.Filter) ([]store.ActivityTotal, error)
}

func (s stubAnalyticsStore) Totals(ctx context.Context, filter ledger.Filter) (store.Totals, error) {
	if s.totalsFn == nil {
		return store.Totals{}, nil
	}
	return s.totalsFn(ctx, filter)
}

func (s stubAnalyticsStore) TimeSeries(ctx context.Context, filter ledger.Filter, granularity ledger.Granularity) ([]store.Bucket, error) {
	if s.timeSeriesFn == nil {
		return []store.Bucket{}, nil
	}
	return s.timeSeriesFn(ctx, filter, granularity)
}

func (s stubAnalyticsStore) CategoryBreakdown(ctx context.Context, filter ledger.Filter, limit int) ([]store.CategoryTotal, error) {
	if s.categoryBreakdownFn == nil {
		return []store.CategoryTotal{}, nil
	}
	return s.categoryBreakdownFn(ctx, filter, limit)
}

func (s stubAnalyticsStore) TaxableSplit(ctx context.Context, filter ledger.Filter) (store.TaxableSplit, error) {
	if s.taxableSplitFn == nil {
		return store.TaxableSplit{}, nil
	}
	return s.taxableSplitFn(ctx, filter)
}

func (s stubAnalyticsStore) ByPaymentMethod(ctx context.Context, filter ledger.Filter) ([]store.MethodTotal, error) {
	if s.byPaymentMethodFn == nil {
		return []store.MethodTotal{}, nil
	}
	return s.byPaymentMethodFn(ctx, filter)
}

func (s stubAnalyticsStore) ByActivity(ctx context.Context, filter ledger.Filter) ([]store.ActivityTotal, error) {
	if s.byActivityFn == nil {
		return []store.ActivityTotal{}, nil
	}
	return s.byActivityFn(ctx, filter)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.LedgerEvent
}

func (s *stubHub) BroadcastLedger(_ string, event websocket.LedgerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, event)
}

type stubDashboard struct {
	invalidated []string
}

func (s *stubDashboard) Invalidate(userID string) {
	s.invalidated = append(s.invalidated, userID)
}
