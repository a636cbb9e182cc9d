package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"taxledger/internal/auth"
	"taxledger/internal/config"
	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/services"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
	"taxledger/internal/websocket"
)

const testSecret = "secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, actorID string, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return []store.AuditEntry{}, nil
	}
	return s.listFn(ctx, actorID, limit, offset)
}

type stubActivityDirectory struct {
	searchFn func(ctx context.Context, search string, limit int) ([]models.ActivityCode, error)
}

func (s stubActivityDirectory) Search(ctx context.Context, search string, limit int) ([]models.ActivityCode, error) {
	if s.searchFn == nil {
		return []models.ActivityCode{}, nil
	}
	return s.searchFn(ctx, search, limit)
}

// stubOrganization reports a completed profile unless existingFn says
// otherwise, so onboarding-gated routes are reachable by default.
type stubOrganization struct {
	profileFn        func(ctx context.Context, userID string) (models.OrganizationProfile, error)
	existingFn       func(ctx context.Context, userID string) (models.OrganizationProfile, error)
	updateProfileFn  func(ctx context.Context, userID string, update services.ProfileUpdate) (models.OrganizationProfile, error)
	statusFn         func(ctx context.Context, userID string) (services.OnboardingState, error)
	finalizeFn       func(ctx context.Context, userID string) (models.OrganizationProfile, error)
	taxPeriodFn      func(ctx context.Context, userID string) (services.TaxPeriodView, error)
	activitiesFn     func(ctx context.Context, userID string) ([]models.OrganizationActivity, error)
	addActivityFn    func(ctx context.Context, userID string, in services.ActivityInput) (models.OrganizationActivity, error)
	updateActivityFn func(ctx context.Context, userID string, activityID int64, in services.ActivityInput) (models.OrganizationActivity, error)
	deleteActivityFn func(ctx context.Context, userID string, activityID int64) error
}

func (s stubOrganization) Profile(ctx context.Context, userID string) (models.OrganizationProfile, error) {
	if s.profileFn == nil {
		return models.OrganizationProfile{UserID: userID, OnboardingStatus: models.OnboardingNotStarted}, nil
	}
	return s.profileFn(ctx, userID)
}

func (s stubOrganization) Existing(ctx context.Context, userID string) (models.OrganizationProfile, error) {
	if s.existingFn == nil {
		return models.OrganizationProfile{UserID: userID, OnboardingStatus: models.OnboardingCompleted}, nil
	}
	return s.existingFn(ctx, userID)
}

func (s stubOrganization) UpdateProfile(ctx context.Context, userID string, update services.ProfileUpdate) (models.OrganizationProfile, error) {
	if s.updateProfileFn == nil {
		return models.OrganizationProfile{UserID: userID}, nil
	}
	return s.updateProfileFn(ctx, userID, update)
}

func (s stubOrganization) Status(ctx context.Context, userID string) (services.OnboardingState, error) {
	if s.statusFn == nil {
		return services.OnboardingState{OnboardingStatus: models.OnboardingNotStarted}, nil
	}
	return s.statusFn(ctx, userID)
}

func (s stubOrganization) Finalize(ctx context.Context, userID string) (models.OrganizationProfile, error) {
	if s.finalizeFn == nil {
		return models.OrganizationProfile{UserID: userID, OnboardingStatus: models.OnboardingCompleted}, nil
	}
	return s.finalizeFn(ctx, userID)
}

func (s stubOrganization) TaxPeriod(ctx context.Context, userID string) (services.TaxPeriodView, error) {
	if s.taxPeriodFn == nil {
		return services.TaxPeriodView{}, services.ErrProfileNotFound
	}
	return s.taxPeriodFn(ctx, userID)
}

func (s stubOrganization) Activities(ctx context.Context, userID string) ([]models.OrganizationActivity, error) {
	if s.activitiesFn == nil {
		return nil, nil
	}
	return s.activitiesFn(ctx, userID)
}

func (s stubOrganization) AddActivity(ctx context.Context, userID string, in services.ActivityInput) (models.OrganizationActivity, error) {
	if s.addActivityFn == nil {
		return models.OrganizationActivity{ID: 1, ActivityCodeID: in.ActivityCodeID}, nil
	}
	return s.addActivityFn(ctx, userID, in)
}

func (s stubOrganization) UpdateActivity(ctx context.Context, userID string, activityID int64, in services.ActivityInput) (models.OrganizationActivity, error) {
	if s.updateActivityFn == nil {
		return models.OrganizationActivity{ID: activityID, ActivityCodeID: in.ActivityCodeID}, nil
	}
	return s.updateActivityFn(ctx, userID, activityID, in)
}

func (s stubOrganization) DeleteActivity(ctx context.Context, userID string, activityID int64) error {
	if s.deleteActivityFn == nil {
		return nil
	}
	return s.deleteActivityFn(ctx, userID, activityID)
}

type stubCategories struct {
	listFn   func(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error)
	createFn func(ctx context.Context, userID string, in services.CategoryInput) (models.Category, error)
	updateFn func(ctx context.Context, userID, categoryID string, in services.CategoryInput) (models.Category, error)
	deleteFn func(ctx context.Context, userID, categoryID string) error
}

func (s stubCategories) List(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, categoryType)
}

func (s stubCategories) Create(ctx context.Context, userID string, in services.CategoryInput) (models.Category, error) {
	if s.createFn == nil {
		return models.Category{Name: in.Name, Type: in.Type, Owner: ledger.UserOwned{UserID: userID}}, nil
	}
	return s.createFn(ctx, userID, in)
}

func (s stubCategories) Update(ctx context.Context, userID, categoryID string, in services.CategoryInput) (models.Category, error) {
	if s.updateFn == nil {
		return models.Category{ID: categoryID, Name: in.Name, Type: in.Type, Owner: ledger.UserOwned{UserID: userID}}, nil
	}
	return s.updateFn(ctx, userID, categoryID, in)
}

func (s stubCategories) Delete(ctx context.Context, userID, categoryID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, userID, categoryID)
}

type stubTransactions struct {
	createFn func(ctx context.Context, in services.TransactionInput) (models.Transaction, error)
	updateFn func(ctx context.Context, transactionID string, in services.TransactionInput) (models.Transaction, error)
	deleteFn func(ctx context.Context, userID, transactionID string) error
	getFn    func(ctx context.Context, userID, transactionID string) (models.Transaction, error)
	listFn   func(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) (services.TransactionPage, error)
}

func (s stubTransactions) Create(ctx context.Context, in services.TransactionInput) (models.Transaction, error) {
	if s.createFn == nil {
		return models.Transaction{}, nil
	}
	return s.createFn(ctx, in)
}

func (s stubTransactions) Update(ctx context.Context, transactionID string, in services.TransactionInput) (models.Transaction, error) {
	if s.updateFn == nil {
		return models.Transaction{ID: transactionID}, nil
	}
	return s.updateFn(ctx, transactionID, in)
}

func (s stubTransactions) Delete(ctx context.Context, userID, transactionID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, userID, transactionID)
}

func (s stubTransactions) Get(ctx context.Context, userID, transactionID string) (models.Transaction, error) {
	if s.getFn == nil {
		return models.Transaction{}, services.ErrNotFound
	}
	return s.getFn(ctx, userID, transactionID)
}

func (s stubTransactions) List(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) (services.TransactionPage, error) {
	if s.listFn == nil {
		return services.TransactionPage{}, nil
	}
	return s.listFn(ctx, filter, ordering, limit, offset)
}

type stubDashboard struct {
	getFn func(ctx context.Context, userID string) (services.Dashboard, error)
}

func (s stubDashboard) Get(ctx context.Context, userID string) (services.Dashboard, error) {
	if s.getFn == nil {
		return services.Dashboard{}, nil
	}
	return s.getFn(ctx, userID)
}

type stubAnalytics struct {
	timeSeriesFn func(ctx context.Context, q services.TimeSeriesQuery) ([]services.SeriesPoint, services.Range, error)
	breakdownFn  func(ctx context.Context, q services.BreakdownQuery) ([]store.CategoryTotal, error)
	compareFn    func(ctx context.Context, userID string, p1, p2 taxperiod.Period) (services.Comparison, error)
}

func (s stubAnalytics) TimeSeries(ctx context.Context, q services.TimeSeriesQuery) ([]services.SeriesPoint, services.Range, error) {
	if s.timeSeriesFn == nil {
		return nil, q.Range, nil
	}
	return s.timeSeriesFn(ctx, q)
}

func (s stubAnalytics) CategoryBreakdown(ctx context.Context, q services.BreakdownQuery) ([]store.CategoryTotal, error) {
	if s.breakdownFn == nil {
		return nil, nil
	}
	return s.breakdownFn(ctx, q)
}

func (s stubAnalytics) ComparePeriods(ctx context.Context, userID string, p1, p2 taxperiod.Period) (services.Comparison, error) {
	if s.compareFn == nil {
		return services.Comparison{}, nil
	}
	return s.compareFn(ctx, userID, p1, p2)
}

type stubReports struct {
	buildFn   func(ctx context.Context, req services.ReportRequest) (services.TaxReport, error)
	unifiedFn func(ctx context.Context, userID string, year, quarter int) (services.UnifiedTaxReport, error)
}

func (s stubReports) UnifiedQuarter(ctx context.Context, userID string, year, quarter int) (services.UnifiedTaxReport, error) {
	if s.unifiedFn == nil {
		return services.UnifiedTaxReport{}, nil
	}
	return s.unifiedFn(ctx, userID, year, quarter)
}

func (s stubReports) Build(ctx context.Context, req services.ReportRequest) (services.TaxReport, error) {
	if s.buildFn == nil {
		return services.TaxReport{}, nil
	}
	return s.buildFn(ctx, req)
}

// newTestHandler fills every dependency the test leaves unset with a stub.
func newTestHandler(deps Deps) http.Handler {
	if deps.Config.JWTSecret == "" {
		deps.Config = config.Config{
			JWTSecret:      testSecret,
			TokenTTL:       time.Minute,
			AllowedOrigins: "*",
			Location:       time.UTC,
		}
	}
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Activities == nil {
		deps.Activities = stubActivityDirectory{}
	}
	if deps.Organization == nil {
		deps.Organization = stubOrganization{}
	}
	if deps.Categories == nil {
		deps.Categories = stubCategories{}
	}
	if deps.Transactions == nil {
		deps.Transactions = stubTransactions{}
	}
	if deps.Dashboard == nil {
		deps.Dashboard = stubDashboard{}
	}
	if deps.Analytics == nil {
		deps.Analytics = stubAnalytics{}
	}
	if deps.TaxReports == nil {
		deps.TaxReports = stubReports{}
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub()
	}
	if deps.Logger == nil {
		deps.Logger, _ = test.NewNullLogger()
	}
	return New(deps).Routes()
}

// serve sends the request through the router, authenticated as userID
// unless userID is empty.
func serve(t *testing.T, handler http.Handler, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := auth.GenerateToken(testSecret, userID, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	return payload
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	return payload
}

func stringPtr(value string) *string {
	return &value
}
