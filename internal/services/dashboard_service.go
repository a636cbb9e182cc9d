package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"taxledger/internal/cache"
	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/money"
	"taxledger/internal/taxperiod"
)

const (
	recentTransactionsLimit = 10
	dashboardCategoryLimit  = 50
)

type DashboardTotals struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
}

type DashboardCategory struct {
	CategoryName string `json:"category_name"`
	CategoryType string `json:"category_type"`
	Total        string `json:"total"`
}

type RecentTransaction struct {
	ID              string  `json:"id"`
	Amount          string  `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	CategoryName    *string `json:"category_name"`
	Description     string  `json:"description"`
	TransactionDate string  `json:"transaction_date"`
	CreatedAt       string  `json:"created_at"`
	PaymentMethod   string  `json:"payment_method"`
}

type Dashboard struct {
	Totals             DashboardTotals     `json:"totals"`
	ByCategory         []DashboardCategory `json:"by_category"`
	RecentTransactions []RecentTransaction `json:"recent_transactions"`
}

// DashboardService serves the per-user summary out of a short-lived cache.
// The cache is owned by the caller and shared with the write path through
// Invalidate.
type DashboardService struct {
	analytics    AnalyticsStore
	transactions TransactionStore
	cache        *cache.TTL[Dashboard]
	log          logrus.FieldLogger
}

func NewDashboardService(analytics AnalyticsStore, transactions TransactionStore, c *cache.TTL[Dashboard], logger logrus.FieldLogger) *DashboardService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DashboardService{analytics: analytics, transactions: transactions, cache: c, log: logger}
}

func (s *DashboardService) Get(ctx context.Context, userID string) (Dashboard, error) {
	return s.cache.GetOrLoad(ctx, userID, func(ctx context.Context) (Dashboard, error) {
		return s.load(ctx, userID)
	})
}

func (s *DashboardService) Invalidate(userID string) {
	s.cache.Delete(userID)
	s.log.WithField("user_id", userID).Debug("dashboard.invalidated")
}

func (s *DashboardService) load(ctx context.Context, userID string) (Dashboard, error) {
	filter := ledger.Filter{UserID: userID}
	totals, err := s.analytics.Totals(ctx, filter)
	if err != nil {
		return Dashboard{}, err
	}
	categories, err := s.analytics.CategoryBreakdown(ctx, filter, dashboardCategoryLimit)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.transactions.List(ctx, filter, "-transaction_date", recentTransactionsLimit, 0)
	if err != nil {
		return Dashboard{}, err
	}

	dashboard := Dashboard{
		Totals: DashboardTotals{
			TotalIncome:  money.Format(totals.Income),
			TotalExpense: money.Format(totals.Expense),
		},
		ByCategory:         make([]DashboardCategory, 0, len(categories)),
		RecentTransactions: make([]RecentTransaction, 0, len(recent)),
	}
	for _, c := range categories {
		dashboard.ByCategory = append(dashboard.ByCategory, DashboardCategory{
			CategoryName: c.CategoryName,
			CategoryType: c.CategoryType,
			Total:        money.Format(c.Total),
		})
	}
	for _, t := range recent {
		dashboard.RecentTransactions = append(dashboard.RecentTransactions, recentTransaction(t))
	}
	return dashboard, nil
}

func recentTransaction(t models.Transaction) RecentTransaction {
	return RecentTransaction{
		ID:              t.ID,
		Amount:          money.Format(t.Amount),
		TransactionType: string(t.Type),
		CategoryName:    t.CategoryName,
		Description:     t.Description,
		TransactionDate: taxperiod.FormatDate(t.TransactionDate),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		PaymentMethod:   string(t.PaymentMethod),
	}
}
