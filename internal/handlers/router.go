package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"taxledger/internal/config"
	"taxledger/internal/db"
	"taxledger/internal/logging"
	"taxledger/internal/middleware"
	"taxledger/internal/taxperiod"
	"taxledger/internal/websocket"
)

type Deps struct {
	Config       config.Config
	TxRunner     db.TxRunner
	Users        UserStore
	Audit        AuditStore
	Activities   ActivityDirectory
	Organization OrganizationService
	Categories   CategoryService
	Transactions TransactionService
	Dashboard    DashboardService
	Analytics    AnalyticsService
	TaxReports   TaxReportService
	Hub          *websocket.Hub
	Logger       *logrus.Logger
}

type Handler struct {
	cfg          config.Config
	txRunner     db.TxRunner
	users        UserStore
	audit        AuditStore
	activities   ActivityDirectory
	organization OrganizationService
	categories   CategoryService
	transactions TransactionService
	dashboard    DashboardService
	analytics    AnalyticsService
	reports      TaxReportService
	hub          *websocket.Hub
	upgrader     gorillaws.Upgrader
	log          *logrus.Logger
	today        func() time.Time
}

func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	loc := deps.Config.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		cfg:          deps.Config,
		txRunner:     deps.TxRunner,
		users:        deps.Users,
		audit:        deps.Audit,
		activities:   deps.Activities,
		organization: deps.Organization,
		categories:   deps.Categories,
		transactions: deps.Transactions,
		dashboard:    deps.Dashboard,
		analytics:    deps.Analytics,
		reports:      deps.TaxReports,
		hub:          deps.Hub,
		upgrader:     websocket.Upgrader(deps.Config.Origins()),
		log:          logger,
		today:        func() time.Time { return taxperiod.Today(loc) },
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(logging.Middleware(h.log))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := middleware.Auth(h.cfg.JWTSecret)
	requireOnboarding := middleware.RequireOnboarding(h.organization, h.log)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(requireAuth).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Route("/organization", func(r chi.Router) {
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Get("/status", h.OnboardingStatus)
			r.Post("/finalize", h.FinalizeOnboarding)
			r.Get("/tax-period", h.CurrentTaxPeriod)
			r.Get("/activities", h.ListOrganizationActivities)
			r.Post("/activities", h.AddOrganizationActivity)
			r.Put("/activities/{id}", h.UpdateOrganizationActivity)
			r.Delete("/activities/{id}", h.DeleteOrganizationActivity)
		})
		r.Get("/activities", h.ListActivityCodes)
		r.Get("/audit", h.ListAuditLog)
	})

	router.Group(func(r chi.Router) {
		r.Use(requireAuth, requireOnboarding)
		r.Get("/categories", h.ListCategories)
		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)

		r.Get("/transactions", h.ListTransactions)
		r.Post("/transactions", h.CreateTransaction)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Put("/transactions/{id}", h.UpdateTransaction)
		r.Delete("/transactions/{id}", h.DeleteTransaction)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/analytics/time-series", h.TimeSeries)
		r.Get("/analytics/category-breakdown", h.CategoryBreakdown)
		r.Get("/analytics/period-comparison", h.PeriodComparison)
		r.Get("/tax-reports", h.TaxReport)
		r.Post("/tax-reports/unified", h.UnifiedTaxReport)
	})

	router.Get("/ws/ledger", h.WSLedger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
