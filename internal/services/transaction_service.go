package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"taxledger/internal/db"
	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/money"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
	"taxledger/internal/websocket"
)

// TransactionService owns the ledger write path. Every create, update and
// delete runs validation, the category check, the rate snapshot and the
// write inside one database transaction.
type TransactionService struct {
	txRunner      db.TxRunner
	reader        store.Getter
	categories    CategoryStore
	transactions  TransactionStore
	organizations OrganizationStore
	activityCodes ActivityCodeStore
	audit         AuditStore
	dashboard     DashboardInvalidator
	hub           LedgerHub
	maxAmount     decimal.Decimal
	log           logrus.FieldLogger
}

type TransactionDeps struct {
	TxRunner      db.TxRunner
	Reader        store.Getter
	Categories    CategoryStore
	Transactions  TransactionStore
	Organizations OrganizationStore
	ActivityCodes ActivityCodeStore
	Audit         AuditStore
	Dashboard     DashboardInvalidator
	Hub           LedgerHub
	MaxAmount     decimal.Decimal
	Logger        logrus.FieldLogger
}

func NewTransactionService(deps TransactionDeps) *TransactionService {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TransactionService{
		txRunner:      deps.TxRunner,
		reader:        deps.Reader,
		categories:    deps.Categories,
		transactions:  deps.Transactions,
		organizations: deps.Organizations,
		activityCodes: deps.ActivityCodes,
		audit:         deps.Audit,
		dashboard:     deps.Dashboard,
		hub:           deps.Hub,
		maxAmount:     deps.MaxAmount,
		log:           logger,
	}
}

type TransactionInput struct {
	UserID          string
	Type            ledger.TransactionType
	Amount          decimal.Decimal
	CategoryID      *string
	ActivityCodeID  *int64
	Description     string
	TransactionDate time.Time
	PaymentMethod   ledger.PaymentMethod
	IsBusiness      bool
	IsTaxable       bool
}

func (s *TransactionService) validate(in TransactionInput) error {
	verr := &ValidationError{}
	if !in.Type.Valid() {
		verr.Add("transaction_type", "must be income or expense")
	}
	if err := money.ValidateAmount(in.Amount, s.maxAmount); err != nil {
		verr.Add("amount", err.Error())
	}
	if !in.PaymentMethod.Valid() {
		verr.Add("payment_method", "must be cash or non_cash")
	}
	if in.TransactionDate.IsZero() {
		verr.Add("transaction_date", "is required")
	}
	if in.IsBusiness && in.ActivityCodeID == nil {
		verr.Add("activity_code", "business transactions require an activity code")
	}
	return verr.OrNil()
}

func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (models.Transaction, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = ledger.NonCash
	}
	if err := s.validate(in); err != nil {
		return models.Transaction{}, err
	}
	t := models.Transaction{ID: uuid.NewString(), UserID: in.UserID}
	var saved models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.prepare(ctx, tx, &t, in); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, t); err != nil {
			return err
		}
		if err := s.logAudit(ctx, tx, in.UserID, "transaction.create", t); err != nil {
			return err
		}
		var err error
		saved, err = s.reload(ctx, tx, t)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.afterWrite(in.UserID, "created", saved)
	return saved, nil
}

func (s *TransactionService) Update(ctx context.Context, transactionID string, in TransactionInput) (models.Transaction, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = ledger.NonCash
	}
	if err := s.validate(in); err != nil {
		return models.Transaction{}, err
	}
	var saved models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.transactions.GetByID(ctx, tx, in.UserID, transactionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if err := s.prepare(ctx, tx, &current, in); err != nil {
			return err
		}
		rows, err := s.transactions.Update(ctx, tx, current)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		if err := s.logAudit(ctx, tx, in.UserID, "transaction.update", current); err != nil {
			return err
		}
		saved, err = s.reload(ctx, tx, current)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.afterWrite(in.UserID, "updated", saved)
	return saved, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, transactionID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.Delete(ctx, tx, userID, transactionID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return s.audit.Log(ctx, tx, userID, "transaction.delete", "transaction", transactionID, "")
	})
	if err != nil {
		return err
	}
	s.afterWrite(userID, "deleted", models.Transaction{ID: transactionID})
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, transactionID string) (models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, s.reader, userID, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrNotFound
	}
	return t, err
}

type TransactionPage struct {
	Count int64
	Items []models.Transaction
}

func (s *TransactionService) List(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) (TransactionPage, error) {
	items, err := s.transactions.List(ctx, filter, ordering, limit, offset)
	if err != nil {
		return TransactionPage{}, err
	}
	count, err := s.transactions.Count(ctx, filter)
	if err != nil {
		return TransactionPage{}, err
	}
	return TransactionPage{Count: count, Items: items}, nil
}

// prepare copies in onto t after checking the category and activity against
// the user's data, snapshotting the activity's rates for business writes.
func (s *TransactionService) prepare(ctx context.Context, tx *sqlx.Tx, t *models.Transaction, in TransactionInput) error {
	if in.CategoryID != nil {
		category, err := s.categories.GetVisible(ctx, tx, in.UserID, *in.CategoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NewValidationError("category", "category not found")
			}
			return err
		}
		if category.Type != in.Type {
			return NewValidationError("category", "category type "+string(category.Type)+" does not match transaction type "+string(in.Type))
		}
	}

	t.CashTaxRate = decimal.NullDecimal{}
	t.NonCashTaxRate = decimal.NullDecimal{}
	if in.ActivityCodeID != nil {
		if in.IsBusiness {
			rates, err := s.organizations.ActivityRates(ctx, tx, in.UserID, *in.ActivityCodeID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return NewValidationError("activity_code", "activity is not configured for your organization")
				}
				return err
			}
			t.CashTaxRate = decimal.NewNullDecimal(rates.CashTaxRate)
			t.NonCashTaxRate = decimal.NewNullDecimal(rates.NonCashTaxRate)
		} else if _, err := s.activityCodes.GetByID(ctx, tx, *in.ActivityCodeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NewValidationError("activity_code", "activity code not found")
			}
			return err
		}
	}

	t.Type = in.Type
	t.Amount = in.Amount
	t.CategoryID = in.CategoryID
	t.ActivityCodeID = in.ActivityCodeID
	t.Description = in.Description
	t.TransactionDate = taxperiod.Civil(in.TransactionDate)
	t.PaymentMethod = in.PaymentMethod
	t.IsBusiness = in.IsBusiness
	t.IsTaxable = in.IsTaxable
	return nil
}

func (s *TransactionService) reload(ctx context.Context, tx *sqlx.Tx, t models.Transaction) (models.Transaction, error) {
	saved, err := s.transactions.GetByID(ctx, tx, t.UserID, t.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	return saved, nil
}

func (s *TransactionService) logAudit(ctx context.Context, tx *sqlx.Tx, userID, action string, t models.Transaction) error {
	data, _ := json.Marshal(map[string]any{
		"transaction_type": t.Type,
		"amount":           money.Format(t.Amount),
		"transaction_date": taxperiod.FormatDate(t.TransactionDate),
		"is_business":      t.IsBusiness,
	})
	return s.audit.Log(ctx, tx, userID, action, "transaction", t.ID, string(data))
}

// afterWrite runs once the write has committed.
func (s *TransactionService) afterWrite(userID, action string, t models.Transaction) {
	s.dashboard.Invalidate(userID)
	event := websocket.LedgerEvent{Action: action, TransactionID: t.ID}
	if !t.TransactionDate.IsZero() {
		event.TransactionDate = taxperiod.FormatDate(t.TransactionDate)
	}
	s.hub.BroadcastLedger(userID, event)
	s.log.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": t.ID,
		"action":         action,
	}).Debug("ledger.write")
}
