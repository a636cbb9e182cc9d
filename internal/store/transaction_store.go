package store

import (
	"context"
	"strconv"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionSelect = `
	SELECT t.id, t.user_id, t.transaction_type, t.category_id, c.name AS category_name,
	       t.activity_code_id, a.name AS activity_name, t.amount, t.description,
	       t.transaction_date, t.payment_method, t.is_business, t.is_taxable,
	       t.cash_tax_rate, t.non_cash_tax_rate, t.created_at, t.updated_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN activity_codes a ON a.id = t.activity_code_id
`

var transactionOrderings = map[string]string{
	"transaction_date":  "t.transaction_date ASC, t.created_at ASC",
	"-transaction_date": "t.transaction_date DESC, t.created_at DESC",
	"amount":            "t.amount ASC, t.created_at DESC",
	"-amount":           "t.amount DESC, t.created_at DESC",
	"created_at":        "t.created_at ASC",
	"-created_at":       "t.created_at DESC",
}

// ValidOrdering reports whether ordering is accepted by List.
func ValidOrdering(ordering string) bool {
	_, ok := transactionOrderings[ordering]
	return ordering == "" || ok
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, transaction_type, category_id, activity_code_id, amount, description,
			transaction_date, payment_method, is_business, is_taxable, cash_tax_rate, non_cash_tax_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		t.ID, t.UserID, string(t.Type), t.CategoryID, t.ActivityCodeID, t.Amount, t.Description,
		t.TransactionDate.Format("2006-01-02"), string(t.PaymentMethod), t.IsBusiness, t.IsTaxable,
		t.CashTaxRate, t.NonCashTaxRate,
	)
	return err
}

// Update rewrites every mutable column of a transaction owned by t.UserID.
func (s *TransactionStore) Update(ctx context.Context, tx Execer, t models.Transaction) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET transaction_type = $1, category_id = $2, activity_code_id = $3, amount = $4,
		    description = $5, transaction_date = $6, payment_method = $7, is_business = $8,
		    is_taxable = $9, cash_tax_rate = $10, non_cash_tax_rate = $11, updated_at = now()
		WHERE id = $12 AND user_id = $13
	`,
		string(t.Type), t.CategoryID, t.ActivityCodeID, t.Amount,
		t.Description, t.TransactionDate.Format("2006-01-02"), string(t.PaymentMethod), t.IsBusiness,
		t.IsTaxable, t.CashTaxRate, t.NonCashTaxRate,
		t.ID, t.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *TransactionStore) Delete(ctx context.Context, tx Execer, userID, transactionID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, transactionID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetByID returns sql.ErrNoRows when the transaction belongs to someone else.
func (s *TransactionStore) GetByID(ctx context.Context, q Getter, userID, transactionID string) (models.Transaction, error) {
	var t models.Transaction
	err := q.GetContext(ctx, &t, transactionSelect+` WHERE t.id = $1 AND t.user_id = $2`, transactionID, userID)
	return t, err
}

func (s *TransactionStore) List(ctx context.Context, filter ledger.Filter, ordering string, limit, offset int) ([]models.Transaction, error) {
	where, args := filter.Where("t")
	order, ok := transactionOrderings[ordering]
	if !ok {
		order = transactionOrderings["-transaction_date"]
	}
	next := len(args) + 1
	query := transactionSelect + ` WHERE ` + where + ` ORDER BY ` + order +
		` LIMIT $` + strconv.Itoa(next) + ` OFFSET $` + strconv.Itoa(next+1)
	args = append(args, limit, offset)

	var rows []models.Transaction
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Transaction{}
	}
	return rows, nil
}

func (s *TransactionStore) Count(ctx context.Context, filter ledger.Filter) (int64, error) {
	where, args := filter.Where("t")
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM transactions t WHERE `+where, args...)
	return count, err
}
