package store

import (
	"context"
	"time"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
)

type CategoryStore struct {
	db DB
}

type categoryRow struct {
	ID           string    `db:"id"`
	UserID       *string   `db:"user_id"`
	Name         string    `db:"name"`
	CategoryType string    `db:"category_type"`
	IsSystem     bool      `db:"is_system"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r categoryRow) model() models.Category {
	return models.Category{
		ID:        r.ID,
		Name:      r.Name,
		Type:      ledger.TransactionType(r.CategoryType),
		Owner:     ledger.OwnershipFromColumn(r.UserID),
		CreatedAt: r.CreatedAt,
	}
}

const categoryColumns = `id, user_id, name, category_type, is_system, created_at`

func NewCategoryStore(db DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// ListVisible returns the user's own categories plus every system category.
func (s *CategoryStore) ListVisible(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE (user_id = $1 OR user_id IS NULL)`
	args := []any{userID}
	if categoryType != "" {
		query += ` AND category_type = $2`
		args = append(args, string(categoryType))
	}
	query += ` ORDER BY is_system DESC, name`

	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	categories := make([]models.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row.model())
	}
	return categories, nil
}

// GetVisible loads a category the user may attach to a transaction. It
// returns sql.ErrNoRows for another user's category.
func (s *CategoryStore) GetVisible(ctx context.Context, q Getter, userID, categoryID string) (models.Category, error) {
	var row categoryRow
	err := q.GetContext(ctx, &row, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)
	`, categoryID, userID)
	if err != nil {
		return models.Category{}, err
	}
	return row.model(), nil
}

func (s *CategoryStore) Create(ctx context.Context, tx Execer, category models.Category) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, category_type, is_system)
		VALUES ($1, $2, $3, $4, $5)
	`, category.ID, ledger.OwnerColumn(category.Owner), category.Name, string(category.Type), category.IsSystem())
	return err
}

// Update touches only categories owned by userID.
func (s *CategoryStore) Update(ctx context.Context, tx Execer, userID string, category models.Category) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE categories
		SET name = $1, category_type = $2
		WHERE id = $3 AND user_id = $4
	`, category.Name, string(category.Type), category.ID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *CategoryStore) Delete(ctx context.Context, tx Execer, userID, categoryID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, categoryID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountOtherType counts transactions filed under the category whose type
// differs from categoryType.
func (s *CategoryStore) CountOtherType(ctx context.Context, q Getter, categoryID string, categoryType ledger.TransactionType) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM transactions WHERE category_id = $1 AND transaction_type <> $2
	`, categoryID, string(categoryType))
	return count, err
}
