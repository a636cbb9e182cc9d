package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"taxledger/internal/db"
	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/store"
)

const maxCategoryName = 100

type CategoryService struct {
	txRunner   db.TxRunner
	categories CategoryStore
	audit      AuditStore
	dashboard  DashboardInvalidator
}

func NewCategoryService(txRunner db.TxRunner, categories CategoryStore, audit AuditStore, dashboard DashboardInvalidator) *CategoryService {
	return &CategoryService{txRunner: txRunner, categories: categories, audit: audit, dashboard: dashboard}
}

type CategoryInput struct {
	Name string
	Type ledger.TransactionType
}

func (in *CategoryInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	verr := &ValidationError{}
	if in.Name == "" {
		verr.Add("name", "is required")
	} else if utf8.RuneCountInString(in.Name) > maxCategoryName {
		verr.Add("name", "must be at most 100 characters")
	}
	if !in.Type.Valid() {
		verr.Add("category_type", "must be income or expense")
	}
	return verr.OrNil()
}

// List returns the user's categories and the system ones. An empty type
// lists both kinds.
func (s *CategoryService) List(ctx context.Context, userID string, categoryType ledger.TransactionType) ([]models.Category, error) {
	if categoryType != "" && !categoryType.Valid() {
		return nil, NewValidationError("category_type", "must be income or expense")
	}
	return s.categories.ListVisible(ctx, userID, categoryType)
}

func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (models.Category, error) {
	if err := in.normalize(); err != nil {
		return models.Category{}, err
	}
	category := models.Category{
		ID:    uuid.NewString(),
		Name:  in.Name,
		Type:  in.Type,
		Owner: ledger.UserOwned{UserID: userID},
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.categories.Create(ctx, tx, category); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		return s.logAudit(ctx, tx, userID, "category.create", category)
	})
	if err != nil {
		return models.Category{}, err
	}
	return category, nil
}

// Update renames or retypes a category owned by userID. A type change is
// refused while transactions of the old type still reference it.
func (s *CategoryService) Update(ctx context.Context, userID, categoryID string, in CategoryInput) (models.Category, error) {
	if err := in.normalize(); err != nil {
		return models.Category{}, err
	}
	var category models.Category
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		category, err = s.modifiable(ctx, tx, userID, categoryID)
		if err != nil {
			return err
		}
		if category.Type != in.Type {
			used, err := s.categories.CountOtherType(ctx, tx, categoryID, in.Type)
			if err != nil {
				return err
			}
			if used > 0 {
				return NewValidationError("category_type", "category is used by transactions of another type")
			}
		}
		category.Name = in.Name
		category.Type = in.Type
		rows, err := s.categories.Update(ctx, tx, userID, category)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return s.logAudit(ctx, tx, userID, "category.update", category)
	})
	if err != nil {
		return models.Category{}, err
	}
	s.dashboard.Invalidate(userID)
	return category, nil
}

// Delete removes the category; its transactions become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		category, err := s.modifiable(ctx, tx, userID, categoryID)
		if err != nil {
			return err
		}
		rows, err := s.categories.Delete(ctx, tx, userID, categoryID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return s.logAudit(ctx, tx, userID, "category.delete", category)
	})
	if err != nil {
		return err
	}
	s.dashboard.Invalidate(userID)
	return nil
}

// modifiable loads a category userID may change. System categories are
// ErrForbidden; anything else userID cannot see is ErrNotFound.
func (s *CategoryService) modifiable(ctx context.Context, q store.Getter, userID, categoryID string) (models.Category, error) {
	category, err := s.categories.GetVisible(ctx, q, userID, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Category{}, ErrNotFound
		}
		return models.Category{}, err
	}
	if category.IsSystem() {
		return models.Category{}, ErrForbidden
	}
	if !category.Owner.CanModify(userID) {
		return models.Category{}, ErrNotFound
	}
	return category, nil
}

func (s *CategoryService) logAudit(ctx context.Context, tx *sqlx.Tx, userID, action string, category models.Category) error {
	data, _ := json.Marshal(map[string]any{
		"name":          category.Name,
		"category_type": category.Type,
	})
	return s.audit.Log(ctx, tx, userID, action, "category", category.ID, string(data))
}
