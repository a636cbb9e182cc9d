package services

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/store"
)

func visible(categories ...models.Category) func(context.Context, store.Getter, string, string) (models.Category, error) {
	return func(_ context.Context, _ store.Getter, _ string, id string) (models.Category, error) {
		for _, c := range categories {
			if c.ID == id {
				return c, nil
			}
		}
		return stubCategoryStore{}.GetVisible(context.Background(), nil, "", id)
	}
}

var (
	salary = models.Category{ID: "sys-1", Name: "Зарплата", Type: ledger.Income, Owner: ledger.System{}}
	coffee = models.Category{ID: "own-1", Name: "Coffee", Type: ledger.Expense, Owner: ledger.UserOwned{UserID: "user-1"}}
)

func TestCreateCategoryIsUserOwned(t *testing.T) {
	var created models.Category
	categories := stubCategoryStore{
		createFn: func(_ context.Context, _ store.Execer, c models.Category) error {
			created = c
			return nil
		},
	}
	svc := NewCategoryService(fakeTxRunner{}, categories, stubAuditStore{}, &stubDashboard{})

	result, err := svc.Create(context.Background(), "user-1", CategoryInput{Name: "  Freelance ", Type: ledger.Income})
	require.NoError(t, err)
	assert.Equal(t, "Freelance", result.Name)
	assert.Equal(t, ledger.UserOwned{UserID: "user-1"}, created.Owner)
	assert.False(t, created.IsSystem())
}

func TestCreateCategoryDuplicateConflicts(t *testing.T) {
	categories := stubCategoryStore{
		createFn: func(context.Context, store.Execer, models.Category) error {
			return &pq.Error{Code: "23505"}
		},
	}
	svc := NewCategoryService(fakeTxRunner{}, categories, stubAuditStore{}, &stubDashboard{})

	_, err := svc.Create(context.Background(), "user-1", CategoryInput{Name: "Coffee", Type: ledger.Expense})
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateCategoryValidates(t *testing.T) {
	svc := NewCategoryService(fakeTxRunner{}, stubCategoryStore{}, stubAuditStore{}, &stubDashboard{})
	_, err := svc.Create(context.Background(), "user-1", CategoryInput{Name: " ", Type: "transfer"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "category_type")
}

func TestSystemCategoryIsReadOnly(t *testing.T) {
	categories := stubCategoryStore{
		getVisibleFn: visible(salary),
		updateFn: func(context.Context, store.Execer, string, models.Category) (int64, error) {
			t.Fatalf("system categories must not be written")
			return 0, nil
		},
		deleteFn: func(context.Context, store.Execer, string, string) (int64, error) {
			t.Fatalf("system categories must not be deleted")
			return 0, nil
		},
	}
	dashboard := &stubDashboard{}
	svc := NewCategoryService(fakeTxRunner{}, categories, stubAuditStore{}, dashboard)

	_, err := svc.Update(context.Background(), "user-1", "sys-1", CategoryInput{Name: "Mine now", Type: ledger.Income})
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), "user-1", "sys-1"), ErrForbidden)
	assert.Empty(t, dashboard.invalidated)
}

func TestForeignCategoryIsNotFound(t *testing.T) {
	svc := NewCategoryService(fakeTxRunner{}, stubCategoryStore{getVisibleFn: visible(salary)}, stubAuditStore{}, &stubDashboard{})
	err := svc.Delete(context.Background(), "user-1", "someone-elses")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCategoryTypeChangeBlockedByTransactions(t *testing.T) {
	categories := stubCategoryStore{
		getVisibleFn: visible(coffee),
		countOtherTypeFn: func(_ context.Context, _ store.Getter, id string, categoryType ledger.TransactionType) (int64, error) {
			assert.Equal(t, "own-1", id)
			assert.Equal(t, ledger.Income, categoryType)
			return 3, nil
		},
	}
	svc := NewCategoryService(fakeTxRunner{}, categories, stubAuditStore{}, &stubDashboard{})

	_, err := svc.Update(context.Background(), "user-1", "own-1", CategoryInput{Name: "Coffee", Type: ledger.Income})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "category_type")
}

func TestUpdateOwnCategoryInvalidatesDashboard(t *testing.T) {
	var written models.Category
	categories := stubCategoryStore{
		getVisibleFn: visible(coffee),
		updateFn: func(_ context.Context, _ store.Execer, userID string, c models.Category) (int64, error) {
			assert.Equal(t, "user-1", userID)
			written = c
			return 1, nil
		},
		countOtherTypeFn: func(context.Context, store.Getter, string, ledger.TransactionType) (int64, error) {
			t.Fatalf("type is unchanged")
			return 0, nil
		},
	}
	dashboard := &stubDashboard{}
	svc := NewCategoryService(fakeTxRunner{}, categories, stubAuditStore{}, dashboard)

	result, err := svc.Update(context.Background(), "user-1", "own-1", CategoryInput{Name: "Cafe", Type: ledger.Expense})
	require.NoError(t, err)
	assert.Equal(t, "Cafe", result.Name)
	assert.Equal(t, "Cafe", written.Name)
	assert.Equal(t, []string{"user-1"}, dashboard.invalidated)
}

func TestListCategoriesRejectsUnknownType(t *testing.T) {
	svc := NewCategoryService(fakeTxRunner{}, stubCategoryStore{}, stubAuditStore{}, &stubDashboard{})
	_, err := svc.List(context.Background(), "user-1", "gift")
	assert.True(t, isValidation(err))

	list, err := svc.List(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.NotNil(t, list)
}
