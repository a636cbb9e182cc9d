package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
)

func TestCategoryStoreListVisibleIncludesSystem(t *testing.T) {
	owner := "user-1"
	store := NewCategoryStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "(user_id = $1 OR user_id IS NULL)") || !strings.Contains(query, "category_type = $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[1] != "expense" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]categoryRow) = []categoryRow{
				{ID: "sys", Name: "Аренда", CategoryType: "expense", IsSystem: true},
				{ID: "own", UserID: &owner, Name: "Coffee", CategoryType: "expense"},
			}
			return nil
		},
	})
	categories, err := store.ListVisible(context.Background(), "user-1", ledger.Expense)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 2 || !categories[0].IsSystem() || categories[1].IsSystem() {
		t.Fatalf("unexpected categories: %#v", categories)
	}
	if !categories[1].Owner.CanModify("user-1") {
		t.Fatalf("expected user-owned category")
	}
}

func TestCategoryStoreCreateWritesOwnerColumn(t *testing.T) {
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			owner, ok := args[1].(*string)
			if !ok || owner == nil || *owner != "user-1" {
				t.Fatalf("unexpected owner arg: %#v", args[1])
			}
			if args[4] != false {
				t.Fatalf("user category flagged as system: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewCategoryStore(stubDB{})
	err := store.Create(context.Background(), execer, models.Category{
		ID: "c1", Name: "Coffee", Type: ledger.Expense, Owner: ledger.UserOwned{UserID: "user-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCategoryStoreUpdateScopedToOwner(t *testing.T) {
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "WHERE id = $3 AND user_id = $4") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewCategoryStore(stubDB{})
	rows, err := store.Update(context.Background(), execer, "user-2", models.Category{ID: "c1", Name: "x", Type: ledger.Income})
	if err != nil || rows != 0 {
		t.Fatalf("unexpected result: %d %v", rows, err)
	}
}

func TestCategoryStoreCountOtherType(t *testing.T) {
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "transaction_type <> $2") || args[1] != "income" {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			*dest.(*int64) = 3
			return nil
		},
	}
	store := NewCategoryStore(stubDB{})
	count, err := store.CountOtherType(context.Background(), getter, "c1", ledger.Income)
	if err != nil || count != 3 {
		t.Fatalf("unexpected result: %d %v", count, err)
	}
}
