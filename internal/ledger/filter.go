package ledger

import (
	"strconv"
	"strings"
	"time"
)

// Filter is the query specification shared by every ledger read. Nil and
// zero fields do not constrain the result.
type Filter struct {
	UserID          string
	DateFrom        *time.Time
	DateTo          *time.Time
	Type            TransactionType
	PaymentMethod   PaymentMethod
	IsBusiness      *bool
	IsTaxable       *bool
	CategoryID      string
	ActivityCodeID  *int64
	RequireCategory bool
	RequireActivity bool
	Search          string
}

// Where renders the filter as a predicate over the transactions table
// aliased as alias. Placeholders start at $1.
func (f Filter) Where(alias string) (string, []any) {
	return f.WhereFrom(alias, 1)
}

// WhereFrom is Where with placeholders numbered from start.
func (f Filter) WhereFrom(alias string, start int) (string, []any) {
	b := predicate{alias: alias, next: start}
	b.add("user_id = ?", f.UserID)
	if f.DateFrom != nil {
		b.add("transaction_date >= ?", f.DateFrom.Format("2006-01-02"))
	}
	if f.DateTo != nil {
		b.add("transaction_date <= ?", f.DateTo.Format("2006-01-02"))
	}
	if f.Type != "" {
		b.add("transaction_type = ?", string(f.Type))
	}
	if f.PaymentMethod != "" {
		b.add("payment_method = ?", string(f.PaymentMethod))
	}
	if f.IsBusiness != nil {
		b.add("is_business = ?", *f.IsBusiness)
	}
	if f.IsTaxable != nil {
		b.add("is_taxable = ?", *f.IsTaxable)
	}
	if f.CategoryID != "" {
		b.add("category_id = ?", f.CategoryID)
	}
	if f.ActivityCodeID != nil {
		b.add("activity_code_id = ?", *f.ActivityCodeID)
	}
	if f.RequireCategory {
		b.raw("category_id IS NOT NULL")
	}
	if f.RequireActivity {
		b.raw("is_business")
		b.raw("activity_code_id IS NOT NULL")
	}
	if f.Search != "" {
		b.add(`description ILIKE ? ESCAPE '\'`, "%"+EscapeLike(f.Search)+"%")
	}
	return strings.Join(b.clauses, " AND "), b.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// EscapeLike quotes the LIKE wildcards in s for use with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type predicate struct {
	alias   string
	next    int
	clauses []string
	args    []any
}

func (p *predicate) column(clause string) string {
	if p.alias == "" {
		return clause
	}
	return p.alias + "." + clause
}

func (p *predicate) add(clause string, arg any) {
	placeholder := "$" + strconv.Itoa(p.next)
	p.next++
	p.clauses = append(p.clauses, p.column(strings.Replace(clause, "?", placeholder, 1)))
	p.args = append(p.args, arg)
}

func (p *predicate) raw(clause string) {
	p.clauses = append(p.clauses, p.column(clause))
}
