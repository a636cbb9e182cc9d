package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/money"
	"taxledger/internal/services"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
)

type transactionView struct {
	ID               string  `json:"id"`
	Amount           string  `json:"amount"`
	TransactionType  string  `json:"transaction_type"`
	Category         *string `json:"category"`
	CategoryName     *string `json:"category_name"`
	Description      string  `json:"description"`
	TransactionDate  string  `json:"transaction_date"`
	CreatedAt        string  `json:"created_at"`
	PaymentMethod    string  `json:"payment_method"`
	IsBusiness       bool    `json:"is_business"`
	IsTaxable        bool    `json:"is_taxable"`
	ActivityCode     *int64  `json:"activity_code"`
	ActivityCodeName *string `json:"activity_code_name"`
	CashTaxRate      *string `json:"cash_tax_rate"`
	NonCashTaxRate   *string `json:"non_cash_tax_rate"`
}

func newTransactionView(t models.Transaction) transactionView {
	view := transactionView{
		ID:               t.ID,
		Amount:           money.Format(t.Amount),
		TransactionType:  string(t.Type),
		Category:         t.CategoryID,
		CategoryName:     t.CategoryName,
		Description:      t.Description,
		TransactionDate:  taxperiod.FormatDate(t.TransactionDate),
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
		PaymentMethod:    string(t.PaymentMethod),
		IsBusiness:       t.IsBusiness,
		IsTaxable:        t.IsTaxable,
		ActivityCode:     t.ActivityCodeID,
		ActivityCodeName: t.ActivityName,
	}
	if t.CashTaxRate.Valid {
		rate := money.Format(t.CashTaxRate.Decimal)
		view.CashTaxRate = &rate
	}
	if t.NonCashTaxRate.Valid {
		rate := money.Format(t.NonCashTaxRate.Decimal)
		view.NonCashTaxRate = &rate
	}
	return view
}

type transactionRequest struct {
	Amount          decimalInput           `json:"amount"`
	TransactionType ledger.TransactionType `json:"transaction_type"`
	Category        *string                `json:"category"`
	Description     string                 `json:"description"`
	TransactionDate string                 `json:"transaction_date"`
	PaymentMethod   ledger.PaymentMethod   `json:"payment_method"`
	IsBusiness      bool                   `json:"is_business"`
	IsTaxable       *bool                  `json:"is_taxable"`
	ActivityCode    *int64                 `json:"activity_code"`
}

// input converts the payload. is_taxable defaults to true; an empty category
// means uncategorized.
func (req transactionRequest) input(userID string) (services.TransactionInput, error) {
	verr := &services.ValidationError{}
	amount, err := money.Parse(string(req.Amount))
	if err != nil {
		verr.Add("amount", err.Error())
	}
	var date time.Time
	if raw := strings.TrimSpace(req.TransactionDate); raw != "" {
		if date, err = taxperiod.ParseDate(raw); err != nil {
			verr.Add("transaction_date", "Use YYYY-MM-DD")
		}
	}
	if err := verr.OrNil(); err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		UserID:          userID,
		Type:            req.TransactionType,
		Amount:          amount,
		ActivityCodeID:  req.ActivityCode,
		Description:     strings.TrimSpace(req.Description),
		TransactionDate: date,
		PaymentMethod:   req.PaymentMethod,
		IsBusiness:      req.IsBusiness,
		IsTaxable:       true,
	}
	if req.IsTaxable != nil {
		in.IsTaxable = *req.IsTaxable
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		id := strings.TrimSpace(*req.Category)
		in.CategoryID = &id
	}
	return in, nil
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input(userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	t, err := h.transactions.Create(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newTransactionView(t))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	t, err := h.transactions.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTransactionView(t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input(userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	t, err := h.transactions.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTransactionView(t))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.transactions.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	filter, err := transactionFilter(r, userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	ordering := r.URL.Query().Get("ordering")
	if !store.ValidOrdering(ordering) {
		respondError(w, http.StatusBadRequest, "Invalid ordering. Use transaction_date, amount or created_at, optionally prefixed with -.")
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.transactions.List(r.Context(), filter, ordering, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	views := make([]transactionView, 0, len(result.Items))
	for _, t := range result.Items {
		views = append(views, newTransactionView(t))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   result.Count,
		"results": views,
	})
}

func transactionFilter(r *http.Request, userID string) (ledger.Filter, error) {
	q := r.URL.Query()
	filter := ledger.Filter{
		UserID:     userID,
		Type:       ledger.TransactionType(q.Get("transaction_type")),
		CategoryID: strings.TrimSpace(q.Get("category")),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return filter, &paramError{message: "Invalid transaction_type. Use income or expense."}
	}
	if method := ledger.PaymentMethod(q.Get("payment_method")); method != "" {
		if !method.Valid() {
			return filter, &paramError{message: "Invalid payment_method. Use cash or non_cash."}
		}
		filter.PaymentMethod = method
	}
	var err error
	if filter.DateFrom, err = queryDate(r, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = queryDate(r, "date_to"); err != nil {
		return filter, err
	}
	if filter.IsBusiness, err = queryBool(r, "is_business"); err != nil {
		return filter, err
	}
	if filter.IsTaxable, err = queryBool(r, "is_taxable"); err != nil {
		return filter, err
	}
	if filter.ActivityCodeID, err = queryInt64(r, "activity_code"); err != nil {
		return filter, err
	}
	return filter, nil
}
