package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"taxledger/internal/ledger"
	"taxledger/internal/money"
	"taxledger/internal/services"
	"taxledger/internal/taxperiod"
)

type seriesPointView struct {
	Period  string `json:"period"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type categoryTotalView struct {
	CategoryName string `json:"category_name"`
	CategoryType string `json:"category_type"`
	Total        string `json:"total"`
	Count        int64  `json:"count"`
}

type periodStatsView struct {
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	Income           string `json:"income"`
	Expense          string `json:"expense"`
	Net              string `json:"net"`
	TransactionCount int64  `json:"transaction_count"`
}

func newPeriodStatsView(s services.PeriodStats) periodStatsView {
	return periodStatsView{
		DateFrom:         taxperiod.FormatDate(s.Period.Start),
		DateTo:           taxperiod.FormatDate(s.Period.End),
		Income:           money.Format(s.Income),
		Expense:          money.Format(s.Expense),
		Net:              money.Format(s.Net),
		TransactionCount: s.TransactionCount,
	}
}

type periodChangeView struct {
	Income     string `json:"income_change"`
	Expense    string `json:"expense_change"`
	Net        string `json:"net_change"`
	IncomePct  string `json:"income_change_pct"`
	ExpensePct string `json:"expense_change_pct"`
	NetPct     string `json:"net_change_pct"`
}

// analyticsRange reads either a preset or a date_from/date_to pair. A preset
// wins over explicit dates.
func (h *Handler) analyticsRange(r *http.Request) (*string, services.Range, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("preset")); raw != "" {
		period, err := services.DatePreset(raw).Range(h.today())
		if err != nil {
			return nil, services.Range{}, &paramError{message: fmt.Sprintf("Invalid preset: %s. Use: week, month, year, all_time", raw)}
		}
		return &raw, services.Range{From: &period.Start, To: &period.End}, nil
	}
	from, err := queryDate(r, "date_from")
	if err != nil {
		return nil, services.Range{}, err
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		return nil, services.Range{}, err
	}
	return nil, services.Range{From: from, To: to}, nil
}

func queryTransactionType(r *http.Request) (ledger.TransactionType, error) {
	t := ledger.TransactionType(strings.TrimSpace(r.URL.Query().Get("transaction_type")))
	if t != "" && !t.Valid() {
		return "", &paramError{message: "Invalid transaction_type. Use income or expense."}
	}
	return t, nil
}

func (h *Handler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	periodParam := r.URL.Query().Get("period")
	granularity, err := ledger.ParseGranularity(periodParam)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid period: %s. Use: daily, monthly, yearly", periodParam))
		return
	}
	if periodParam == "" {
		periodParam = "monthly"
	}
	preset, rng, err := h.analyticsRange(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	txType, err := queryTransactionType(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	points, window, err := h.analytics.TimeSeries(r.Context(), services.TimeSeriesQuery{
		UserID:      userID,
		Granularity: granularity,
		Range:       rng,
		Type:        txType,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	data := make([]seriesPointView, 0, len(points))
	for _, p := range points {
		data = append(data, seriesPointView{
			Period:  p.Period,
			Income:  money.Format(p.Income),
			Expense: money.Format(p.Expense),
			Net:     money.Format(p.Net),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"period":    periodParam,
		"preset":    preset,
		"date_from": formatDatePtr(window.From),
		"date_to":   formatDatePtr(window.To),
		"data":      data,
	})
}

func (h *Handler) CategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	preset, rng, err := h.analyticsRange(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	txType, err := queryTransactionType(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if preset == nil && rng.From == nil && rng.To == nil {
		period, _ := services.PresetMonth.Range(h.today())
		rng = services.Range{From: &period.Start, To: &period.End}
	}
	limit, err := queryInt(r, "limit", services.DefaultBreakdownLimit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	totals, err := h.analytics.CategoryBreakdown(r.Context(), services.BreakdownQuery{
		UserID: userID,
		Range:  rng,
		Type:   txType,
		Limit:  limit,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	data := make([]categoryTotalView, 0, len(totals))
	for _, t := range totals {
		data = append(data, categoryTotalView{
			CategoryName: t.CategoryName,
			CategoryType: t.CategoryType,
			Total:        money.Format(t.Total),
			Count:        t.Count,
		})
	}
	var typeEcho *string
	if txType != "" {
		s := string(txType)
		typeEcho = &s
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"preset":           preset,
		"date_from":        formatDatePtr(rng.From),
		"date_to":          formatDatePtr(rng.To),
		"transaction_type": typeEcho,
		"data":             data,
	})
}

func (h *Handler) PeriodComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	names := []string{"p1_from", "p1_to", "p2_from", "p2_to"}
	dates := make([]taxperiod.Period, 0, 2)
	missing := false
	for i := 0; i < len(names); i += 2 {
		from, err := queryDate(r, names[i])
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		to, err := queryDate(r, names[i+1])
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		if from == nil || to == nil {
			missing = true
			continue
		}
		dates = append(dates, taxperiod.Period{Start: *from, End: *to})
	}
	if missing {
		respondError(w, http.StatusBadRequest, "All parameters required: p1_from, p1_to, p2_from, p2_to (YYYY-MM-DD)")
		return
	}
	cmp, err := h.analytics.ComparePeriods(r.Context(), userID, dates[0], dates[1])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"period1": newPeriodStatsView(cmp.Period1),
		"period2": newPeriodStatsView(cmp.Period2),
		"change": periodChangeView{
			Income:     money.Format(cmp.Change.Income),
			Expense:    money.Format(cmp.Change.Expense),
			Net:        money.Format(cmp.Change.Net),
			IncomePct:  money.Format(cmp.Change.IncomePct),
			ExpensePct: money.Format(cmp.Change.ExpensePct),
			NetPct:     money.Format(cmp.Change.NetPct),
		},
	})
}
