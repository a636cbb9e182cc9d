package handlers

import (
	"net/http"
	"time"

	"taxledger/internal/models"
	"taxledger/internal/money"
	"taxledger/internal/services"
	"taxledger/internal/taxperiod"
)

type profileView struct {
	ID                 string                  `json:"id"`
	OrgType            *models.OrgType         `json:"org_type"`
	TaxRegime          *models.TaxRegime       `json:"tax_regime"`
	TaxPeriodType      *string                 `json:"tax_period_type"`
	TaxPeriodPreset    *string                 `json:"tax_period_preset"`
	TaxPeriodCustomDay *int                    `json:"tax_period_custom_day"`
	OnboardingStatus   models.OnboardingStatus `json:"onboarding_status"`
	IsCompleted        bool                    `json:"is_completed"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

func newProfileView(p models.OrganizationProfile) profileView {
	return profileView{
		ID:                 p.ID,
		OrgType:            p.OrgType,
		TaxRegime:          p.TaxRegime,
		TaxPeriodType:      p.TaxPeriodType,
		TaxPeriodPreset:    p.TaxPeriodPreset,
		TaxPeriodCustomDay: p.TaxPeriodCustomDay,
		OnboardingStatus:   p.OnboardingStatus,
		IsCompleted:        p.IsCompleted(),
		UpdatedAt:          p.UpdatedAt,
	}
}

type activityView struct {
	ID             int64  `json:"id"`
	ActivityCodeID int64  `json:"activity"`
	Code           string `json:"activity_code"`
	Name           string `json:"activity_name"`
	CashTaxRate    string `json:"cash_tax_rate"`
	NonCashTaxRate string `json:"non_cash_tax_rate"`
	IsPrimary      bool   `json:"is_primary"`
}

func newActivityView(a models.OrganizationActivity) activityView {
	return activityView{
		ID:             a.ID,
		ActivityCodeID: a.ActivityCodeID,
		Code:           a.Code,
		Name:           a.Name,
		CashTaxRate:    money.Format(a.CashTaxRate),
		NonCashTaxRate: money.Format(a.NonCashTaxRate),
		IsPrimary:      a.IsPrimary,
	}
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	profile, err := h.organization.Profile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newProfileView(profile))
}

type profileRequest struct {
	OrgType            *models.OrgType       `json:"org_type"`
	TaxRegime          *models.TaxRegime     `json:"tax_regime"`
	TaxPeriodType      *taxperiod.PolicyType `json:"tax_period_type"`
	TaxPeriodPreset    *taxperiod.Preset     `json:"tax_period_preset"`
	TaxPeriodCustomDay *int                  `json:"tax_period_custom_day"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.organization.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		OrgType:            req.OrgType,
		TaxRegime:          req.TaxRegime,
		TaxPeriodType:      req.TaxPeriodType,
		TaxPeriodPreset:    req.TaxPeriodPreset,
		TaxPeriodCustomDay: req.TaxPeriodCustomDay,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newProfileView(profile))
}

func (h *Handler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	state, err := h.organization.Status(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handler) FinalizeOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	profile, err := h.organization.Finalize(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newProfileView(profile))
}

type currentPeriodView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *Handler) CurrentTaxPeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	view, err := h.organization.TaxPeriod(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tax_period_type":       view.Profile.TaxPeriodType,
		"tax_period_preset":     view.Profile.TaxPeriodPreset,
		"tax_period_custom_day": view.Profile.TaxPeriodCustomDay,
		"current_period": currentPeriodView{
			Start: taxperiod.FormatDate(view.Current.Start),
			End:   taxperiod.FormatDate(view.Current.End),
		},
		"next_period_start": taxperiod.FormatDate(view.NextPeriodStart),
	})
}

func (h *Handler) ListOrganizationActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	activities, err := h.organization.Activities(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	views := make([]activityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, newActivityView(a))
	}
	respondJSON(w, http.StatusOK, views)
}

type activityRequest struct {
	Activity       int64        `json:"activity"`
	CashTaxRate    decimalInput `json:"cash_tax_rate"`
	NonCashTaxRate decimalInput `json:"non_cash_tax_rate"`
	IsPrimary      bool         `json:"is_primary"`
}

func (req activityRequest) input() (services.ActivityInput, error) {
	verr := &services.ValidationError{}
	cash, err := money.Parse(string(req.CashTaxRate))
	if err != nil {
		verr.Add("cash_tax_rate", err.Error())
	}
	nonCash, err := money.Parse(string(req.NonCashTaxRate))
	if err != nil {
		verr.Add("non_cash_tax_rate", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return services.ActivityInput{}, err
	}
	return services.ActivityInput{
		ActivityCodeID: req.Activity,
		CashTaxRate:    cash,
		NonCashTaxRate: nonCash,
		IsPrimary:      req.IsPrimary,
	}, nil
}

func (h *Handler) AddOrganizationActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req activityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	activity, err := h.organization.AddActivity(r.Context(), userID, in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newActivityView(activity))
}

func (h *Handler) UpdateOrganizationActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	activityID, err := pathID(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req activityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	activity, err := h.organization.UpdateActivity(r.Context(), userID, activityID, in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newActivityView(activity))
}

func (h *Handler) DeleteOrganizationActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	activityID, err := pathID(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if err := h.organization.DeleteActivity(r.Context(), userID, activityID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActivityCodes searches the shared activity directory.
func (h *Handler) ListActivityCodes(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}
	codes, err := h.activities.Search(r.Context(), r.URL.Query().Get("search"), defaultPageSize)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, codes)
}
