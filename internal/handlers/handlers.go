package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"taxledger/internal/db"
	"taxledger/internal/middleware"
	"taxledger/internal/services"
	"taxledger/internal/taxperiod"
)

const codeTaxPeriodNotConfigured = "tax_period_not_configured"

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondErrorCode(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, map[string]string{"error": message, "code": code})
}

func respondFields(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation_failed",
		"fields": fields,
	})
}

// respondServiceError maps the service error vocabulary onto HTTP. Anything
// unrecognised is logged and reported as a generic 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	var cfgErr *taxperiod.ConfigError
	var perr *paramError
	switch {
	case errors.As(err, &perr):
		respondError(w, http.StatusBadRequest, perr.message)
	case errors.As(err, &verr):
		respondFields(w, verr.Fields)
	case errors.As(err, &cfgErr):
		respondErrorCode(w, http.StatusBadRequest, cfgErr.Error(), codeTaxPeriodNotConfigured)
	case errors.Is(err, services.ErrSecondPrimaryActivity):
		respondFields(w, map[string]string{"is_primary": err.Error()})
	case errors.Is(err, services.ErrProfileNotFound):
		respondErrorCode(w, http.StatusNotFound, err.Error(), "organization_profile_not_found")
	case errors.Is(err, services.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrConflict), db.IsUniqueViolation(err):
		respondError(w, http.StatusConflict, "already exists")
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request.unhandled_error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

// decimalInput accepts a JSON string or number and keeps its literal text.
type decimalInput string

func (d *decimalInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = decimalInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = decimalInput(n.String())
	return nil
}
