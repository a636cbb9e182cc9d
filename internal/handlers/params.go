package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"taxledger/internal/taxperiod"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// paramError is a malformed query or path parameter, reported verbatim.
type paramError struct {
	message string
}

func (e *paramError) Error() string {
	return e.message
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	day, err := taxperiod.ParseDate(raw)
	if err != nil {
		return nil, &paramError{message: fmt.Sprintf("Invalid %s format. Use YYYY-MM-DD", name)}
	}
	return &day, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{message: fmt.Sprintf("Invalid %s format. Must be an integer.", name)}
	}
	return value, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
	switch raw {
	case "":
		return nil, nil
	case "true", "1", "yes":
		v := true
		return &v, nil
	case "false", "0", "no":
		v := false
		return &v, nil
	}
	return nil, &paramError{message: fmt.Sprintf("Invalid %s format. Use true or false.", name)}
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &paramError{message: fmt.Sprintf("Invalid %s format. Must be an integer.", name)}
	}
	return &value, nil
}

// page reads limit and offset, clamping limit to maxPageSize.
func page(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &paramError{message: "Invalid id. Must be a positive integer."}
	}
	return id, nil
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := taxperiod.FormatDate(*t)
	return &s
}
