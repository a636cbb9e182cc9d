package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
	"taxledger/internal/services"
)

type categoryView struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Type     ledger.TransactionType `json:"category_type"`
	IsSystem bool                   `json:"is_system"`
}

func newCategoryView(c models.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Type: c.Type, IsSystem: c.IsSystem()}
}

type categoryRequest struct {
	Name string                 `json:"name"`
	Type ledger.TransactionType `json:"category_type"`
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categoryType := ledger.TransactionType(r.URL.Query().Get("category_type"))
	categories, err := h.categories.List(r.Context(), userID, categoryType)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, newCategoryView(c))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := h.categories.Create(r.Context(), userID, services.CategoryInput{Name: req.Name, Type: req.Type})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newCategoryView(category))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := h.categories.Update(r.Context(), userID, chi.URLParam(r, "id"), services.CategoryInput{Name: req.Name, Type: req.Type})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCategoryView(category))
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.categories.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
