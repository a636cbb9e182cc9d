package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"taxledger/internal/auth"
	"taxledger/internal/db"
	"taxledger/internal/models"
	"taxledger/internal/validator"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newUserView(u models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := validator.Registration(req.Username, req.Email, req.Password); fields != nil {
		respondFields(w, fields)
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.WithError(err).Error("auth.hash_failed")
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	user := models.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    validator.NormalizeEmail(req.Email),
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.users.Create(r.Context(), tx, user.ID, user.Username, user.Email, passwordHash); err != nil {
			return err
		}
		return h.logAuth(r, tx, user.ID, "user.registered")
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "username or email already exists")
			return
		}
		h.log.WithError(err).Error("auth.register_failed")
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.log.WithField("user_id", user.ID).Info("auth.registered")
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  newUserView(user),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.GetByEmail(r.Context(), validator.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.WithError(err).Error("auth.login_failed")
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.logAuth(r, tx, user.ID, "user.login")
	}); err != nil {
		h.log.WithError(err).Error("auth.login_failed")
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newUserView(user),
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newUserView(user))
}

func (h *Handler) logAuth(r *http.Request, tx *sqlx.Tx, userID, action string) error {
	data, _ := json.Marshal(map[string]string{
		"ip":         r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
	return h.audit.Log(r.Context(), tx, userID, action, "user", userID, string(data))
}
