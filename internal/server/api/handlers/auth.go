// Package handlers implements the HTTP endpoints of the auth and file
// servers on top of the service layer.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/api/apierrors"
	"github.com/dmitrijs2005/filevault/internal/server/api/middleware"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// AuthHandler serves registration, login, token refresh, and profile
// retrieval.
type AuthHandler struct {
	users  *services.UserService
	tokens *auth.Service
	logger logging.Logger
}

// NewAuthHandler wires the auth endpoints to the user service.
func NewAuthHandler(users *services.UserService, tokens *auth.Service, logger logging.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// Routes mounts the auth endpoints on r.
func (h *AuthHandler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.tokens))
		r.Get("/me", h.Me)
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.MissingFields(w, r, "email and password are required")
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		var weak *services.WeakPasswordError
		switch {
		case errors.Is(err, common.ErrMissingFields):
			apierrors.MissingFields(w, r, "email and password are required")
		case errors.Is(err, common.ErrInvalidEmail):
			apierrors.InvalidEmail(w, r)
		case errors.As(err, &weak):
			apierrors.WeakPassword(w, r, weak.Rules)
		case errors.Is(err, common.ErrEmailExists):
			apierrors.EmailExists(w, r)
		default:
			h.logger.Error(r.Context(), "registration failed", "error", err)
			apierrors.InternalError(w, r)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "user registered successfully",
		"userId":    user.ID,
		"email":     user.Email,
		"createdAt": user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.MissingFields(w, r, "email and password are required")
		return
	}

	pair, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMissingFields):
			apierrors.MissingFields(w, r, "email and password are required")
		case errors.Is(err, common.ErrInvalidCredentials):
			apierrors.InvalidCredentials(w, r)
		default:
			h.logger.Error(r.Context(), "login failed", "error", err)
			apierrors.InternalError(w, r)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "login successful",
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"userId":       user.ID,
		"email":        user.Email,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /refresh, exchanging a refresh token for a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		apierrors.MissingFields(w, r, "refreshToken is required")
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenExpired):
			apierrors.TokenExpired(w, r)
		case errors.Is(err, common.ErrWrongTokenKind):
			apierrors.WrongTokenKind(w, r)
		case errors.Is(err, common.ErrNotFound):
			apierrors.UserNotFound(w, r)
		case errors.Is(err, common.ErrTokenMalformed), errors.Is(err, common.ErrTokenNotYetValid):
			apierrors.InvalidToken(w, r)
		default:
			h.logger.Error(r.Context(), "token refresh failed", "error", err)
			apierrors.InternalError(w, r)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "token refreshed successfully",
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Me handles GET /me for the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			apierrors.UserNotFound(w, r)
			return
		}
		h.logger.Error(r.Context(), "profile lookup failed", "error", err)
		apierrors.InternalError(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":    user.ID,
		"email":     user.Email,
		"createdAt": user.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": user.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
