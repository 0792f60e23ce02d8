package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/sweepy/internal/auth"
	"github.com/dukerupert/sweepy/internal/model"
	"github.com/dukerupert/sweepy/internal/store"
)

type AuthHandler struct {
	households *store.HouseholdStore
	tokens     *auth.Tokens
	logger     *slog.Logger
}

func NewAuthHandler(hs *store.HouseholdStore, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{households: hs, tokens: tokens, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string           `json:"token"`
	Family *model.Household `json:"family"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	household, err := h.households.Create(r.Context(), req.Username, req.Password)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "username already taken"})
		return
	}
	if err != nil {
		h.logger.Error("register household", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
		return
	}

	h.logger.Info("household registered", "household_id", household.ID, "username", household.Username)
	h.respondWithToken(w, http.StatusCreated, household)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	household, err := h.households.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		h.logger.Warn("login failed", "username", req.Username)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("login", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}

	h.respondWithToken(w, http.StatusOK, household)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, household *model.Household) {
	token, err := h.tokens.Issue(household.ID, household.Username)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}
	writeJSON(w, status, authResponse{Token: token, Family: household})
}
