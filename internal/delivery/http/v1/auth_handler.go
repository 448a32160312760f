package v1

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"pawmarket-backend/internal/domain"
	"pawmarket-backend/internal/usecase"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/utils"
)

type AuthHandler struct {
	authUC *usecase.AuthUsecase
}

func NewAuthHandler(authUC *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{authUC: authUC}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authUC.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrEmailTaken) {
			utils.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, user, err := h.authUC.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			utils.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		logger.Error().Err(err).Msg("login failed")
		utils.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": token,
		"user":        user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok || user == nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.authUC.Me(r.Context(), user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, profile)
}
