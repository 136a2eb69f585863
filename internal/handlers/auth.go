package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/akovalyov/currex/pkg/errors"
	"github.com/akovalyov/currex/pkg/metrics"
	"github.com/akovalyov/currex/pkg/response"

	"github.com/akovalyov/currex/internal/services"
)

// AuthHandler exposes the account lifecycle over HTTP: registration,
// confirmation, and login.
type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ack, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			metrics.RegistrationAttempts.WithLabelValues("conflict").Inc()
		} else {
			metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
		}
		response.Error(c, err)
		return
	}

	metrics.RegistrationAttempts.WithLabelValues("accepted").Inc()
	response.Success(c, http.StatusOK, gin.H{"message": ack})
}

// GET /api/auth/register-confirm
func (h *AuthHandler) RegisterConfirm(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		response.Error(c, appErrors.NewBadRequest("confirmation key is required"))
		return
	}

	token, err := h.accounts.Confirm(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyConfirmed):
			metrics.Confirmations.WithLabelValues("replay").Inc()
		case errors.Is(err, services.ErrBadConfirmationKey):
			metrics.Confirmations.WithLabelValues("invalid").Inc()
		default:
			metrics.Confirmations.WithLabelValues("failure").Inc()
		}
		response.Error(c, err)
		return
	}

	metrics.Confirmations.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"message": "Registration confirmed",
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, tokenResponse{Token: token})
}
