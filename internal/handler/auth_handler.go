package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/domain"
	"github.com/doease/doease/internal/dto"
	"github.com/doease/doease/internal/session"
	"github.com/doease/doease/internal/utils"
	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the sign-up/sign-in/sign-out flows and the published
// session state to the local UI.
type AuthHandler struct {
	api  backend.API
	boot *session.Bootstrap
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(api backend.API, boot *session.Bootstrap) *AuthHandler {
	return &AuthHandler{api: api, boot: boot}
}

// State returns the published bootstrap snapshot.
func (h *AuthHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.boot.Snapshot())
}

// SignUp handles account creation
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "invalid email format",
		})
		return
	}
	if !utils.ValidatePassword(req.Password) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "password must be at least 8 characters long and contain uppercase, lowercase, and number",
		})
		return
	}
	if !utils.ValidateUsername(req.Username) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "username must be 1-32 characters",
		})
		return
	}

	timezone := req.Timezone
	if timezone == nil {
		tz := time.Local.String()
		timezone = &tz
	}

	sess, err := h.api.SignUp(c.Request.Context(), backend.SignUpParams{
		Email:    utils.SanitizeEmail(req.Email),
		Password: req.Password,
		Username: req.Username,
		Mobile:   req.Mobile,
		Timezone: timezone,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Sign-up failed",
			Message: err.Error(),
		})
		return
	}

	if sess == nil {
		// Deployment requires email confirmation before a session exists.
		c.JSON(http.StatusAccepted, dto.SuccessResponse{
			Message: "Account created. Check your email to confirm it.",
		})
		return
	}

	c.JSON(http.StatusCreated, h.boot.Snapshot())
}

// SignIn handles credential sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	_, err := h.api.SignIn(c.Request.Context(), utils.SanitizeEmail(req.Email), req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, backend.ErrUnauthorized) {
			status = http.StatusBadGateway
		}
		c.JSON(status, dto.ErrorResponse{
			Error:   "Sign-in failed",
			Message: "invalid email or password",
		})
		return
	}

	c.JSON(http.StatusOK, h.boot.Snapshot())
}

// SignOut handles sign-out
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.boot.SignOut(c.Request.Context()); err != nil {
		// Local state is already cleared; report the remote trouble.
		c.JSON(http.StatusOK, dto.SuccessResponse{
			Message: "Signed out locally; remote revocation failed",
		})
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Signed out"})
}

// Me returns the current display user
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "No signed-in user",
		})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Refresh re-derives the display user from the remote profile row.
func (h *AuthHandler) Refresh(c *gin.Context) {
	h.boot.RefreshUserProfile(c.Request.Context())
	c.JSON(http.StatusOK, h.boot.Snapshot())
}

func currentUser(c *gin.Context) *domain.DisplayUser {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*domain.DisplayUser)
	if !ok {
		return nil
	}
	return user
}
