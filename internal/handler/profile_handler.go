package handler

import (
	"net/http"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/domain"
	"github.com/doease/doease/internal/dto"
	"github.com/doease/doease/internal/session"
	"github.com/doease/doease/internal/utils"
	"github.com/gin-gonic/gin"
)

// ProfileHandler persists the settings form.
type ProfileHandler struct {
	api  backend.API
	boot *session.Bootstrap
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(api backend.API, boot *session.Bootstrap) *ProfileHandler {
	return &ProfileHandler{api: api, boot: boot}
}

// Update writes the submitted profile fields and re-derives the published
// display user so the UI picks the change up immediately.
func (h *ProfileHandler) Update(c *gin.Context) {
	user := currentUser(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if req.Username != nil && !utils.ValidateUsername(*req.Username) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "username must be 1-32 characters",
		})
		return
	}

	_, err := h.api.UpdateProfile(c.Request.Context(), user.ID, domain.ProfileUpdate{
		Username:                  req.Username,
		Mobile:                    req.Mobile,
		Timezone:                  req.Timezone,
		EmailNotificationsEnabled: req.EmailNotificationsEnabled,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Update failed",
			Message: err.Error(),
		})
		return
	}

	h.boot.RefreshUserProfile(c.Request.Context())
	c.JSON(http.StatusOK, h.boot.Snapshot().CurrentUser)
}
