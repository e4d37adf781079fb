package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/models"
	"smartspend/internal/pagination"
	"smartspend/internal/services"
)

// ActivityHandler exposes the caller's audit trail.
type ActivityHandler struct {
	auditService services.AuditServicer
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(auditService services.AuditServicer) *ActivityHandler {
	return &ActivityHandler{auditService: auditService}
}

// GetActivity lists the current user's recorded operations
// @Summary     Get account activity
// @Description List the current user's audited operations, newest first
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Param       action    query string false "Only this action, e.g. IMPORT_TRANSACTIONS"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Activity page"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /profile/activity [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var action *models.AuditAction
	if v := c.Query("action"); v != "" {
		a := models.AuditAction(v)
		if !a.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown action "+v))
			return
		}
		action = &a
	}

	result, err := h.auditService.GetUserActivity(c.Request.Context(), userID, action, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
