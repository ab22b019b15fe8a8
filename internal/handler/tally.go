package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formdesk/backend/internal/service"
)

type TallyHandler struct {
	svc *service.TallyService
}

func NewTallyHandler(svc *service.TallyService) *TallyHandler {
	return &TallyHandler{svc: svc}
}

// Tally godoc
// @Summary Tally submissions by dimension
// @Description Grouped counts for charting. Allowed dimensions: category, user.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param by query string false "Dimension (default: category)"
// @Success 200 {object} model.TallyResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/tally [get]
func (h *TallyHandler) Tally(c *gin.Context) {
	resp, err := h.svc.Tally(c.Request.Context(), c.Query("by"))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
